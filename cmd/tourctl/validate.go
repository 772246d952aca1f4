package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

// errHasErrors makes the process exit non-zero when a tour has blocking findings.
var errHasErrors = errors.New("tour has validation errors")

type validateReport struct {
	Warnings   []domain.ValidationWarning `json:"warnings"`
	HasErrors  bool                       `json:"hasErrors"`
	SubmitGate domain.GateResult          `json:"submitGate"`
	Quote      domain.Quote               `json:"quote"`
	Duration   string                     `json:"duration"`
}

func newValidateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <tour.json|tour.yaml|->",
		Short: "Check walking-time coverage and the submit gate for a tour file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTour(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			ws := domain.ValidateStops(t.Stops)
			q := domain.QuoteFor(t.Stops)
			rep := validateReport{
				Warnings:   ws,
				HasErrors:  domain.HasErrors(ws),
				SubmitGate: domain.SubmitGate(t.Stops),
				Quote:      q,
				Duration:   domain.FormatDuration(q.TotalAudioSeconds),
			}
			if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if rep.HasErrors || (strict && !rep.SubmitGate.OK) {
				return errHasErrors
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "also fail when the submit gate does not pass")
	return cmd
}

func newQuoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <tour.json|tour.yaml|->",
		Short: "Print the audio total, duration and price of a tour file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTour(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			q := domain.QuoteFor(t.Stops)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "audio:    %s\nduration: %d min\nprice:    %.2f LKR\n",
				domain.FormatDuration(q.TotalAudioSeconds), q.DurationMinutes, q.Price)
			return err
		},
	}
}

// loadTour reads a tour in the external record shape. YAML input is converted to JSON
// first so both formats share the same normalization.
func loadTour(stdin io.Reader, path string) (domain.TourPackage, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.TourPackage{}, fmt.Errorf("read tour: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return domain.TourPackage{}, fmt.Errorf("parse yaml: %w", err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return domain.TourPackage{}, fmt.Errorf("convert yaml: %w", err)
		}
	}
	return domain.NormalizeTour(raw)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
