package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/adapters/mediaprobe"
	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

func newProbeCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "probe <file>...",
		Short: "Classify media files and extract audio durations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := mediaprobe.New(zap.NewNop())
			out := cmd.OutOrStdout()
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				name := filepath.Base(path)
				mt, contentType, ok := p.Sniff(name, data)
				if !ok {
					fmt.Fprintf(out, "%s\tunsupported\n", name)
					continue
				}
				if mt != domain.MediaTypeAudio {
					fmt.Fprintf(out, "%s\t%s\t%s\n", name, mt, contentType)
					continue
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				secs := p.DurationSeconds(ctx, contentType, data)
				cancel()
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", name, mt, contentType, domain.FormatDuration(secs))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-file duration extraction budget")
	return cmd
}
