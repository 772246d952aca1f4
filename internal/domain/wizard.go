package domain

import (
	"strconv"
	"strings"
)

// Step is a position in the tour-creation wizard.
type Step string

const (
	StepBasicInfo Step = "BASIC_INFO"
	StepRoute     Step = "ROUTE"
	StepMedia     Step = "MEDIA"
	StepReview    Step = "REVIEW"
)

var stepOrder = []Step{StepBasicInfo, StepRoute, StepMedia, StepReview}

func (s Step) Valid() bool {
	return s.index() >= 0
}

func (s Step) index() int {
	for i, st := range stepOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the following step; ok is false at REVIEW.
func (s Step) Next() (Step, bool) {
	i := s.index()
	if i < 0 || i+1 >= len(stepOrder) {
		return s, false
	}
	return stepOrder[i+1], true
}

// Prev returns the preceding step; ok is false at BASIC_INFO.
func (s Step) Prev() (Step, bool) {
	i := s.index()
	if i <= 0 {
		return s, false
	}
	return stepOrder[i-1], true
}

// FormState is the read model the step predicates are evaluated against.
// Warnings must be freshly computed for Stops.
type FormState struct {
	Title       string
	Description string
	Stops       []Stop
	Warnings    []ValidationWarning
}

// StepComplete evaluates the completeness predicate of step. Reasons explain a false result.
func StepComplete(step Step, st FormState) (bool, []string) {
	var reasons []string
	switch step {
	case StepBasicInfo:
		reasons = basicInfoReasons(st)
	case StepRoute:
		if len(st.Stops) < MinimumStops {
			reasons = append(reasons, "at least 2 stops are required")
		}
		for i, s := range st.Stops {
			if !s.HasLocation() {
				reasons = append(reasons, "stop "+strconv.Itoa(i+1)+" has no location")
			}
		}
	case StepMedia:
		gate := SubmitGate(st.Stops)
		reasons = append(reasons, gate.Reasons...)
		if HasErrors(st.Warnings) {
			reasons = append(reasons, "resolve all validation errors")
		}
	case StepReview:
		// No gate of its own beyond the accumulated state.
	}
	return len(reasons) == 0, reasons
}

// CanSubmit reports whether the terminal REVIEW action is enabled.
func CanSubmit(step Step, st FormState) (bool, []string) {
	var reasons []string
	if step != StepReview {
		reasons = append(reasons, "submission is only possible from the review step")
	}
	reasons = append(reasons, basicInfoReasons(st)...)
	reasons = append(reasons, SubmitGate(st.Stops).Reasons...)
	if HasErrors(st.Warnings) {
		reasons = append(reasons, "resolve all validation errors")
	}
	return len(reasons) == 0, reasons
}

func basicInfoReasons(st FormState) []string {
	var reasons []string
	if strings.TrimSpace(st.Title) == "" {
		reasons = append(reasons, "title is required")
	}
	if strings.TrimSpace(st.Description) == "" {
		reasons = append(reasons, "description is required")
	}
	return reasons
}
