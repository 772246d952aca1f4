package domain

import (
	"fmt"
	"math"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Stable machine codes attached to validation warnings.
const (
	CodeLocationMissing   = "LOCATION_MISSING"
	CodeAudioMissing      = "AUDIO_MISSING"
	CodeAudioInsufficient = "AUDIO_INSUFFICIENT"
)

// RecommendedAudioRatio is the share of the walking time to the next stop that a stop's audio should cover.
const RecommendedAudioRatio = 0.8

// MinimumStops is the smallest submittable tour.
const MinimumStops = 2

// ValidationWarning is a transient finding about one stop. It is recomputed from scratch
// on every relevant change and never persisted.
type ValidationWarning struct {
	StopIndex int      `json:"stopIndex"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	Code      string   `json:"code"`
}

// ValidateStops runs the pairwise walking-time check over consecutive stops.
//
// Warnings are only ever attached to the left side of a pair, so the last stop never
// appears here even when it lacks audio. SubmitGate is the stricter all-stops rule.
func ValidateStops(stops []Stop) []ValidationWarning {
	out := make([]ValidationWarning, 0)
	for i := 0; i+1 < len(stops); i++ {
		cur, next := stops[i], stops[i+1]

		if !cur.HasLocation() || !next.HasLocation() {
			out = append(out, ValidationWarning{
				StopIndex: i,
				Severity:  SeverityError,
				Code:      CodeLocationMissing,
				Message:   "Location not set. Both this stop and the next stop need a location to estimate walking time.",
			})
			continue
		}

		walk := WalkingTimeSeconds(DistanceMeters(cur.Location.Point, next.Location.Point))
		minRecommended := int(math.Floor(float64(walk) * RecommendedAudioRatio))

		audio := cur.ActiveAudio()
		total := 0
		for _, m := range audio {
			total += m.DurationSeconds
		}

		if len(audio) == 0 {
			out = append(out, ValidationWarning{
				StopIndex: i,
				Severity:  SeverityError,
				Code:      CodeAudioMissing,
				Message:   "At least one audio file is required.",
			})
		}
		if total < minRecommended {
			out = append(out, ValidationWarning{
				StopIndex: i,
				Severity:  SeverityWarning,
				Code:      CodeAudioInsufficient,
				Message: fmt.Sprintf(
					"Insufficient audio duration. Walking to the next stop takes about %s; recommended at least %s, current %s.",
					FormatDuration(walk), FormatDuration(minRecommended), FormatDuration(total),
				),
			})
		}
	}
	return out
}

// HasErrors reports whether any warning has error severity.
func HasErrors(ws []ValidationWarning) bool {
	for _, w := range ws {
		if w.Severity == SeverityError {
			return true
		}
	}
	return false
}

// GateResult is the outcome of SubmitGate. OK is the contract; Reasons are informational.
type GateResult struct {
	OK      bool     `json:"ok"`
	Reasons []string `json:"reasons,omitempty"`
}

// SubmitGate is the hard submission rule: at least MinimumStops stops, every stop located,
// and every stop (including the last) carrying at least one non-deleted audio item.
func SubmitGate(stops []Stop) GateResult {
	var reasons []string
	if len(stops) < MinimumStops {
		reasons = append(reasons, fmt.Sprintf("at least %d stops are required", MinimumStops))
	}
	for i, s := range stops {
		if !s.HasLocation() {
			reasons = append(reasons, fmt.Sprintf("stop %d has no location", i+1))
		}
		if !s.HasAudio() {
			reasons = append(reasons, fmt.Sprintf("stop %d has no audio", i+1))
		}
	}
	return GateResult{OK: len(reasons) == 0, Reasons: reasons}
}
