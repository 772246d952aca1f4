package domain

import (
	"fmt"
	"math"
)

const (
	// PricePerMinute is the tour price per minute of audio, in LKR.
	PricePerMinute = 500.0
	// MinimumPrice is the floor applied to short or empty tours, in LKR.
	MinimumPrice = 1000.0
)

// Quote is the derived pricing state of a stop list.
type Quote struct {
	TotalAudioSeconds int     `json:"total_audio_seconds"`
	DurationMinutes   int     `json:"duration_minutes"`
	Price             float64 `json:"price"`
}

// TotalAudioSeconds sums duration_seconds over all non-deleted audio media across all stops.
func TotalAudioSeconds(stops []Stop) int {
	total := 0
	for _, s := range stops {
		total += s.AudioSeconds()
	}
	return total
}

// Price converts total audio seconds into a tour price, floored at MinimumPrice.
func Price(totalAudioSeconds int) float64 {
	p := float64(totalAudioSeconds) / 60 * PricePerMinute
	p = math.Round(p*100) / 100
	return math.Max(p, MinimumPrice)
}

// DurationMinutes rounds total audio seconds up to whole minutes.
func DurationMinutes(totalAudioSeconds int) int {
	if totalAudioSeconds <= 0 {
		return 0
	}
	return (totalAudioSeconds + 59) / 60
}

func QuoteFor(stops []Stop) Quote {
	secs := TotalAudioSeconds(stops)
	return Quote{
		TotalAudioSeconds: secs,
		DurationMinutes:   DurationMinutes(secs),
		Price:             Price(secs),
	}
}

// FormatDuration renders seconds as "20m 28s" ("45s" below one minute).
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	m, s := seconds/60, seconds%60
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}
