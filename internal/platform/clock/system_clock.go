package clock

import "time"

// SystemClock returns the current wall-clock time in UTC. Session timestamps and tour
// created/updated times come from here in production.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
