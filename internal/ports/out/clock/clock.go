package clock

import "time"

// Clock provides time to the application.
// Draft sessions and tour records take their timestamps from it, so tests can pin time
// via a controllable implementation.
type Clock interface {
	Now() time.Time
}
