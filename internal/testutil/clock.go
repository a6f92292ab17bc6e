// AngelaMos | 2026
// clock.go

package testutil

import "time"

// Now returns the current UTC time truncated to microseconds, which
// round-trips through both postgres and sqlite unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
