// Package clock abstracts time.Now so campaign timing and rate limiting are
// deterministically testable.
package clock

import "time"

// Clock returns the current time. Components take a Clock instead of calling
// time.Now directly so tests can control elapsed time.
type Clock interface {
	Now() time.Time
}
