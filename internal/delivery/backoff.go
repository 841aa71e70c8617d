package delivery

import "time"

// ExponentialBackoff spaces retries at 2^retryCount minutes after the last
// attempt (2m, 4m, 8m for counts 1, 2, 3).
type ExponentialBackoff struct{}

// NewExponentialBackoff returns the standard retry spacing policy.
func NewExponentialBackoff() ExponentialBackoff {
	return ExponentialBackoff{}
}

// NextAttemptAt returns the earliest time the next attempt is allowed.
func (ExponentialBackoff) NextAttemptAt(lastAttempt time.Time, retryCount int) time.Time {
	if retryCount < 0 {
		retryCount = 0
	}
	return lastAttempt.Add(time.Duration(1<<uint(retryCount)) * time.Minute)
}
