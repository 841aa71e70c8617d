package delivery

import (
	"testing"
	"time"
)

func TestNextAttemptAtDoubles(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := NewExponentialBackoff()

	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
	}
	for _, tc := range cases {
		got := policy.NextAttemptAt(base, tc.retryCount)
		if got.Sub(base) != tc.want {
			t.Fatalf("retryCount %d: expected +%s, got +%s", tc.retryCount, tc.want, got.Sub(base))
		}
	}
}

func TestNextAttemptAtIsMonotonic(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := NewExponentialBackoff()

	previous := policy.NextAttemptAt(base, 0)
	for count := 1; count < 10; count++ {
		next := policy.NextAttemptAt(base, count)
		if !next.After(previous) {
			t.Fatalf("expected strictly increasing delays, got %s then %s", previous, next)
		}
		previous = next
	}
}

func TestNextAttemptAtClampsNegativeCount(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := NewExponentialBackoff()

	if got := policy.NextAttemptAt(base, -3); got.Sub(base) != time.Minute {
		t.Fatalf("expected 1m for negative count, got %s", got.Sub(base))
	}
}
