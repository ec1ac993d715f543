package feed

import (
	"math"
	"time"
)

// Reconnect backoff parameters.
const (
	BaseDelay    = 1500 * time.Millisecond
	GrowthFactor = 1.5
	MaxDelay     = 30 * time.Second
)

// Delay returns the reconnect delay after attempt consecutive failures:
// min(BaseDelay * GrowthFactor^attempt, MaxDelay).
func Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(BaseDelay) * math.Pow(GrowthFactor, float64(attempt))
	if d >= float64(MaxDelay) || math.IsInf(d, 1) {
		return MaxDelay
	}
	return time.Duration(d)
}
