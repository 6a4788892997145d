package utils

import (
	"math"
	"time"
)

// EpochTime converts collector epoch seconds into UTC; 0 maps to the zero time.
func EpochTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// SecondsDuration converts fractional seconds into a Duration.
func SecondsDuration(seconds float64) time.Duration {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
