package domain

import (
	"errors"
	"time"
)

var ErrInvalidInterval = errors.New("start time must be before end time")

// Interval is a half-open span [Start, End) of UTC instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval normalizes both instants and rejects empty or inverted spans.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: NormalizeTime(start), End: NormalizeTime(end)}
	if !iv.Start.Before(iv.End) {
		return Interval{}, ErrInvalidInterval
	}
	return iv, nil
}

// NormalizeTime converts t to UTC at the storage precision (microseconds).
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Overlaps reports whether an existing interval collides with a candidate.
// Touching endpoints do not collide.
func Overlaps(existingStart, existingEnd, candidateStart, candidateEnd time.Time) bool {
	return existingStart.Before(candidateEnd) && existingEnd.After(candidateStart)
}
