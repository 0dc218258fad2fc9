package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/devotional/internal/constants"
)

// Clock supplies the current time. Components take a Clock so tests can pin "now".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// TimeOfDay is a wall-clock slot such as 06:00.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses a time string in the standard format (HH:MM).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(constants.TimeFormat, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustTimeOfDay is ParseTimeOfDay for compile-time constants
func MustTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// On returns the slot on the calendar day of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// NextOccurrence returns the first instant strictly after now whose local
// wall-clock equals tod. If today's slot has passed or is exactly now, the
// result is tomorrow's slot.
func NextOccurrence(now time.Time, tod TimeOfDay) time.Time {
	candidate := tod.On(now)
	if !candidate.After(now) {
		next := now.AddDate(0, 0, 1)
		candidate = tod.On(next)
	}
	return candidate
}

// Today returns the calendar date string (YYYY-MM-DD) of now.
func Today(now time.Time) string {
	return now.Format(constants.DateFormat)
}
