package followup

import (
	"errors"
	"time"
)

// Status classifies a follow-up relative to an injected reference day.
type Status string

const (
	StatusOverdue  Status = "overdue"
	StatusDueSoon  Status = "due-soon"
	StatusUpcoming Status = "upcoming"
)

// ErrInvalidCadence means the configured follow-up interval is zero or
// negative. It is a configuration error and is surfaced, never silently
// replaced with a default.
var ErrInvalidCadence = errors.New("follow-up cadence must be a positive number of days")

// dateOnly truncates a timestamp to its calendar day, normalized to UTC
// midnight so comparisons are date-granular regardless of the wall clock.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextFollowUpDate returns the due date cadenceDays after the last event.
// Pure date arithmetic: recomputing from the same inputs always yields the
// same date, no matter when the call happens.
func NextFollowUpDate(lastEvent time.Time, cadenceDays int) (time.Time, error) {
	if cadenceDays <= 0 {
		return time.Time{}, ErrInvalidCadence
	}
	return dateOnly(lastEvent).AddDate(0, 0, cadenceDays), nil
}

// Classify buckets a due date against an injected "today". The caller
// supplies the reference day; this function never reads the system clock.
// A due date earlier than today is overdue; today through today+window is
// due-soon; later is upcoming.
func Classify(dueDate, today time.Time, warningWindowDays int) Status {
	due := dateOnly(dueDate)
	ref := dateOnly(today)

	switch {
	case due.Before(ref):
		return StatusOverdue
	case !due.After(ref.AddDate(0, 0, warningWindowDays)):
		return StatusDueSoon
	default:
		return StatusUpcoming
	}
}

// DaysUntil returns the whole days from today to the due date, negative
// when the due date has passed. Both ends are date-truncated first.
func DaysUntil(dueDate, today time.Time) int {
	return int(dateOnly(dueDate).Sub(dateOnly(today)).Hours() / 24)
}
