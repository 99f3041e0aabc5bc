package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	// ErrValidation is the base error for rejected task fields.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidDate is returned when a date string cannot be parsed.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
)

// ValidationError describes a rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TruncateDay returns midnight UTC of t's UTC calendar date.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the UTC calendar date of now.
func Today(now time.Time) time.Time {
	return TruncateDay(now)
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns that calendar date at
// UTC midnight. An RFC 3339 value keeps the date written in its own offset.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// FormatDate renders the UTC calendar date of t.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// IsExpired is the single expiry predicate. The boundary is exclusive: a task
// due today is not expired. Completed and already-Expired tasks never match.
func IsExpired(deadline time.Time, status Status, today time.Time) bool {
	if status == StatusCompleted || status == StatusExpired {
		return false
	}
	return TruncateDay(deadline).Before(TruncateDay(today))
}

// DerivedStatus returns the status a task shows on the given day without
// mutating it.
func DerivedStatus(t *Task, today time.Time) Status {
	if IsExpired(t.Deadline, t.Status, today) {
		return StatusExpired
	}
	return t.Status
}

// Fields are the user-editable values of a task after merging an edit.
type Fields struct {
	Details   string
	Priority  Priority
	Status    Status
	Deadline  time.Time
	StartTime *time.Time
	Hours     int
}

// Validate checks the merged fields. Status must already be resolved.
func Validate(f Fields) error {
	if strings.TrimSpace(f.Details) == "" {
		return &ValidationError{Field: "details", Message: "Please enter task details"}
	}
	if f.Hours <= 0 {
		return &ValidationError{Field: "hours", Message: "hours must be a positive integer"}
	}
	if f.Deadline.IsZero() {
		return &ValidationError{Field: "deadline", Message: "deadline is required"}
	}
	if f.StartTime != nil && TruncateDay(*f.StartTime).After(TruncateDay(f.Deadline)) {
		return &ValidationError{Field: "startTime", Message: "start date cannot be later than the deadline"}
	}
	if f.Status == StatusInProgress && f.StartTime == nil {
		return &ValidationError{Field: "startTime", Message: "start date is required once a task is in progress"}
	}
	return nil
}

// ResolveStatus computes the stored status after an edit. requested is nil when
// the edit leaves status alone. An Expired task is revived only when the
// deadline is not in the past; an active status on a past deadline stays Expired.
func ResolveStatus(current Status, requested *Status, deadline, today time.Time) (Status, error) {
	past := TruncateDay(deadline).Before(TruncateDay(today))

	next := current
	if requested != nil {
		if *requested == StatusExpired {
			return "", &ValidationError{Field: "status", Message: "Expired is derived from the deadline and cannot be set"}
		}
		next = *requested
	} else if current == StatusExpired && !past {
		next = StatusPending
	}

	if next == StatusCompleted {
		return StatusCompleted, nil
	}
	if past {
		return StatusExpired, nil
	}
	return next, nil
}

// DisplayID renders a sequence number as a six digit identifier.
func DisplayID(seq int64) string {
	return fmt.Sprintf("%06d", seq)
}
