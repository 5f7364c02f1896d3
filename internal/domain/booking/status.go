package booking

import "fmt"

// Status represents the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"

	// StatusCheckedOut is a legacy terminal label that may still be stored on
	// old rows. It is read as terminal and never produced.
	StatusCheckedOut Status = "checked_out"
)

// ParseStatus converts a stored or query-string value into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCompleted, StatusCancelled, StatusCheckedOut:
		return st, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", s)
	}
}

// IsTerminal reports whether no further lifecycle edge leaves s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusCheckedOut:
		return true
	default:
		return false
	}
}

// IsFinished reports whether the stay ended normally.
func (s Status) IsFinished() bool {
	return s == StatusCompleted || s == StatusCheckedOut
}
