package schedule

import (
	"fmt"
	"time"

	"practice-management-api/internal/model"
)

// ValidationError rejects a malformed request before any store access.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid booking: " + e.Reason
}

// ConflictError rejects a candidate interval that overlaps an existing
// non-cancelled appointment. Never auto-shifted.
type ConflictError struct {
	Start time.Time
	End   time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s-%s conflicts with an existing appointment",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// UnavailableSlotError rejects a candidate interval outside resolved
// availability. Distinct from ConflictError so callers can message
// "outside working hours" vs "already booked".
type UnavailableSlotError struct {
	Start time.Time
	End   time.Time
}

func (e *UnavailableSlotError) Error() string {
	return fmt.Sprintf("slot %s-%s is outside bookable hours",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// NotFoundError reports a missing appointment, series or client.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// PartialSeriesFailure reports a series request whose every instance was
// skipped; nothing was committed.
type PartialSeriesFailure struct {
	Skipped []model.Slot
}

func (e *PartialSeriesFailure) Error() string {
	return fmt.Sprintf("%d series instance(s) skipped due to conflicts", len(e.Skipped))
}
