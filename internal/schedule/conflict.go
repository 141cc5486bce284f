package schedule

import (
	"context"
	"fmt"
	"time"

	"practice-management-api/internal/model"
)

// AppointmentFinder looks up persisted appointments overlapping an interval.
// Cancelled appointments are excluded by the store query.
type AppointmentFinder interface {
	FindOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]model.Appointment, error)
}

// Checker decides whether a candidate [start,end) interval double-books the
// practitioner's single calendar. It must run again at commit time, not only
// at suggestion time; the DB exclusion constraint backstops the remaining race.
type Checker struct {
	store AppointmentFinder
}

func NewChecker(store AppointmentFinder) *Checker {
	return &Checker{store: store}
}

// HasConflict reports overlap under half-open semantics:
// existing.start < end && existing.end > start. excludeID lets a reschedule
// ignore the appointment being moved.
func (c *Checker) HasConflict(ctx context.Context, start, end time.Time, excludeID string) (bool, error) {
	existing, err := c.store.FindOverlapping(ctx, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("schedule: overlap lookup: %w", err)
	}
	return len(existing) > 0, nil
}
