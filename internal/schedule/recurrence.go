package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"practice-management-api/internal/model"
)

// Span bounds series expansion: either an end date (inclusive of instances
// starting before or on it) or a total instance count, whichever is set.
type Span struct {
	Until time.Time
	Count int
}

func (s Span) valid() bool {
	return s.Count > 0 || !s.Until.IsZero()
}

// Instance is one candidate interval of an expanded series. Conflicting
// instances are flagged, never silently dropped; the lifecycle manager
// decides policy.
type Instance struct {
	Start    time.Time
	End      time.Time
	Conflict bool
}

// Expander generates the concrete instance set for a recurring booking.
type Expander struct {
	checker *Checker
}

func NewExpander(checker *Checker) *Expander {
	return &Expander{checker: checker}
}

// Expand steps from the seed interval by the recurrence type, preserving
// time-of-day and duration, and conflict-checks every candidate. If the seed
// itself conflicts the expansion is refused: a series missing its first
// element is worse than no series. All non-conflicting instances share the
// returned freshly minted series id.
func (e *Expander) Expand(ctx context.Context, start, end time.Time, rec model.RecurringType, span Span) ([]Instance, uuid.UUID, error) {
	if !end.After(start) {
		return nil, uuid.Nil, &ValidationError{Reason: "end must be after start"}
	}
	if !span.valid() {
		return nil, uuid.Nil, &ValidationError{Reason: "series span required"}
	}
	switch rec {
	case model.RecurringWeekly, model.RecurringBiweekly, model.RecurringMonthly:
	default:
		return nil, uuid.Nil, &ValidationError{Reason: "unknown recurrence type"}
	}

	duration := end.Sub(start)
	var out []Instance
	for i := 0; ; i++ {
		s := step(start, rec, i)
		if span.Count > 0 && i >= span.Count {
			break
		}
		if !span.Until.IsZero() && s.After(span.Until) {
			break
		}
		conflict, err := e.checker.HasConflict(ctx, s, s.Add(duration), "")
		if err != nil {
			return nil, uuid.Nil, err
		}
		if i == 0 && conflict {
			return nil, uuid.Nil, &ConflictError{Start: s, End: s.Add(duration)}
		}
		out = append(out, Instance{Start: s, End: s.Add(duration), Conflict: conflict})
	}

	return out, uuid.New(), nil
}

// step advances the seed by i recurrence intervals.
func step(seed time.Time, rec model.RecurringType, i int) time.Time {
	switch rec {
	case model.RecurringWeekly:
		return seed.AddDate(0, 0, 7*i)
	case model.RecurringBiweekly:
		return seed.AddDate(0, 0, 14*i)
	default:
		return addMonthsClamped(seed, i)
	}
}

// addMonthsClamped lands on the same day-of-month i months later, clamped to
// the target month's last day. time.AddDate would normalize Jan 31 + 1 month
// into March, which silently skips February.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(firstOfTarget.Year(), firstOfTarget.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
