package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"practice-management-api/internal/model"
)

// AvailabilityStore is the read side of the layered availability model.
type AvailabilityStore interface {
	GetWeeklyTemplate(ctx context.Context) ([]model.WeeklyAvailabilityBlock, error)
	GetOverridesForRange(ctx context.Context, from, to time.Time) ([]model.DateAvailabilityOverride, error)
}

// Resolver produces the effective bookable intervals for a date by applying
// override-then-template precedence: any override rows for a date replace the
// weekly template wholesale; a closed sentinel empties the day.
type Resolver struct {
	store AvailabilityStore
}

func NewResolver(store AvailabilityStore) *Resolver {
	return &Resolver{store: store}
}

// DayAvailability is the resolved open slots of one calendar day.
type DayAvailability struct {
	Date  time.Time
	Slots []model.Slot
}

// ResolveDay returns the ordered bookable slots for the day containing date.
func (r *Resolver) ResolveDay(ctx context.Context, date time.Time) ([]model.Slot, error) {
	day := model.DayOf(date)
	days, err := r.ResolveRange(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, nil
	}
	return days[0].Slots, nil
}

// ResolveRange resolves every day in [from,to). Days resolve independently;
// overlapping advertised blocks within a day are not merged.
func (r *Resolver) ResolveRange(ctx context.Context, from, to time.Time) ([]DayAvailability, error) {
	from = model.DayOf(from)
	to = model.DayOf(to)
	if !to.After(from) {
		return nil, nil
	}

	template, err := r.store.GetWeeklyTemplate(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule: load weekly template: %w", err)
	}
	overrides, err := r.store.GetOverridesForRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("schedule: load overrides: %w", err)
	}

	byDay := make(map[string][]model.DateAvailabilityOverride)
	for _, o := range overrides {
		key := model.DayOf(o.Date).Format(time.DateOnly)
		byDay[key] = append(byDay[key], o)
	}

	var out []DayAvailability
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		out = append(out, DayAvailability{
			Date:  day,
			Slots: resolveOne(day, byDay[day.Format(time.DateOnly)], template),
		})
	}
	return out, nil
}

func resolveOne(day time.Time, overrides []model.DateAvailabilityOverride, template []model.WeeklyAvailabilityBlock) []model.Slot {
	if len(overrides) > 0 {
		var slots []model.Slot
		for _, o := range overrides {
			if o.Closed() {
				// closed sentinel wins over sibling rows and template
				return nil
			}
			slots = append(slots, model.Slot{Start: o.StartTime.At(day), End: o.EndTime.At(day)})
		}
		sortSlots(slots)
		return slots
	}

	weekday := model.BusinessWeekdayOf(day)
	var slots []model.Slot
	for _, b := range template {
		if !b.IsActive || b.Weekday != weekday {
			continue
		}
		slots = append(slots, model.Slot{Start: b.StartTime.At(day), End: b.EndTime.At(day)})
	}
	sortSlots(slots)
	return slots
}

func sortSlots(slots []model.Slot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
}

// Bookable reports whether [start,end) fits entirely inside one resolved slot
// of its day. Intervals spanning midnight are never bookable.
func (r *Resolver) Bookable(ctx context.Context, start, end time.Time) (bool, error) {
	slots, err := r.ResolveDay(ctx, start)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.Contains(start, end) {
			return true, nil
		}
	}
	return false, nil
}
