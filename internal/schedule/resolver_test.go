package schedule

import (
	"context"
	"testing"
	"time"

	"practice-management-api/internal/model"
)

type fakeAvailability struct {
	template  []model.WeeklyAvailabilityBlock
	overrides []model.DateAvailabilityOverride
}

func (f *fakeAvailability) GetWeeklyTemplate(ctx context.Context) ([]model.WeeklyAvailabilityBlock, error) {
	return f.template, nil
}

func (f *fakeAvailability) GetOverridesForRange(ctx context.Context, from, to time.Time) ([]model.DateAvailabilityOverride, error) {
	var out []model.DateAvailabilityOverride
	for _, o := range f.overrides {
		if !o.Date.Before(from) && o.Date.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func clock(s string) model.MinuteOfDay {
	m, err := model.ParseMinuteOfDay(s)
	if err != nil {
		panic(err)
	}
	return m
}

func clockPtr(s string) *model.MinuteOfDay {
	m := clock(s)
	return &m
}

// Monday 2024-06-03.
var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func weekdayTemplate() []model.WeeklyAvailabilityBlock {
	return []model.WeeklyAvailabilityBlock{
		{ID: "mon-am", Weekday: model.Monday, StartTime: clock("09:00"), EndTime: clock("12:00"), IsActive: true},
		{ID: "mon-pm", Weekday: model.Monday, StartTime: clock("13:00"), EndTime: clock("17:00"), IsActive: true},
		{ID: "tue", Weekday: model.Tuesday, StartTime: clock("09:00"), EndTime: clock("17:00"), IsActive: true},
		{ID: "off", Weekday: model.Wednesday, StartTime: clock("09:00"), EndTime: clock("17:00"), IsActive: false},
	}
}

func TestResolveDayTemplateFallback(t *testing.T) {
	r := NewResolver(&fakeAvailability{template: weekdayTemplate()})

	slots, err := r.ResolveDay(context.Background(), monday)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(monday.Add(9 * time.Hour)) {
		t.Errorf("first slot starts %s", slots[0].Start)
	}
	if !slots[1].End.Equal(monday.Add(17 * time.Hour)) {
		t.Errorf("second slot ends %s", slots[1].End)
	}
}

func TestResolveDayInactiveBlocksIgnored(t *testing.T) {
	r := NewResolver(&fakeAvailability{template: weekdayTemplate()})

	wednesday := monday.AddDate(0, 0, 2)
	slots, err := r.ResolveDay(context.Background(), wednesday)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("inactive template day should yield no slots, got %d", len(slots))
	}
}

func TestResolveDayOverrideReplacesTemplate(t *testing.T) {
	r := NewResolver(&fakeAvailability{
		template: weekdayTemplate(),
		overrides: []model.DateAvailabilityOverride{
			{ID: "o1", Date: monday, StartTime: clockPtr("10:00"), EndTime: clockPtr("14:00")},
		},
	})

	slots, err := r.ResolveDay(context.Background(), monday)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// the override replaces the whole template day, not just the morning block
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Start.Equal(monday.Add(10*time.Hour)) || !slots[0].End.Equal(monday.Add(14*time.Hour)) {
		t.Errorf("got slot %s-%s", slots[0].Start, slots[0].End)
	}
}

func TestResolveDayClosedSentinelWins(t *testing.T) {
	r := NewResolver(&fakeAvailability{
		template: weekdayTemplate(),
		overrides: []model.DateAvailabilityOverride{
			{ID: "open", Date: monday, StartTime: clockPtr("10:00"), EndTime: clockPtr("14:00")},
			{ID: "closed", Date: monday},
		},
	})

	slots, err := r.ResolveDay(context.Background(), monday)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("closed sentinel must empty the day, got %d slots", len(slots))
	}
}

func TestResolveRangeIsolatesDays(t *testing.T) {
	r := NewResolver(&fakeAvailability{
		template: weekdayTemplate(),
		overrides: []model.DateAvailabilityOverride{
			{ID: "closed", Date: monday},
		},
	})

	days, err := r.ResolveRange(context.Background(), monday, monday.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("resolve range: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if len(days[0].Slots) != 0 {
		t.Error("monday should be closed by override")
	}
	if len(days[1].Slots) != 1 {
		t.Errorf("tuesday should fall back to template, got %d slots", len(days[1].Slots))
	}
	if len(days[2].Slots) != 0 {
		t.Error("wednesday inactive block should yield nothing")
	}
}

func TestBookable(t *testing.T) {
	r := NewResolver(&fakeAvailability{template: weekdayTemplate()})

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside morning block", monday.Add(10 * time.Hour), monday.Add(11 * time.Hour), true},
		{"exact block", monday.Add(9 * time.Hour), monday.Add(12 * time.Hour), true},
		{"spans the lunch gap", monday.Add(11 * time.Hour), monday.Add(14 * time.Hour), false},
		{"before opening", monday.Add(8 * time.Hour), monday.Add(9 * time.Hour), false},
		{"past closing", monday.Add(16 * time.Hour), monday.Add(18 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := r.Bookable(context.Background(), tt.start, tt.end)
			if err != nil {
				t.Fatalf("bookable: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Bookable = %v, want %v", ok, tt.want)
			}
		})
	}
}
