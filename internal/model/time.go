package model

import (
	"fmt"
	"time"
)

// BusinessWeekday is a weekday under the business convention Monday=0..Sunday=6.
// time.Weekday (Sunday=0) never crosses a package boundary in this codebase;
// convert once with BusinessWeekdayOf and use this type everywhere.
type BusinessWeekday int

const (
	Monday BusinessWeekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// BusinessWeekdayOf is the single conversion from time.Time.
func BusinessWeekdayOf(t time.Time) BusinessWeekday {
	return BusinessWeekday((int(t.Weekday()) + 6) % 7)
}

func (d BusinessWeekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d BusinessWeekday) String() string {
	names := [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	if !d.Valid() {
		return fmt.Sprintf("BusinessWeekday(%d)", int(d))
	}
	return names[d]
}

// MinuteOfDay is a clock time within a day, stored as minutes since midnight.
// Template blocks and overrides carry these instead of absolute timestamps.
type MinuteOfDay int

// ParseMinuteOfDay parses "HH:MM".
func ParseMinuteOfDay(s string) (MinuteOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("model: parse clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("model: clock %q out of range", s)
	}
	return MinuteOfDay(h*60 + m), nil
}

func (m MinuteOfDay) Valid() bool {
	return m >= 0 && m < 24*60
}

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// At anchors the clock time on the calendar day of date, in date's location.
func (m MinuteOfDay) At(date time.Time) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, int(m)/60, int(m)%60, 0, 0, date.Location())
}

// MinuteOfDayAt extracts the clock time of an absolute timestamp.
func MinuteOfDayAt(t time.Time) MinuteOfDay {
	return MinuteOfDay(t.Hour()*60 + t.Minute())
}

// DayOf strips the time-of-day, keeping the location.
func DayOf(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
