package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"practice-management-api/internal/model"
)

// GetWeeklyTemplate returns every template block, active or not, ordered by
// weekday then start time.
func (s *Store) GetWeeklyTemplate(ctx context.Context) ([]model.WeeklyAvailabilityBlock, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, weekday, start_minute, end_minute, is_active
		 FROM weekly_availability_blocks
		 ORDER BY weekday, start_minute`)
	if err != nil {
		return nil, fmt.Errorf("store: weekly template: %w", err)
	}
	defer rows.Close()

	var out []model.WeeklyAvailabilityBlock
	for rows.Next() {
		var b model.WeeklyAvailabilityBlock
		if err := rows.Scan(&b.ID, &b.Weekday, &b.StartTime, &b.EndTime, &b.IsActive); err != nil {
			return nil, fmt.Errorf("store: scan weekly block: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertWeeklyBlock inserts or updates a single template block.
func (s *Store) UpsertWeeklyBlock(ctx context.Context, b *model.WeeklyAvailabilityBlock) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO weekly_availability_blocks (id, weekday, start_minute, end_minute, is_active)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE
		 SET weekday=$2, start_minute=$3, end_minute=$4, is_active=$5`,
		b.ID, b.Weekday, b.StartTime, b.EndTime, b.IsActive)
	if err != nil {
		return fmt.Errorf("store: upsert weekly block: %w", err)
	}
	return nil
}

// ReplaceWeeklyTemplate swaps the whole template in one transaction.
func (s *Store) ReplaceWeeklyTemplate(ctx context.Context, blocks []model.WeeklyAvailabilityBlock) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM weekly_availability_blocks`); err != nil {
		return fmt.Errorf("store: clear weekly template: %w", err)
	}
	for i := range blocks {
		b := &blocks[i]
		if b.ID == "" {
			b.ID = uuid.New().String()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO weekly_availability_blocks (id, weekday, start_minute, end_minute, is_active)
			 VALUES ($1,$2,$3,$4,$5)`,
			b.ID, b.Weekday, b.StartTime, b.EndTime, b.IsActive); err != nil {
			return fmt.Errorf("store: insert weekly block: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// GetOverridesForRange returns override rows for days in [from,to).
// Closed-sentinel rows carry NULL minutes.
func (s *Store) GetOverridesForRange(ctx context.Context, from, to time.Time) ([]model.DateAvailabilityOverride, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, date, start_minute, end_minute
		 FROM date_availability_overrides
		 WHERE date >= $1 AND date < $2
		 ORDER BY date, start_minute NULLS FIRST`, from, to)
	if err != nil {
		return nil, fmt.Errorf("store: overrides for range: %w", err)
	}
	defer rows.Close()

	var out []model.DateAvailabilityOverride
	for rows.Next() {
		var o model.DateAvailabilityOverride
		if err := rows.Scan(&o.ID, &o.Date, &o.StartTime, &o.EndTime); err != nil {
			return nil, fmt.Errorf("store: scan override: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpsertOverride replaces every override row of the given day with the given
// rows. Passing a single closed-sentinel row closes the day; passing none
// clears the day back to the weekly template.
func (s *Store) UpsertOverride(ctx context.Context, date time.Time, overrides []model.DateAvailabilityOverride) error {
	day := model.DayOf(date)
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM date_availability_overrides WHERE date = $1`, day); err != nil {
		return fmt.Errorf("store: clear overrides: %w", err)
	}
	for i := range overrides {
		o := &overrides[i]
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO date_availability_overrides (id, date, start_minute, end_minute)
			 VALUES ($1,$2,$3,$4)`,
			o.ID, day, o.StartTime, o.EndTime); err != nil {
			return fmt.Errorf("store: insert override: %w", err)
		}
	}
	return tx.Commit(ctx)
}
