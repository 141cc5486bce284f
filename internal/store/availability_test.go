package store

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"practice-management-api/internal/model"
)

func TestGetWeeklyTemplate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	st := New(mock)

	mock.ExpectQuery("FROM weekly_availability_blocks").
		WillReturnRows(pgxmock.NewRows([]string{"id", "weekday", "start_minute", "end_minute", "is_active"}).
			AddRow("b1", model.Monday, model.MinuteOfDay(540), model.MinuteOfDay(1020), true).
			AddRow("b2", model.Tuesday, model.MinuteOfDay(600), model.MinuteOfDay(960), false))

	blocks, err := st.GetWeeklyTemplate(context.Background())
	if err != nil {
		t.Fatalf("weekly template: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Weekday != model.Monday || blocks[0].StartTime.String() != "09:00" {
		t.Errorf("first block: %+v", blocks[0])
	}
	if blocks[1].IsActive {
		t.Error("second block should be inactive")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOverridesForRangeScansSentinel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	st := New(mock)

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	open := model.MinuteOfDay(600)
	until := model.MinuteOfDay(840)

	mock.ExpectQuery("FROM date_availability_overrides").
		WithArgs(day, day.AddDate(0, 0, 1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "date", "start_minute", "end_minute"}).
			AddRow("o1", day, (*model.MinuteOfDay)(nil), (*model.MinuteOfDay)(nil)).
			AddRow("o2", day, &open, &until))

	overrides, err := st.GetOverridesForRange(context.Background(), day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if len(overrides) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(overrides))
	}
	if !overrides[0].Closed() {
		t.Error("null minutes should read as the closed sentinel")
	}
	if overrides[1].Closed() {
		t.Error("populated row must not read closed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertOverrideReplacesDay(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	st := New(mock)

	day := time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC) // time-of-day is stripped
	open := model.MinuteOfDay(600)
	until := model.MinuteOfDay(840)
	midnight := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM date_availability_overrides").
		WithArgs(midnight).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO date_availability_overrides").
		WithArgs("o1", midnight, &open, &until).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = st.UpsertOverride(context.Background(), day, []model.DateAvailabilityOverride{
		{ID: "o1", Date: day, StartTime: &open, EndTime: &until},
	})
	if err != nil {
		t.Fatalf("upsert override: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertOverrideEmptyClearsDay(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()
	st := New(mock)

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM date_availability_overrides").
		WithArgs(day).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	if err := st.UpsertOverride(context.Background(), day, nil); err != nil {
		t.Fatalf("upsert override: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
