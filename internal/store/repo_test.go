package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/forecast"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	// Use a unique in-memory DB per test to avoid cross-test contamination.
	dsn := "file:store_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := New(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func days(start int64, n int) []forecast.Entry {
	out := make([]forecast.Entry, n)
	for i := range out {
		out[i] = forecast.Entry{
			Date:          start + int64(i)*forecast.DayInMillis,
			Humidity:      40 + i,
			Pressure:      1000 + float64(i),
			High:          20 + float64(i),
			Low:           10,
			ConditionCode: 800 + i,
		}
	}
	return out
}

func TestReplaceForecastSwapsWholeBatch(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC).UnixMilli()

	if err := repo.ReplaceForecast(ctx, days(base-3*forecast.DayInMillis, 7)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := repo.ReplaceForecast(ctx, days(base, 3)); err != nil {
		t.Fatalf("replace: %v", err)
	}

	n, err := repo.CountForecast(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 stored entries, got %d", n)
	}

	got, err := repo.ListForecast(ctx, base+forecast.DayInMillis)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries from tomorrow, got %d", len(got))
	}
	if got[0].Date != base+forecast.DayInMillis || got[0].ConditionCode != 801 || got[0].Humidity != 41 {
		t.Fatalf("unexpected first entry %+v", got[0])
	}
}

func TestReplaceForecastRollsBackOnDuplicateDates(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC).UnixMilli()
	if err := repo.ReplaceForecast(ctx, days(base, 2)); err != nil {
		t.Fatalf("replace: %v", err)
	}

	dup := days(base, 2)
	dup[1].Date = dup[0].Date
	if err := repo.ReplaceForecast(ctx, dup); err == nil {
		t.Fatalf("expected primary key violation")
	}
	n, _ := repo.CountForecast(ctx)
	if n != 2 {
		t.Fatalf("expected previous forecast to survive, got %d rows", n)
	}
}

func TestLocationUpsert(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	loc, err := repo.Location(ctx)
	if err != nil || loc != nil {
		t.Fatalf("expected no location yet, got %v %v", loc, err)
	}
	if err := repo.SetLocation(ctx, 47.5, 19.04); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.SetLocation(ctx, 37.4, -122.1); err != nil {
		t.Fatalf("set: %v", err)
	}
	loc, err = repo.Location(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loc.Lat != 37.4 || loc.Lon != -122.1 {
		t.Fatalf("unexpected location %+v", loc)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)

	for i, outcome := range []string{OutcomeOK, OutcomeProviderError, OutcomeOK} {
		run := &SyncRun{StartedAt: base.Add(time.Duration(i) * time.Hour), Outcome: outcome}
		if outcome == OutcomeOK {
			run.Payload = []byte(`{"cod":"200"}`)
		}
		if err := repo.RecordRun(ctx, run); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	runs, err := repo.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if !runs[0].StartedAt.Equal(base.Add(2*time.Hour)) || runs[1].Outcome != OutcomeProviderError {
		t.Fatalf("unexpected order: %+v", runs)
	}
}
