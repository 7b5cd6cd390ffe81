package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/cache"
	"github.com/PetoAdam/homenavi/weather-sync/internal/forecast"
	"github.com/PetoAdam/homenavi/weather-sync/internal/observability"
	"github.com/PetoAdam/homenavi/weather-sync/internal/owm"
	"github.com/PetoAdam/homenavi/weather-sync/internal/store"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type Fetcher interface {
	FetchDaily(ctx context.Context, q owm.Query) ([]byte, error)
}

// Syncer runs one fetch, parse and store cycle at a time. Callers that arrive
// while a cycle is running wait for it and then run their own.
type Syncer struct {
	Fetcher Fetcher
	Parser  *forecast.Parser
	Repo    *store.Repo
	Query   owm.Query
	Cache   *cache.Cache
	Tracer  oteltrace.Tracer
	Now     func() time.Time

	mu sync.Mutex
}

func (s *Syncer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Syncer) tracer() oteltrace.Tracer {
	if s.Tracer != nil {
		return s.Tracer
	}
	return otel.Tracer("weather-sync/ingest")
}

func (s *Syncer) SyncNow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer().Start(ctx, "forecast.sync")
	defer span.End()

	started := s.now()
	run := &store.SyncRun{StartedAt: started.UTC()}
	entries, raw, err := s.sync(ctx, started)
	run.Entries = len(entries)
	run.Outcome = outcomeOf(err)
	if err != nil {
		run.Error = err.Error()
	}
	if len(raw) > 0 && json.Valid(raw) {
		run.Payload = raw
	}
	if recErr := s.Repo.RecordRun(ctx, run); recErr != nil {
		slog.Warn("sync run not recorded", "error", recErr)
	}

	observability.SyncRuns.WithLabelValues(run.Outcome).Inc()
	span.SetAttributes(attribute.String("sync.outcome", run.Outcome), attribute.Int("sync.entries", run.Entries))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, run.Outcome)
		slog.Error("forecast sync failed", "outcome", run.Outcome, "error", err)
		return err
	}
	slog.Info("forecast sync complete", "entries", run.Entries, "took", s.now().Sub(started))
	return nil
}

func (s *Syncer) sync(ctx context.Context, now time.Time) ([]forecast.Entry, []byte, error) {
	raw, err := s.Fetcher.FetchDaily(ctx, s.Query)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.Parser.Parse(ctx, raw, forecast.NormalizedUTCToday(now))
	if err != nil {
		return nil, raw, err
	}
	if err := s.Repo.ReplaceForecast(ctx, entries); err != nil {
		return nil, raw, &storeError{err: err}
	}
	if s.Cache != nil {
		s.Cache.Invalidate()
	}
	return entries, raw, nil
}

// Initialize syncs once when nothing is stored yet, or always when force is set.
func (s *Syncer) Initialize(ctx context.Context, force bool) error {
	n, err := s.Repo.CountForecast(ctx)
	if err != nil {
		return err
	}
	if n > 0 && !force {
		slog.Info("forecast present, skipping startup sync", "entries", n)
		return nil
	}
	return s.SyncNow(ctx)
}

type storeError struct{ err error }

func (e *storeError) Error() string { return "storing forecast: " + e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func outcomeOf(err error) string {
	var se *storeError
	switch {
	case err == nil:
		return store.OutcomeOK
	case errors.Is(err, forecast.ErrProviderError):
		return store.OutcomeProviderError
	case errors.Is(err, forecast.ErrMalformedPayload):
		return store.OutcomeMalformed
	case errors.As(err, &se):
		return store.OutcomeStoreFailed
	default:
		return store.OutcomeFetchFailed
	}
}
