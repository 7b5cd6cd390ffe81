package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/cache"
	"github.com/PetoAdam/homenavi/weather-sync/internal/forecast"
	"github.com/PetoAdam/homenavi/weather-sync/internal/owm"
	"github.com/PetoAdam/homenavi/weather-sync/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openRepo(t *testing.T) *store.Repo {
	t.Helper()
	// Use a unique in-memory DB per test to avoid cross-test contamination.
	dsn := "file:ingest_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := store.New(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

type fakeFetcher struct {
	mu       sync.Mutex
	bodies   [][]byte
	err      error
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (f *fakeFetcher) FetchDaily(_ context.Context, _ owm.Query) ([]byte, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	body := f.bodies[0]
	if len(f.bodies) > 1 {
		f.bodies = f.bodies[1:]
	}
	return body, nil
}

type countingPublisher struct{ n atomic.Int32 }

func (p *countingPublisher) PublishSummary(context.Context, string, string, int) { p.n.Add(1) }

func dailyPayload(days int) []byte {
	var b strings.Builder
	b.WriteString(`{"cod":"200","city":{"coord":{"lat":47.5,"lon":19.04}},"list":[`)
	for i := 0; i < days; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"dt":%d,"pressure":1010,"humidity":60,"speed":2,"deg":90,"weather":[{"id":80%d}],"temp":{"max":%d,"min":5}}`, i, i%5, 15+i)
	}
	b.WriteString(`]}`)
	return []byte(b.String())
}

var fixedNow = time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)

func newSyncer(t *testing.T, f *fakeFetcher) (*Syncer, *store.Repo, *countingPublisher) {
	t.Helper()
	repo := openRepo(t)
	pub := &countingPublisher{}
	var tick atomic.Int64
	s := &Syncer{
		Fetcher: f,
		Parser:  &forecast.Parser{Locations: repo, Publisher: pub, Metric: true},
		Repo:    repo,
		Cache:   cache.New(time.Minute),
		Now:     func() time.Time { return fixedNow.Add(time.Duration(tick.Add(1)) * time.Second) },
	}
	return s, repo, pub
}

func TestSyncNowStoresForecastAndRecordsRun(t *testing.T) {
	s, repo, pub := newSyncer(t, &fakeFetcher{bodies: [][]byte{dailyPayload(7)}})
	ctx := context.Background()
	s.Cache.Set(0, []forecast.Entry{{Date: 1}})

	if err := s.SyncNow(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	today := forecast.NormalizedUTCToday(fixedNow)
	entries, err := repo.ListForecast(ctx, today)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 7 || entries[0].Date != today || entries[6].High != 21 {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if _, ok := s.Cache.Get(0); ok {
		t.Fatalf("expected cache invalidated")
	}
	if pub.n.Load() != 1 {
		t.Fatalf("expected one summary publish, got %d", pub.n.Load())
	}
	loc, _ := repo.Location(ctx)
	if loc == nil || loc.Lat != 47.5 {
		t.Fatalf("expected stored location, got %+v", loc)
	}
	runs, _ := repo.ListRuns(ctx, 10)
	if len(runs) != 1 || runs[0].Outcome != store.OutcomeOK || runs[0].Entries != 7 || len(runs[0].Payload) == 0 {
		t.Fatalf("unexpected runs %+v", runs)
	}
}

func TestSyncNowFailuresKeepStoredForecast(t *testing.T) {
	cases := []struct {
		name    string
		body    []byte
		err     error
		outcome string
		is      error
	}{
		{"provider", []byte(`{"cod":"404","message":"city not found"}`), nil, store.OutcomeProviderError, forecast.ErrProviderError},
		{"malformed", []byte(`{"cod":"200","list":[]}`), nil, store.OutcomeMalformed, forecast.ErrMalformedPayload},
		{"network", nil, errors.New("dial tcp: connection refused"), store.OutcomeFetchFailed, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := &fakeFetcher{bodies: [][]byte{dailyPayload(3)}}
			s, repo, pub := newSyncer(t, f)
			ctx := context.Background()
			if err := s.SyncNow(ctx); err != nil {
				t.Fatalf("initial sync: %v", err)
			}

			f.mu.Lock()
			f.bodies, f.err = [][]byte{c.body}, c.err
			f.mu.Unlock()
			err := s.SyncNow(ctx)
			if err == nil {
				t.Fatalf("expected failure")
			}
			if c.is != nil && !errors.Is(err, c.is) {
				t.Fatalf("expected %v, got %v", c.is, err)
			}
			if n, _ := repo.CountForecast(ctx); n != 3 {
				t.Fatalf("expected previous forecast kept, got %d rows", n)
			}
			if pub.n.Load() != 1 {
				t.Fatalf("failed sync must not publish, got %d publishes", pub.n.Load())
			}
			runs, _ := repo.ListRuns(ctx, 1)
			if len(runs) != 1 || runs[0].Outcome != c.outcome {
				t.Fatalf("expected outcome %s, got %+v", c.outcome, runs)
			}
		})
	}
}

func TestSyncNowSerializesConcurrentCalls(t *testing.T) {
	f := &fakeFetcher{bodies: [][]byte{dailyPayload(2)}, delay: 20 * time.Millisecond}
	s, _, _ := newSyncer(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SyncNow(context.Background())
		}()
	}
	wg.Wait()
	if f.calls.Load() != 4 {
		t.Fatalf("expected every call to run, got %d", f.calls.Load())
	}
	if f.maxSeen.Load() != 1 {
		t.Fatalf("expected serialized fetches, saw %d concurrent", f.maxSeen.Load())
	}
}

func TestInitializeSkipsWhenForecastPresent(t *testing.T) {
	f := &fakeFetcher{bodies: [][]byte{dailyPayload(2)}}
	s, _, _ := newSyncer(t, f)
	ctx := context.Background()

	if err := s.Initialize(ctx, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := s.Initialize(ctx, false); err != nil {
		t.Fatalf("init: %v", err)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("expected one startup sync, got %d", f.calls.Load())
	}
	if err := s.Initialize(ctx, true); err != nil {
		t.Fatalf("forced init: %v", err)
	}
	if f.calls.Load() != 2 {
		t.Fatalf("expected forced sync, got %d", f.calls.Load())
	}
}
