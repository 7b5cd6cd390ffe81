package owm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PetoAdam/homenavi/weather-sync/internal/forecast"
)

var today int64 = 1_760_832_000_000

func TestFetchDailyWithoutKeyReturnsParsableMock(t *testing.T) {
	raw, err := New("").FetchDaily(context.Background(), Query{City: "budapest"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	sink := &locationRecorder{}
	p := &forecast.Parser{Locations: sink, Metric: true}
	entries, err := p.Parse(context.Background(), raw, today)
	if err != nil {
		t.Fatalf("mock must parse: %v", err)
	}
	if len(entries) != forecastDays {
		t.Fatalf("expected %d days, got %d", forecastDays, len(entries))
	}
	if sink.lat != 47.4979 || sink.lon != 19.0402 {
		t.Fatalf("expected Budapest coordinates, got %v,%v", sink.lat, sink.lon)
	}
}

func TestFetchDailySendsQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"cod":"200","list":[]}`))
	}))
	defer srv.Close()

	c := New("secret").WithBaseURL(srv.URL)
	raw, err := c.FetchDaily(context.Background(), Query{Lat: 37.4, Lon: -122.1, HasCoords: true})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(raw) != `{"cod":"200","list":[]}` {
		t.Fatalf("expected raw body, got %s", raw)
	}
	q := got.URL.Query()
	if got.URL.Path != dailyPath || q.Get("lat") != "37.4" || q.Get("lon") != "-122.1" || q.Get("q") != "" {
		t.Fatalf("unexpected request %s", got.URL)
	}
	if q.Get("units") != "metric" || q.Get("cnt") != "14" || q.Get("appid") != "secret" {
		t.Fatalf("unexpected params %s", got.URL.RawQuery)
	}
}

func TestFetchDailyStatusErrors(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}))
	defer srv.Close()
	c := New("secret").WithBaseURL(srv.URL)

	_, err := c.FetchDaily(context.Background(), Query{City: "nowhere"})
	if !errors.Is(err, forecast.ErrProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}

	status = http.StatusUnauthorized
	raw, err := c.FetchDaily(context.Background(), Query{City: "Vienna"})
	if err != nil || len(raw) == 0 {
		t.Fatalf("expected mock fallback on auth failure, got %v", err)
	}
}

type locationRecorder struct{ lat, lon float64 }

func (l *locationRecorder) SetLocation(_ context.Context, lat, lon float64) error {
	l.lat, l.lon = lat, lon
	return nil
}
