package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/cache"
	"github.com/PetoAdam/homenavi/weather-sync/internal/forecast"
	"github.com/PetoAdam/homenavi/weather-sync/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

type Syncer interface {
	SyncNow(ctx context.Context) error
}

// Server exposes the phone side: the stored forecast and manual syncs.
type Server struct {
	repo   *store.Repo
	cache  *cache.Cache
	syncer Syncer
	metric bool
	now    func() time.Time
}

func NewServer(repo *store.Repo, forecastCache *cache.Cache, syncer Syncer, metric bool) *Server {
	return &Server{repo: repo, cache: forecastCache, syncer: syncer, metric: metric, now: time.Now}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/forecast", s.handleForecast)
	r.Get("/forecast/location", s.handleLocation)
	r.Get("/forecast/runs", s.handleRuns)
	r.Post("/forecast/sync", s.handleSync)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type entryDTO struct {
	forecast.Entry
	HighText string `json:"high_text"`
	LowText  string `json:"low_text"`
}

type forecastResponse struct {
	From    int64      `json:"from"`
	Entries []entryDTO `json:"entries"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	from := forecast.NormalizedUTCToday(s.now())
	entries, ok := s.cache.Get(from)
	if !ok {
		var err error
		entries, err = s.repo.ListForecast(r.Context(), from)
		if err != nil {
			slog.Error("list forecast failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load forecast"})
			return
		}
		s.cache.Set(from, entries)
	}

	resp := forecastResponse{From: from, Entries: make([]entryDTO, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = entryDTO{
			Entry:    e,
			HighText: forecast.FormatTemperature(e.High, s.metric),
			LowText:  forecast.FormatTemperature(e.Low, s.metric),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.repo.Location(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load location"})
		return
	}
	if loc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no forecast synced yet"})
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	runs, err := s.repo.ListRuns(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	err := s.syncer.SyncNow(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, forecast.ErrProviderError):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "weather provider returned an error"})
		return
	case errors.Is(err, forecast.ErrMalformedPayload):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "weather provider returned a malformed forecast"})
		return
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sync failed"})
		return
	}

	n, err := s.repo.CountForecast(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to count forecast"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "entries": n})
}
