package httpapi

import (
	"net/http"

	"github.com/PetoAdam/homenavi/weather-sync/internal/wear"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// WatchServer drives a wear.Display over HTTP, standing in for the system
// callbacks a watch face normally receives.
type WatchServer struct {
	display *wear.Display
	stream  http.Handler
}

// NewWatchServer serves frames from display; stream, if set, is mounted at
// /watch/ws.
func NewWatchServer(display *wear.Display, stream http.Handler) *WatchServer {
	return &WatchServer{display: display, stream: stream}
}

func (s *WatchServer) RegisterRoutes(r chi.Router) {
	r.Get("/watch/frame", s.handleFrame)
	r.Get("/watch/state", s.handleState)
	r.Post("/watch/visibility", s.handleVisibility)
	r.Post("/watch/ambient", s.handleAmbient)
	r.Post("/watch/tap", s.handleTap)
	if s.stream != nil {
		r.Handle("/watch/ws", s.stream)
	}
}

type stateResponse struct {
	State   string        `json:"state"`
	Visible bool          `json:"visible"`
	Ambient bool          `json:"ambient"`
	Summary *wear.Summary `json:"summary,omitempty"`
}

func (s *WatchServer) handleFrame(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.display.Frame())
}

func (s *WatchServer) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *WatchServer) stateResponse() stateResponse {
	return stateResponse{
		State:   s.display.State().String(),
		Visible: s.display.Visible(),
		Ambient: s.display.Ambient(),
		Summary: s.display.Summary(),
	}
}

func (s *WatchServer) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Visible *bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Visible == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"visible\": bool}"})
		return
	}
	s.display.SetVisible(*body.Visible)
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *WatchServer) handleAmbient(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Ambient *bool `json:"ambient"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Ambient == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"ambient\": bool}"})
		return
	}
	s.display.SetAmbient(*body.Ambient)
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *WatchServer) handleTap(w http.ResponseWriter, _ *http.Request) {
	if !s.display.Tap() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "watch face is not connected"})
		return
	}
	writeJSON(w, http.StatusAccepted, s.stateResponse())
}
