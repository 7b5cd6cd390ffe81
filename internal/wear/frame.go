package wear

import (
	"log/slog"
	"time"
)

// Frame is everything the face draws at one instant. Weather fields are set
// only after a summary was received.
type Frame struct {
	Time       string    `json:"time"`
	Date       string    `json:"date"`
	Ambient    bool      `json:"ambient"`
	HasWeather bool      `json:"has_weather"`
	High       string    `json:"high,omitempty"`
	Low        string    `json:"low,omitempty"`
	Icon       Icon      `json:"icon,omitempty"`
	At         time.Time `json:"at"`
}

type Renderer interface {
	Render(f Frame)
}

type RendererFunc func(f Frame)

func (fn RendererFunc) Render(f Frame) { fn(f) }

// Renderers fans a frame out to several renderers in order.
func Renderers(rs ...Renderer) Renderer {
	return RendererFunc(func(f Frame) {
		for _, r := range rs {
			r.Render(f)
		}
	})
}

// LogRenderer writes frames to the debug log.
type LogRenderer struct{}

func (LogRenderer) Render(f Frame) {
	if f.HasWeather {
		slog.Debug("frame", "time", f.Time, "date", f.Date, "ambient", f.Ambient, "high", f.High, "low", f.Low, "icon", f.Icon)
		return
	}
	slog.Debug("frame", "time", f.Time, "date", f.Date, "ambient", f.Ambient)
}
