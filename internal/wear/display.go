package wear

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/observability"
	"github.com/PetoAdam/homenavi/weather-sync/internal/syncchan"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnectedIdle
	StateConnectedAwaitingUpdate
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnectedIdle:
		return "idle"
	case StateConnectedAwaitingUpdate:
		return "awaiting_update"
	default:
		return "unknown"
	}
}

// Dialer opens a connection to the sync channel.
type Dialer func(ctx context.Context) (syncchan.Channel, error)

// Summary is the last weather summary received from the phone.
type Summary struct {
	syncchan.WeatherSummary
	Icon       Icon      `json:"icon"`
	ReceivedAt time.Time `json:"received_at"`
}

const (
	timeLayout = "15:04"
	dateLayout = "Mon, Jan 02 2006"
)

// Display drives the watch face: it holds the sync channel connection while
// the face is visible and renders frames from the last known summary.
type Display struct {
	dial     Dialer
	renderer Renderer
	tick     time.Duration
	now      func() time.Time

	mu         sync.Mutex
	state      State
	gen        uint64
	visible    bool
	ambient    bool
	cancelDial context.CancelFunc
	ch         syncchan.Channel
	sub        syncchan.Subscription
	pub        *syncchan.Publisher

	summary atomic.Pointer[Summary]
	frame   atomic.Pointer[Frame]
	redraw  chan struct{}
}

func NewDisplay(dial Dialer, r Renderer) *Display {
	if r == nil {
		r = LogRenderer{}
	}
	return &Display{
		dial:     dial,
		renderer: r,
		tick:     time.Second,
		now:      time.Now,
		redraw:   make(chan struct{}, 1),
	}
}

func (d *Display) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Display) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

func (d *Display) Ambient() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ambient
}

// Summary returns the last received summary, or nil if none arrived yet.
func (d *Display) Summary() *Summary {
	return d.summary.Load()
}

// SetVisible connects when the face becomes visible and disconnects when it
// is hidden.
func (d *Display) SetVisible(visible bool) {
	d.mu.Lock()
	d.visible = visible
	if !visible {
		release := d.detachLocked()
		d.mu.Unlock()
		release()
		return
	}
	if d.state == StateDisconnected {
		d.state = StateConnecting
		d.gen++
		ctx, cancel := context.WithCancel(context.Background())
		d.cancelDial = cancel
		go d.connect(ctx, d.gen)
	}
	d.mu.Unlock()
	d.Invalidate()
}

// detachLocked moves the display to Disconnected and returns a func that
// releases the old connection. Call it after unlocking.
func (d *Display) detachLocked() func() {
	d.gen++
	d.stopDialLocked()
	sub, ch := d.sub, d.ch
	d.sub, d.ch, d.pub = nil, nil, nil
	prev := d.state
	d.state = StateDisconnected
	return func() {
		if sub != nil {
			_ = sub.Unsubscribe()
		}
		if ch != nil {
			if err := ch.Close(); err != nil {
				slog.Warn("sync channel close failed", "error", err)
			}
		}
		if prev != StateDisconnected {
			slog.Info("watch face disconnected", "from", prev.String())
		}
	}
}

// stopDialLocked cancels the context of the current connection attempt. The
// context stays live while connected and is cancelled on detach.
func (d *Display) stopDialLocked() {
	if d.cancelDial != nil {
		d.cancelDial()
		d.cancelDial = nil
	}
}

func (d *Display) connect(ctx context.Context, gen uint64) {
	ch, err := d.dial(ctx)
	if err != nil {
		d.mu.Lock()
		if gen == d.gen {
			d.state = StateDisconnected
			d.stopDialLocked()
		}
		d.mu.Unlock()
		slog.Error("sync channel dial failed", "error", err)
		return
	}

	sub, err := ch.Subscribe(syncchan.PathWeather, func(ev syncchan.Event) {
		d.onWeather(gen, ev)
	})
	if err != nil {
		_ = ch.Close()
		d.mu.Lock()
		if gen == d.gen {
			d.state = StateDisconnected
			d.stopDialLocked()
		}
		d.mu.Unlock()
		slog.Error("weather subscribe failed", "error", err)
		return
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		_ = sub.Unsubscribe()
		_ = ch.Close()
		slog.Debug("discarding connection opened after face was hidden")
		return
	}
	d.ch, d.sub, d.pub = ch, sub, syncchan.NewPublisher(ch)
	d.state = StateConnectedAwaitingUpdate
	pub := d.pub
	d.mu.Unlock()

	slog.Info("watch face connected")
	pub.RequestRefresh(ctx)
}

func (d *Display) onWeather(gen uint64, ev syncchan.Event) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	var prev syncchan.WeatherSummary
	if s := d.summary.Load(); s != nil {
		prev = s.WeatherSummary
	}
	ws, err := syncchan.DecodeSummary(prev, ev.Data)
	if err != nil {
		d.mu.Unlock()
		observability.SummariesReceived.WithLabelValues("malformed").Inc()
		slog.Warn("ignoring malformed weather summary", "error", err)
		return
	}
	d.summary.Store(&Summary{
		WeatherSummary: ws,
		Icon:           IconForCondition(ws.WeatherID),
		ReceivedAt:     d.now(),
	})
	if d.state == StateConnectedAwaitingUpdate {
		d.state = StateConnectedIdle
	}
	d.mu.Unlock()

	observability.SummariesReceived.WithLabelValues("ok").Inc()
	slog.Debug("weather summary received", "high", ws.High, "low", ws.Low, "weather_id", ws.WeatherID)
	d.Invalidate()
}

// Tap asks the phone for fresh weather. It reports false and does nothing
// unless connected.
func (d *Display) Tap() bool {
	d.mu.Lock()
	pub := d.pub
	if pub == nil || (d.state != StateConnectedIdle && d.state != StateConnectedAwaitingUpdate) {
		d.mu.Unlock()
		return false
	}
	d.state = StateConnectedAwaitingUpdate
	d.mu.Unlock()
	pub.RequestRefresh(context.Background())
	return true
}

func (d *Display) SetAmbient(ambient bool) {
	d.mu.Lock()
	d.ambient = ambient
	d.mu.Unlock()
	d.Invalidate()
}

// TimeTick is the once-a-minute tick delivered in ambient mode.
func (d *Display) TimeTick() {
	d.Invalidate()
}

// Invalidate schedules a redraw. It never blocks.
func (d *Display) Invalidate() {
	select {
	case d.redraw <- struct{}{}:
	default:
	}
}

// Run renders until ctx is done, then disconnects.
func (d *Display) Run(ctx context.Context) {
	t := time.NewTicker(d.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			d.visible = false
			release := d.detachLocked()
			d.mu.Unlock()
			release()
			return
		case <-t.C:
			d.mu.Lock()
			interactive := d.visible && !d.ambient
			d.mu.Unlock()
			if interactive {
				d.render()
			}
		case <-d.redraw:
			if d.Visible() {
				d.render()
			}
		}
	}
}

func (d *Display) render() {
	f := d.Compose()
	d.frame.Store(&f)
	d.renderer.Render(f)
}

// Compose builds a frame for the current time from the last known summary.
func (d *Display) Compose() Frame {
	now := d.now()
	f := Frame{
		Time:    now.Format(timeLayout),
		Date:    now.Format(dateLayout),
		Ambient: d.Ambient(),
		At:      now,
	}
	if s := d.summary.Load(); s != nil {
		f.HasWeather = true
		f.High = s.High
		f.Low = s.Low
		f.Icon = s.Icon
	}
	return f
}

// Frame returns the last rendered frame, composing one if nothing was drawn yet.
func (d *Display) Frame() Frame {
	if f := d.frame.Load(); f != nil {
		return *f
	}
	return d.Compose()
}
