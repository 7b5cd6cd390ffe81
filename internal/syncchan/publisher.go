package syncchan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/PetoAdam/homenavi/weather-sync/internal/observability"

	"github.com/google/uuid"
)

// Publisher writes summaries and refresh requests without blocking the caller.
// Writes reach the channel one at a time in call order, so the last publish
// is the value left at its path. Failures are logged and counted, never
// returned and never retried.
type Publisher struct {
	ch Channel

	mu      sync.Mutex
	pending []pendingPut
	running bool
	wg      sync.WaitGroup
}

type pendingPut struct {
	ctx  context.Context
	path string
	data DataMap
}

func NewPublisher(ch Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) PublishSummary(ctx context.Context, high, low string, weatherID int) {
	s := WeatherSummary{High: high, Low: low, WeatherID: weatherID, UUID: uuid.NewString()}
	slog.Info("publishing weather summary", "high", high, "low", low, "weather_id", weatherID)
	p.put(ctx, PathWeather, s.DataMap())
}

func (p *Publisher) RequestRefresh(ctx context.Context) {
	p.put(ctx, PathRequestWeather, RefreshRequest{UUID: uuid.NewString()}.DataMap())
}

// Wait blocks until the queue is drained.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

func (p *Publisher) put(ctx context.Context, path string, data DataMap) {
	p.mu.Lock()
	p.pending = append(p.pending, pendingPut{ctx: context.WithoutCancel(ctx), path: path, data: data})
	p.wg.Add(1)
	if !p.running {
		p.running = true
		go p.drain()
	}
	p.mu.Unlock()
}

// drain writes queued puts in order and exits once the queue is empty.
func (p *Publisher) drain() {
	for {
		p.mu.Lock()
		if len(p.pending) == 0 {
			p.running = false
			p.mu.Unlock()
			return
		}
		next := p.pending[0]
		p.pending = p.pending[1:]
		p.mu.Unlock()

		p.write(next)
		p.wg.Done()
	}
}

func (p *Publisher) write(w pendingPut) {
	if err := p.ch.Put(w.ctx, w.path, w.data); err != nil {
		slog.Error("sync publish failed", "path", w.path, "error", fmt.Errorf("%w: %w", ErrSyncPublish, err))
		observability.SyncPublishes.WithLabelValues(w.path, "error").Inc()
		return
	}
	slog.Debug("sync publish done", "path", w.path)
	observability.SyncPublishes.WithLabelValues(w.path, "ok").Inc()
}
