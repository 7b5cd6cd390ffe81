package listener

import (
	"context"
	"log/slog"
	"sync"

	"github.com/PetoAdam/homenavi/weather-sync/internal/observability"
	"github.com/PetoAdam/homenavi/weather-sync/internal/syncchan"
)

type Trigger interface {
	SyncNow(ctx context.Context) error
}

// RefreshListener starts an immediate sync for every refresh request the
// watch writes. Requests are neither coalesced nor throttled.
type RefreshListener struct {
	Channel syncchan.Channel
	Trigger Trigger

	mu  sync.Mutex
	sub syncchan.Subscription
}

func (l *RefreshListener) Start(ctx context.Context) error {
	sub, err := l.Channel.Subscribe(syncchan.PathRequestWeather, func(ev syncchan.Event) {
		token, _ := ev.Data[syncchan.KeyUUID].(string)
		observability.RefreshRequests.Inc()
		slog.Info("refresh requested by watch", "uuid", token)
		if err := l.Trigger.SyncNow(ctx); err != nil {
			slog.Warn("requested sync failed", "uuid", token, "error", err)
		}
	})
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.sub = sub
	l.mu.Unlock()
	slog.Info("refresh listener subscribed", "path", syncchan.PathRequestWeather)
	return nil
}

func (l *RefreshListener) Stop() {
	l.mu.Lock()
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()
	if sub != nil {
		_ = sub.Unsubscribe()
	}
}
