package ingest

import (
	"context"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
)

type Runner interface {
	SyncNow(ctx context.Context) error
}

// Scheduler runs periodic syncs. Specs accept an optional seconds field and
// descriptors such as "@every 3h".
type Scheduler struct {
	cron *cron.Cron
	spec string
}

func NewScheduler(ctx context.Context, r Runner, spec string) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))
	if _, err := c.AddFunc(spec, func() {
		if err := r.SyncNow(ctx); err != nil {
			slog.Debug("scheduled sync failed", "spec", spec, "error", err)
		}
	}); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, spec: spec}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("sync scheduler started", "spec", s.spec)
}

// Stop prevents new runs and waits for a running one to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
