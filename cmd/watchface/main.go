package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/config"
	"github.com/PetoAdam/homenavi/weather-sync/internal/httpapi"
	"github.com/PetoAdam/homenavi/weather-sync/internal/observability"
	"github.com/PetoAdam/homenavi/weather-sync/internal/realtime"
	"github.com/PetoAdam/homenavi/weather-sync/internal/syncchan"
	"github.com/PetoAdam/homenavi/weather-sync/internal/wear"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	switch cfg.Sync.Backend {
	case "memory":
		slog.Error("the memory backend only works inside weather-sync; use mqtt or redis")
		os.Exit(1)
	case "mqtt":
		if cfg.Sync.MQTTBrokerURL == "" {
			slog.Error("missing required env", "key", "MQTT_BROKER_URL")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, promHandler, tracer := observability.Setup(ctx, "watchface", cfg.OTLPEndpoint)
	defer shutdownTelemetry()

	dcfg := syncchan.DialConfig{
		Backend:       cfg.Sync.Backend,
		MQTTBrokerURL: cfg.Sync.MQTTBrokerURL,
		MQTTClientID:  cfg.Sync.MQTTClientID + "-watch",
		RedisAddr:     cfg.Sync.RedisAddr,
		RedisPassword: cfg.Sync.RedisPassword,
		RedisDB:       cfg.Sync.RedisDB,
		Prefix:        cfg.Sync.TopicPrefix,
	}
	frames := realtime.NewHub()
	display := wear.NewDisplay(func(ctx context.Context) (syncchan.Channel, error) {
		return syncchan.Dial(ctx, dcfg)
	}, wear.Renderers(wear.LogRenderer{}, frames))

	runDone := make(chan struct{})
	go func() {
		display.Run(ctx)
		close(runDone)
	}()
	display.SetVisible(true)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.WatchPort,
		Handler:           httpapi.NewRouter("watchface", tracer, promHandler, httpapi.NewWatchServer(display, frames)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("watchface listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
	slog.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	cancel()
	<-runDone
}

func setupLogging(level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}
