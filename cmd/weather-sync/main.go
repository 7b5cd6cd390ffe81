package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PetoAdam/homenavi/weather-sync/internal/cache"
	"github.com/PetoAdam/homenavi/weather-sync/internal/config"
	"github.com/PetoAdam/homenavi/weather-sync/internal/forecast"
	"github.com/PetoAdam/homenavi/weather-sync/internal/httpapi"
	"github.com/PetoAdam/homenavi/weather-sync/internal/ingest"
	"github.com/PetoAdam/homenavi/weather-sync/internal/listener"
	"github.com/PetoAdam/homenavi/weather-sync/internal/observability"
	"github.com/PetoAdam/homenavi/weather-sync/internal/owm"
	"github.com/PetoAdam/homenavi/weather-sync/internal/realtime"
	"github.com/PetoAdam/homenavi/weather-sync/internal/store"
	"github.com/PetoAdam/homenavi/weather-sync/internal/syncchan"
	"github.com/PetoAdam/homenavi/weather-sync/internal/wear"

	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if cfg.Sync.Backend == "mqtt" && cfg.Sync.MQTTBrokerURL == "" {
		slog.Error("missing required env", "key", "MQTT_BROKER_URL")
		os.Exit(1)
	}
	if cfg.OpenWeatherAPIKey == "" {
		slog.Warn("OPENWEATHER_API_KEY not set, serving mock forecasts")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, promHandler, tracer := observability.Setup(ctx, "weather-sync", cfg.OTLPEndpoint)
	defer shutdownTelemetry()

	db, err := openDB(cfg.DB)
	if err != nil {
		slog.Error("db connect failed", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	repo, err := store.New(db)
	if err != nil {
		slog.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	var hub *syncchan.Memory
	if cfg.Sync.Backend == "memory" {
		hub = syncchan.NewMemory()
	}
	ch, err := syncchan.Dial(ctx, dialConfig(cfg, "phone", hub))
	if err != nil {
		slog.Error("sync channel connect failed", "backend", cfg.Sync.Backend, "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	forecastCache := cache.New(cfg.CacheTTL)
	syncer := &ingest.Syncer{
		Fetcher: owm.New(cfg.OpenWeatherAPIKey),
		Parser: &forecast.Parser{
			Locations: repo,
			Publisher: syncchan.NewPublisher(ch),
			Metric:    cfg.Metric,
		},
		Repo: repo,
		Query: owm.Query{
			City:      cfg.Location.City,
			Lat:       cfg.Location.Lat,
			Lon:       cfg.Location.Lon,
			HasCoords: cfg.Location.HasCoords,
		},
		Cache:  forecastCache,
		Tracer: tracer,
	}

	lis := &listener.RefreshListener{Channel: ch, Trigger: syncer}
	if err := lis.Start(ctx); err != nil {
		slog.Error("refresh listener failed", "error", err)
		os.Exit(1)
	}
	defer lis.Stop()

	sched, err := ingest.NewScheduler(ctx, syncer, cfg.SyncCron)
	if err != nil {
		slog.Error("invalid SYNC_CRON", "spec", cfg.SyncCron, "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	go func() {
		if err := syncer.Initialize(ctx, cfg.SyncOnStart); err != nil {
			slog.Warn("startup sync failed", "error", err)
		}
	}()

	servers := []*http.Server{{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.NewRouter("weather-sync", tracer, promHandler, httpapi.NewServer(repo, forecastCache, syncer, cfg.Metric)),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}

	// With the in-process backend both ends share the hub, so the watch face
	// runs here as well.
	if hub != nil {
		frames := realtime.NewHub()
		display := wear.NewDisplay(func(context.Context) (syncchan.Channel, error) {
			return hub.Connect(), nil
		}, wear.Renderers(wear.LogRenderer{}, frames))
		go display.Run(ctx)
		display.SetVisible(true)
		servers = append(servers, &http.Server{
			Addr:              ":" + cfg.WatchPort,
			Handler:           httpapi.NewRouter("watchface", tracer, nil, httpapi.NewWatchServer(display, frames)),
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	for _, srv := range servers {
		go func(srv *http.Server) {
			slog.Info("weather-sync listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "addr", srv.Addr, "error", err)
				cancel()
			}
		}(srv)
	}

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
	slog.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for _, srv := range servers {
		_ = srv.Shutdown(shutdownCtx)
	}
	cancel()
}

func openDB(cfg config.DBConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return store.OpenSQLite(cfg.SQLitePath)
	case "postgres":
		pg := cfg.Postgres
		for key, val := range map[string]string{"POSTGRES_USER": pg.User, "POSTGRES_DB": pg.DBName, "POSTGRES_HOST": pg.Host} {
			if val == "" {
				return nil, fmt.Errorf("missing required env %s", key)
			}
		}
		return store.OpenPostgres(pg.User, pg.Password, pg.DBName, pg.Host, pg.Port, pg.SSLMode)
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
}

func dialConfig(cfg *config.Config, role string, hub *syncchan.Memory) syncchan.DialConfig {
	return syncchan.DialConfig{
		Backend:       cfg.Sync.Backend,
		MQTTBrokerURL: cfg.Sync.MQTTBrokerURL,
		MQTTClientID:  cfg.Sync.MQTTClientID + "-" + role,
		RedisAddr:     cfg.Sync.RedisAddr,
		RedisPassword: cfg.Sync.RedisPassword,
		RedisDB:       cfg.Sync.RedisDB,
		Prefix:        cfg.Sync.TopicPrefix,
		Memory:        hub,
	}
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
