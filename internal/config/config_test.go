package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "SYNC_BACKEND", "SYNC_CRON", "WEATHER_LAT", "WEATHER_LON", "WEATHER_UNITS", "CACHE_TTL", "DB_DRIVER", "SYNC_TOPIC_PREFIX"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8096" || cfg.WatchPort != "8097" {
		t.Fatalf("unexpected ports %q %q", cfg.Port, cfg.WatchPort)
	}
	if cfg.Sync.Backend != "mqtt" || cfg.Sync.TopicPrefix != "sunshine/wear" {
		t.Fatalf("unexpected sync config %+v", cfg.Sync)
	}
	if cfg.SyncCron != "@every 3h" || cfg.CacheTTL != 15*time.Minute {
		t.Fatalf("unexpected schedule/cache %q %v", cfg.SyncCron, cfg.CacheTTL)
	}
	if !cfg.Metric || cfg.Location.HasCoords || cfg.DB.Driver != "sqlite" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYNC_BACKEND", "Redis")
	t.Setenv("SYNC_TOPIC_PREFIX", "home/watch/")
	t.Setenv("WEATHER_LAT", "47.4979")
	t.Setenv("WEATHER_LON", "19.0402")
	t.Setenv("WEATHER_UNITS", "imperial")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("SYNC_ON_START", "yes")

	cfg := Load()
	if cfg.Sync.Backend != "redis" || cfg.Sync.TopicPrefix != "home/watch" {
		t.Fatalf("unexpected sync config %+v", cfg.Sync)
	}
	if !cfg.Location.HasCoords || cfg.Location.Lat != 47.4979 || cfg.Location.Lon != 19.0402 {
		t.Fatalf("unexpected location %+v", cfg.Location)
	}
	if cfg.Metric {
		t.Fatalf("expected imperial units")
	}
	if cfg.CacheTTL != 90*time.Second || !cfg.SyncOnStart {
		t.Fatalf("unexpected ttl/start %v %v", cfg.CacheTTL, cfg.SyncOnStart)
	}
}

func TestLoadIgnoresHalfCoordinates(t *testing.T) {
	t.Setenv("WEATHER_LAT", "47.4979")
	t.Setenv("WEATHER_LON", "")
	if Load().Location.HasCoords {
		t.Fatalf("expected city lookup when only lat is set")
	}
	t.Setenv("WEATHER_LON", "east")
	if Load().Location.HasCoords {
		t.Fatalf("expected invalid lon to be ignored")
	}
}

func TestParseDuration(t *testing.T) {
	if d := parseDuration("30", time.Second); d != 30*time.Minute {
		t.Fatalf("expected minutes, got %v", d)
	}
	if d := parseDuration("-1h", time.Second); d != time.Second {
		t.Fatalf("expected default for negative, got %v", d)
	}
}
