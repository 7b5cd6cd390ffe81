package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	WatchPort         string
	LogLevel          string
	OpenWeatherAPIKey string
	Location          Location
	Metric            bool
	CacheTTL          time.Duration
	SyncCron          string
	SyncOnStart       bool
	Sync              SyncConfig
	DB                DBConfig
	OTLPEndpoint      string
}

// Location is the forecast query. Coordinates win over the city name when set.
type Location struct {
	City      string
	Lat       float64
	Lon       float64
	HasCoords bool
}

type SyncConfig struct {
	Backend       string
	MQTTBrokerURL string
	MQTTClientID  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TopicPrefix   string
}

type DBConfig struct {
	Driver     string
	SQLitePath string
	Postgres   PostgresConfig
}

type PostgresConfig struct {
	User     string
	Password string
	DBName   string
	Host     string
	Port     string
	SSLMode  string
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set in the environment take precedence.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8096"),
		WatchPort:         getEnv("WATCHFACE_PORT", "8097"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		OpenWeatherAPIKey: strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY")),
		Location:          loadLocation(),
		Metric:            !strings.EqualFold(strings.TrimSpace(getEnv("WEATHER_UNITS", "metric")), "imperial"),
		CacheTTL:          parseDuration(os.Getenv("CACHE_TTL"), 15*time.Minute),
		SyncCron:          getEnv("SYNC_CRON", "@every 3h"),
		SyncOnStart:       parseBool(getEnv("SYNC_ON_START", "false")),
		Sync: SyncConfig{
			Backend:       strings.ToLower(getEnv("SYNC_BACKEND", "mqtt")),
			MQTTBrokerURL: strings.TrimSpace(os.Getenv("MQTT_BROKER_URL")),
			MQTTClientID:  getEnv("MQTT_CLIENT_ID", "weather-sync"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       parseInt(os.Getenv("REDIS_DB"), 0),
			TopicPrefix:   strings.TrimRight(getEnv("SYNC_TOPIC_PREFIX", "sunshine/wear"), "/"),
		},
		DB: DBConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			SQLitePath: getEnv("SQLITE_PATH", "weather-sync.db"),
			Postgres: PostgresConfig{
				User:     strings.TrimSpace(os.Getenv("POSTGRES_USER")),
				Password: os.Getenv("POSTGRES_PASSWORD"),
				DBName:   strings.TrimSpace(os.Getenv("POSTGRES_DB")),
				Host:     strings.TrimSpace(os.Getenv("POSTGRES_HOST")),
				Port:     getEnv("POSTGRES_PORT", "5432"),
				SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			},
		},
		OTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}

	slog.Info("weather-sync config loaded", "port", cfg.Port, "sync_backend", cfg.Sync.Backend, "db", cfg.DB.Driver, "cron", cfg.SyncCron)
	return cfg
}

func loadLocation() Location {
	loc := Location{City: getEnv("WEATHER_LOCATION", "94043")}
	latStr := strings.TrimSpace(os.Getenv("WEATHER_LAT"))
	lonStr := strings.TrimSpace(os.Getenv("WEATHER_LON"))
	if latStr == "" || lonStr == "" {
		return loc
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		slog.Warn("ignoring invalid WEATHER_LAT", "value", latStr)
		return loc
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		slog.Warn("ignoring invalid WEATHER_LON", "value", lonStr)
		return loc
	}
	loc.Lat, loc.Lon, loc.HasCoords = lat, lon, true
	return loc
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// parseDuration accepts Go durations ("90s") or a bare number of minutes.
func parseDuration(val string, def time.Duration) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return def
	}
	if m, err := strconv.Atoi(val); err == nil && m > 0 {
		return time.Duration(m) * time.Minute
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	return def
}

func parseInt(val string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
		return n
	}
	return def
}
