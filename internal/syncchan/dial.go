package syncchan

import (
	"context"
	"fmt"
	"strings"

	"github.com/PetoAdam/homenavi/weather-sync/internal/mqtt"

	"github.com/redis/go-redis/v9"
)

type DialConfig struct {
	Backend       string
	MQTTBrokerURL string
	MQTTClientID  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	// Memory backs the "memory" backend; a fresh hub is used when nil.
	Memory *Memory
}

// Dial opens a new connection to the configured backend.
func Dial(ctx context.Context, cfg DialConfig) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "mqtt":
		cli, err := mqtt.Connect(cfg.MQTTBrokerURL, cfg.MQTTClientID)
		if err != nil {
			return nil, fmt.Errorf("mqtt connect: %w", err)
		}
		return NewMQTT(cli, cfg.Prefix), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedis(rdb, cfg.Prefix), nil
	case "memory":
		hub := cfg.Memory
		if hub == nil {
			hub = NewMemory()
		}
		return hub.Connect(), nil
	}
	return nil, fmt.Errorf("unknown sync backend %q", cfg.Backend)
}
