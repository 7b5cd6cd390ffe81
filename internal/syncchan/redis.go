package syncchan

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisChannel keeps each path under a string key and announces changes on a
// pub/sub channel of the same name. SET ... GET makes the equality check and
// the write a single round trip.
type RedisChannel struct {
	rdb    *redis.Client
	prefix string

	mu     sync.Mutex
	closed bool
	subs   map[*redisSubscription]struct{}
}

func NewRedis(rdb *redis.Client, prefix string) *RedisChannel {
	return &RedisChannel{
		rdb:    rdb,
		prefix: strings.TrimRight(prefix, "/"),
		subs:   map[*redisSubscription]struct{}{},
	}
}

func (c *RedisChannel) key(path string) string {
	return c.prefix + "/" + strings.TrimLeft(path, "/")
}

func (c *RedisChannel) Put(ctx context.Context, path string, data DataMap) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	payload, err := Encode(data)
	if err != nil {
		return err
	}
	key := c.key(path)
	prev, err := c.rdb.SetArgs(ctx, key, payload, redis.SetArgs{Get: true}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if err == nil && prev == string(payload) {
		return nil
	}
	return c.rdb.Publish(ctx, key, payload).Err()
}

func (c *RedisChannel) Subscribe(path string, h Handler) (Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	ctx := context.Background()
	ps := c.rdb.Subscribe(ctx, c.key(path))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	s := &redisSubscription{ch: c, ps: ps, sub: newSubscriber(path, h)}
	c.subs[s] = struct{}{}
	go s.pump()
	return s, nil
}

func (c *RedisChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = map[*redisSubscription]struct{}{}
	c.mu.Unlock()

	for s := range subs {
		_ = s.close()
	}
	return c.rdb.Close()
}

type redisSubscription struct {
	ch   *RedisChannel
	ps   *redis.PubSub
	sub  *subscriber
	once sync.Once
}

func (s *redisSubscription) pump() {
	for msg := range s.ps.Channel() {
		d, err := Decode([]byte(msg.Payload))
		if err != nil {
			slog.Warn("sync channel dropped undecodable payload", "path", s.sub.path, "error", err)
			continue
		}
		s.sub.deliver(Event{Path: s.sub.path, Data: d})
	}
}

func (s *redisSubscription) close() error {
	var err error
	s.once.Do(func() {
		s.sub.stop()
		err = s.ps.Close()
	})
	return err
}

func (s *redisSubscription) Unsubscribe() error {
	s.ch.mu.Lock()
	delete(s.ch.subs, s)
	s.ch.mu.Unlock()
	return s.close()
}
