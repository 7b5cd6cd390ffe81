package syncchan

import (
	"bytes"
	"context"
	"strings"
	"sync"
)

// Broker is the part of an MQTT client the channel needs.
type Broker interface {
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	Unsubscribe(topic string) error
	Close()
}

// MQTTChannel stores each path as a retained message under prefix+path.
// Retained messages give late subscribers the current value, which is how the
// watch picks up a summary published while it was disconnected.
type MQTTChannel struct {
	broker Broker
	prefix string

	mu       sync.Mutex
	closed   bool
	sent     map[string][]byte
	received map[string][]byte
	subs     map[string]map[*subscriber]struct{}
}

func NewMQTT(broker Broker, prefix string) *MQTTChannel {
	return &MQTTChannel{
		broker:   broker,
		prefix:   strings.TrimRight(prefix, "/"),
		sent:     map[string][]byte{},
		received: map[string][]byte{},
		subs:     map[string]map[*subscriber]struct{}{},
	}
}

func (c *MQTTChannel) topic(path string) string {
	return c.prefix + "/" + strings.TrimLeft(path, "/")
}

func (c *MQTTChannel) Put(_ context.Context, path string, data DataMap) error {
	payload, err := Encode(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if prev, ok := c.sent[path]; ok && bytes.Equal(prev, payload) {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.broker.PublishRetained(c.topic(path), payload); err != nil {
		return err
	}
	c.mu.Lock()
	c.sent[path] = payload
	c.mu.Unlock()
	return nil
}

func (c *MQTTChannel) Subscribe(path string, h Handler) (Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	s := newSubscriber(path, h)
	set, exists := c.subs[path]
	if !exists {
		set = map[*subscriber]struct{}{}
		c.subs[path] = set
	}
	set[s] = struct{}{}
	c.mu.Unlock()

	if !exists {
		if err := c.broker.Subscribe(c.topic(path), func(_ string, payload []byte) {
			c.receive(path, payload)
		}); err != nil {
			c.drop(s)
			return nil, err
		}
	}
	return &mqttSubscription{ch: c, sub: s}, nil
}

func (c *MQTTChannel) receive(path string, payload []byte) {
	c.mu.Lock()
	if prev, ok := c.received[path]; ok && bytes.Equal(prev, payload) {
		c.mu.Unlock()
		return
	}
	c.received[path] = append([]byte(nil), payload...)
	targets := make([]*subscriber, 0, len(c.subs[path]))
	for s := range c.subs[path] {
		targets = append(targets, s)
	}
	c.mu.Unlock()

	for _, s := range targets {
		d, err := Decode(payload)
		if err != nil {
			continue
		}
		s.deliver(Event{Path: path, Data: d})
	}
}

// drop removes s and reports whether it was the last subscriber on its path.
func (c *MQTTChannel) drop(s *subscriber) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s.stop()
	set, ok := c.subs[s.path]
	if !ok {
		return false
	}
	delete(set, s)
	if len(set) == 0 {
		delete(c.subs, s.path)
		delete(c.received, s.path)
		return true
	}
	return false
}

func (c *MQTTChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = map[string]map[*subscriber]struct{}{}
	c.mu.Unlock()

	for _, set := range subs {
		for s := range set {
			s.stop()
		}
	}
	c.broker.Close()
	return nil
}

type mqttSubscription struct {
	ch   *MQTTChannel
	sub  *subscriber
	once sync.Once
}

func (s *mqttSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		if s.ch.drop(s.sub) {
			err = s.ch.broker.Unsubscribe(s.ch.topic(s.sub.path))
		}
	})
	return err
}
