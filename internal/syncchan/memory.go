package syncchan

import (
	"bytes"
	"context"
	"sync"
)

// Memory is an in-process sync store. Every connection obtained from Connect
// sees the same data, which makes it usable for tests and for running both
// roles in one process.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
	subs map[string]map[*subscriber]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		data: map[string][]byte{},
		subs: map[string]map[*subscriber]struct{}{},
	}
}

// Connect returns a Channel handle. Closing it drops only its own subscriptions.
func (m *Memory) Connect() Channel {
	return &memoryConn{hub: m, subs: map[*subscriber]struct{}{}}
}

// Get returns the current value stored at path.
func (m *Memory) Get(path string) (DataMap, bool) {
	m.mu.Lock()
	b, ok := m.data[path]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	d, err := Decode(b)
	if err != nil {
		return nil, false
	}
	return d, true
}

// put stores payload and queues it for subscribers before releasing the
// lock, so delivery order per path matches store order.
func (m *Memory) put(path string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.data[path]; ok && bytes.Equal(prev, payload) {
		return
	}
	m.data[path] = payload
	for s := range m.subs[path] {
		d, err := Decode(payload)
		if err != nil {
			continue
		}
		s.deliver(Event{Path: path, Data: d})
	}
}

func (m *Memory) add(s *subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.subs[s.path]
	if !ok {
		set = map[*subscriber]struct{}{}
		m.subs[s.path] = set
	}
	set[s] = struct{}{}
}

func (m *Memory) remove(s *subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.subs[s.path]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(m.subs, s.path)
		}
	}
}

type memoryConn struct {
	hub *Memory

	mu     sync.Mutex
	closed bool
	subs   map[*subscriber]struct{}
}

func (c *memoryConn) Put(_ context.Context, path string, data DataMap) error {
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
	c.hub.put(path, payload)
	return nil
}

func (c *memoryConn) Subscribe(path string, h Handler) (Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	s := newSubscriber(path, h)
	c.subs[s] = struct{}{}
	c.hub.add(s)
	return &memorySubscription{conn: c, sub: s}, nil
}

func (c *memoryConn) unsubscribe(s *subscriber) {
	c.mu.Lock()
	delete(c.subs, s)
	c.mu.Unlock()
	c.hub.remove(s)
	s.stop()
}

func (c *memoryConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := c.subs
	c.subs = map[*subscriber]struct{}{}
	c.mu.Unlock()

	for s := range subs {
		c.hub.remove(s)
		s.stop()
	}
	return nil
}

type memorySubscription struct {
	conn *memoryConn
	sub  *subscriber
}

func (s *memorySubscription) Unsubscribe() error {
	s.conn.unsubscribe(s.sub)
	return nil
}
