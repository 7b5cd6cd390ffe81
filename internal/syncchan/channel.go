// Package syncchan models the replicated key-value store shared by the phone
// and the watch. Writers put a DataMap at a path; subscribers on the other
// device are notified asynchronously when the stored payload changes.
package syncchan

import (
	"context"
	"errors"
)

var (
	ErrClosed      = errors.New("sync channel closed")
	ErrSyncPublish = errors.New("sync publish failed")
)

type Event struct {
	Path string
	Data DataMap
}

type Handler func(Event)

type Subscription interface {
	Unsubscribe() error
}

// Channel is the minimal surface both devices need.
// Put must not invoke handlers on the caller's goroutine, and a Put whose
// encoded payload equals the current value at that path produces no event.
type Channel interface {
	Put(ctx context.Context, path string, data DataMap) error
	Subscribe(path string, h Handler) (Subscription, error)
	Close() error
}
