// Package realtime carries complaint events from the API and the analyzer
// to admin dashboards connected over websocket.
package realtime

import (
	"context"
	"errors"
	"sync"

	"civicvoice/model"
)

type Bus interface {
	Publish(ctx context.Context, ev model.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev model.Event)) error
	Close() error
}

var ErrBusClosed = errors.New("realtime: bus closed")

// LocalBus delivers events inside one process. It is used when no Redis
// address is configured.
type LocalBus struct {
	mu       sync.RWMutex
	handlers map[int]func(model.Event)
	nextID   int
	closed   bool
}

func NewLocalBus() *LocalBus {
	return &LocalBus{handlers: make(map[int]func(model.Event))}
}

func (b *LocalBus) Publish(_ context.Context, ev model.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	for _, h := range b.handlers {
		h(ev)
	}
	return nil
}

// StartForwarder registers onEvent until ctx is done.
func (b *LocalBus) StartForwarder(ctx context.Context, onEvent func(ev model.Event)) error {
	if onEvent == nil {
		return errors.New("realtime: onEvent callback required")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	id := b.nextID
	b.nextID++
	b.handlers[id] = onEvent
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}()
	return nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[int]func(model.Event))
	return nil
}
