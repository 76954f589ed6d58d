package eventsvc

import (
	"context"
	"sync"

	"github.com/alumnihub/backend/core"
)

// MemoryPublisher records published events, for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

var _ core.EventPublisher = (*MemoryPublisher)(nil)

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, events ...core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Events returns a copy of the published events.
func (p *MemoryPublisher) Events() []core.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Event(nil), p.events...)
}

// Types returns the types of the published events, in order.
func (p *MemoryPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, evt := range p.events {
		types = append(types, evt.Type)
	}
	return types
}

func (p *MemoryPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
