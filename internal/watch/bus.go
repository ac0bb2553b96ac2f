// Package watch maintains live subscriptions over the store: a change
// bus carrying write notifications per collection, and a manager that
// turns them into fully materialized replacement snapshots.
package watch

import (
	"context"
	"sync"
)

// Collection names, matching the store's document collections.
const (
	CollectionTodos       = "todos"
	CollectionProjects    = "projects"
	CollectionInvitations = "projectInvitations"
)

// Event describes an acknowledged write. ProjectID and UserID are scope
// hints: a todo write carries its project (empty for personal todos) and
// owning user; project and invitation writes carry the users whose views
// they affect.
type Event struct {
	Collection string `json:"collection"`
	ProjectID  string `json:"project_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
}

// Publisher is the write-side of the bus, handed to services.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Bus fans change events out to subscribers of a collection.
type Bus interface {
	Publisher

	// Subscribe returns a channel of events for one collection and a
	// release function. The channel is closed on release.
	Subscribe(ctx context.Context, collection string) (<-chan Event, func(), error)
}

// MemoryBus is an in-process Bus. Production deployments use the Redis
// bus so that instances see each other's writes; tests and single-node
// setups use this one.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]map[chan Event]struct{}),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[ev.Collection] {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; it re-queries on the next event anyway.
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, collection string) (<-chan Event, func(), error) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subs[collection] == nil {
		b.subs[collection] = make(map[chan Event]struct{})
	}
	b.subs[collection][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[collection], ch)
			b.mu.Unlock()
			close(ch)
		})
	}

	return ch, release, nil
}

// ListenerCount reports the number of live listeners on a collection.
func (b *MemoryBus) ListenerCount(collection string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[collection])
}
