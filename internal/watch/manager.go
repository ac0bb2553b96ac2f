package watch

import (
	"context"
	"log"

	"github.com/mlindgren/collab-todo-api/internal/metrics"
	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/query"
	"github.com/mlindgren/collab-todo-api/internal/repository"
)

// Manager materializes live snapshots. Each subscription holds one bus
// listener; every matching change event triggers a full re-query whose
// result replaces the previous snapshot wholesale. There is no caching
// across queries and no automatic retry: a failed query is logged and
// degrades to an empty snapshot.
type Manager struct {
	bus         Bus
	todoRepo    repository.TodoRepository
	projectRepo repository.ProjectRepository
	invRepo     repository.InvitationRepository
	collector   metrics.Collector
}

func NewManager(
	bus Bus,
	todoRepo repository.TodoRepository,
	projectRepo repository.ProjectRepository,
	invRepo repository.InvitationRepository,
	collector metrics.Collector,
) *Manager {
	return &Manager{
		bus:         bus,
		todoRepo:    todoRepo,
		projectRepo: projectRepo,
		invRepo:     invRepo,
		collector:   collector,
	}
}

// Subscription is one live query. Snapshots delivers full replacement
// result sets; an unread snapshot is replaced, never queued, when a
// newer one arrives. The channel is closed on Unsubscribe or context
// cancellation.
type Subscription[T any] struct {
	key       string
	snapshots chan T
	release   func()
}

func (s *Subscription[T]) Key() string { return s.key }

func (s *Subscription[T]) Snapshots() <-chan T { return s.snapshots }

// Unsubscribe releases the bus listener. Safe to call more than once.
func (s *Subscription[T]) Unsubscribe() { s.release() }

// WatchTodos opens a subscription for a composed todo query.
func (m *Manager) WatchTodos(ctx context.Context, q query.TodoQuery) (*Subscription[[]models.Todo], error) {
	load := func() ([]models.Todo, error) {
		todos, _, err := m.todoRepo.List(q, 0, 0)
		return todos, err
	}
	match := func(ev Event) bool {
		return q.MatchesChange(ev.ProjectID, ev.UserID)
	}
	return subscribe(ctx, m, CollectionTodos, q.Key(), match, load, []models.Todo{})
}

// WatchProjects opens a subscription for the projects a user belongs
// to. Any project write can change membership-derived views, so every
// event triggers a re-query.
func (m *Manager) WatchProjects(ctx context.Context, userID string) (*Subscription[[]models.Project], error) {
	load := func() ([]models.Project, error) {
		return m.projectRepo.ListByMember(userID)
	}
	match := func(ev Event) bool { return true }
	return subscribe(ctx, m, CollectionProjects, "projects="+userID, match, load, []models.Project{})
}

// WatchInvitations opens a subscription for a user's pending invitations.
func (m *Manager) WatchInvitations(ctx context.Context, userID string) (*Subscription[[]models.ProjectInvitation], error) {
	load := func() ([]models.ProjectInvitation, error) {
		return m.invRepo.ListPendingByRecipient(userID)
	}
	match := func(ev Event) bool { return ev.UserID == userID }
	return subscribe(ctx, m, CollectionInvitations, "invitations="+userID, match, load, []models.ProjectInvitation{})
}

func subscribe[T any](
	ctx context.Context,
	m *Manager,
	collection, key string,
	match func(Event) bool,
	load func() (T, error),
	empty T,
) (*Subscription[T], error) {
	events, release, err := m.bus.Subscribe(ctx, collection)
	if err != nil {
		return nil, err
	}

	m.collector.SubscriptionOpened(collection)

	sub := &Subscription[T]{
		key:       key,
		snapshots: make(chan T, 1),
		release:   release,
	}

	// Initial snapshot before any event arrives, so the consumer's
	// loading state clears even on a failed query.
	sub.deliver(m, collection, load, empty)

	go func() {
		defer func() {
			m.collector.SubscriptionClosed(collection)
			close(sub.snapshots)
		}()

		for {
			select {
			case <-ctx.Done():
				release()
				for range events {
				}
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if !match(ev) {
					continue
				}
				sub.deliver(m, collection, load, empty)
			}
		}
	}()

	return sub, nil
}

// deliver re-queries and replaces the pending snapshot. An unread
// snapshot is dropped first; consumers always see the newest result set.
func (s *Subscription[T]) deliver(m *Manager, collection string, load func() (T, error), empty T) {
	snapshot, err := load()
	if err != nil {
		log.Printf("watch: %s query failed: %v", collection, err)
		m.collector.RecordQueryFailure(collection)
		snapshot = empty
	} else {
		m.collector.RecordSnapshot(collection)
	}

	for {
		select {
		case s.snapshots <- snapshot:
			return
		default:
			select {
			case <-s.snapshots:
			default:
			}
		}
	}
}
