package watch

import (
	"context"

	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/query"
)

// TodoFeed holds at most one live todo subscription for a consumer.
// When the query key changes, the prior listener is released before the
// new one is established, so a feed never has two listeners registered.
type TodoFeed struct {
	manager *Manager
	current *Subscription[[]models.Todo]
}

func NewTodoFeed(manager *Manager) *TodoFeed {
	return &TodoFeed{manager: manager}
}

// Update re-subscribes if q differs from the current query. Returns the
// active subscription; unchanged keys keep the existing one.
func (f *TodoFeed) Update(ctx context.Context, q query.TodoQuery) (*Subscription[[]models.Todo], error) {
	key := q.Key()
	if f.current != nil && f.current.Key() == key {
		return f.current, nil
	}

	if f.current != nil {
		f.current.Unsubscribe()
		f.current = nil
	}

	sub, err := f.manager.WatchTodos(ctx, q)
	if err != nil {
		return nil, err
	}
	f.current = sub
	return sub, nil
}

// Close releases the current subscription, if any.
func (f *TodoFeed) Close() {
	if f.current != nil {
		f.current.Unsubscribe()
		f.current = nil
	}
}
