package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mlindgren/collab-todo-api/internal/metrics"
	"github.com/mlindgren/collab-todo-api/internal/models"
	"github.com/mlindgren/collab-todo-api/internal/query"
	"github.com/mlindgren/collab-todo-api/internal/repository"
)

type watchTestEnv struct {
	db      *gorm.DB
	bus     *MemoryBus
	manager *Manager
}

func setupWatchTestEnv(t *testing.T) watchTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.ProjectInvitation{},
		&models.Todo{},
	)
	require.NoError(t, err)

	bus := NewMemoryBus()
	manager := NewManager(
		bus,
		repository.NewTodoRepository(db),
		repository.NewProjectRepository(db),
		repository.NewInvitationRepository(db),
		metrics.NopCollector{},
	)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return watchTestEnv{db: db, bus: bus, manager: manager}
}

func receiveSnapshot[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()

	select {
	case snapshot, ok := <-sub.Snapshots():
		require.True(t, ok, "snapshot channel closed unexpectedly")
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		panic("unreachable")
	}
}

func TestManager_WatchTodosInitialSnapshot(t *testing.T) {
	env := setupWatchTestEnv(t)

	require.NoError(t, env.db.Create(&models.Todo{Title: "existing", UserID: "u1"}).Error)

	sub, err := env.manager.WatchTodos(context.Background(),
		query.TodoQuery{Scope: query.PersonalScope("u1"), Sort: query.DefaultSort()})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	snapshot := receiveSnapshot(t, sub)
	require.Len(t, snapshot, 1)
	require.Equal(t, "existing", snapshot[0].Title)
}

func TestManager_WatchTodosReplacementOnEvent(t *testing.T) {
	env := setupWatchTestEnv(t)

	sub, err := env.manager.WatchTodos(context.Background(),
		query.TodoQuery{Scope: query.PersonalScope("u1"), Sort: query.DefaultSort()})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Empty(t, receiveSnapshot(t, sub))

	require.NoError(t, env.db.Create(&models.Todo{Title: "new", UserID: "u1"}).Error)
	require.NoError(t, env.bus.Publish(context.Background(),
		Event{Collection: CollectionTodos, UserID: "u1"}))

	snapshot := receiveSnapshot(t, sub)
	require.Len(t, snapshot, 1)
	require.Equal(t, "new", snapshot[0].Title)
}

func TestManager_WatchTodosIgnoresOtherScopes(t *testing.T) {
	env := setupWatchTestEnv(t)

	sub, err := env.manager.WatchTodos(context.Background(),
		query.TodoQuery{Scope: query.PersonalScope("u1"), Sort: query.DefaultSort()})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Empty(t, receiveSnapshot(t, sub))

	// A write in another user's personal scope must not produce a
	// snapshot.
	require.NoError(t, env.bus.Publish(context.Background(),
		Event{Collection: CollectionTodos, UserID: "u2"}))

	select {
	case snapshot := <-sub.Snapshots():
		t.Fatalf("unexpected snapshot: %v", snapshot)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestManager_UnsubscribeClosesSnapshots(t *testing.T) {
	env := setupWatchTestEnv(t)

	sub, err := env.manager.WatchTodos(context.Background(),
		query.TodoQuery{Scope: query.PersonalScope("u1"), Sort: query.DefaultSort()})
	require.NoError(t, err)

	receiveSnapshot(t, sub)
	require.Equal(t, 1, env.bus.ListenerCount(CollectionTodos))

	sub.Unsubscribe()
	// Safe to call twice.
	sub.Unsubscribe()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Snapshots():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 0, env.bus.ListenerCount(CollectionTodos))
}

func TestManager_ContextCancelReleasesListener(t *testing.T) {
	env := setupWatchTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := env.manager.WatchTodos(ctx,
		query.TodoQuery{Scope: query.PersonalScope("u1"), Sort: query.DefaultSort()})
	require.NoError(t, err)

	receiveSnapshot(t, sub)
	cancel()

	require.Eventually(t, func() bool {
		return env.bus.ListenerCount(CollectionTodos) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_QueryFailureDeliversEmptySnapshot(t *testing.T) {
	env := setupWatchTestEnv(t)

	sub, err := env.manager.WatchTodos(context.Background(),
		query.TodoQuery{Scope: query.PersonalScope("u1"), Sort: query.DefaultSort()})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Empty(t, receiveSnapshot(t, sub))

	require.NoError(t, env.db.Create(&models.Todo{Title: "visible", UserID: "u1"}).Error)

	// Break the store; the re-query fails and the consumer gets an
	// empty snapshot instead of an error or a stale one.
	require.NoError(t, env.db.Migrator().DropTable(&models.Todo{}))
	require.NoError(t, env.bus.Publish(context.Background(),
		Event{Collection: CollectionTodos, UserID: "u1"}))

	snapshot := receiveSnapshot(t, sub)
	require.NotNil(t, snapshot)
	require.Empty(t, snapshot)
}

func TestManager_CoalescesUnreadSnapshots(t *testing.T) {
	env := setupWatchTestEnv(t)

	sub, err := env.manager.WatchTodos(context.Background(),
		query.TodoQuery{Scope: query.PersonalScope("u1"), Sort: query.DefaultSort()})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Empty(t, receiveSnapshot(t, sub))

	for i := 0; i < 5; i++ {
		require.NoError(t, env.db.Create(&models.Todo{Title: "todo", UserID: "u1"}).Error)
		require.NoError(t, env.bus.Publish(context.Background(),
			Event{Collection: CollectionTodos, UserID: "u1"}))
	}

	// Without reading in between, the buffered snapshot is replaced
	// until it reflects all five writes.
	require.Eventually(t, func() bool {
		select {
		case snapshot := <-sub.Snapshots():
			return len(snapshot) == 5
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_WatchInvitationsMatchesRecipient(t *testing.T) {
	env := setupWatchTestEnv(t)

	sub, err := env.manager.WatchInvitations(context.Background(), "u2")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Empty(t, receiveSnapshot(t, sub))

	inv := &models.ProjectInvitation{
		ProjectID:   "p1",
		ProjectName: "Alpha",
		FromUserID:  "u1",
		ToUserID:    "u2",
		Status:      models.InvitationPending,
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, env.db.Create(inv).Error)
	require.NoError(t, env.bus.Publish(context.Background(),
		Event{Collection: CollectionInvitations, ProjectID: "p1", UserID: "u2"}))

	snapshot := receiveSnapshot(t, sub)
	require.Len(t, snapshot, 1)
	require.Equal(t, "Alpha", snapshot[0].ProjectName)
}

func TestTodoFeed_ResubscribeReleasesFirst(t *testing.T) {
	env := setupWatchTestEnv(t)
	feed := NewTodoFeed(env.manager)
	defer feed.Close()

	q1 := query.TodoQuery{Scope: query.PersonalScope("u1"), Sort: query.DefaultSort()}
	sub1, err := feed.Update(context.Background(), q1)
	require.NoError(t, err)
	receiveSnapshot(t, sub1)

	// Same key keeps the subscription.
	same, err := feed.Update(context.Background(), q1)
	require.NoError(t, err)
	require.Same(t, sub1, same)
	require.Equal(t, 1, env.bus.ListenerCount(CollectionTodos))

	// New key swaps it, never holding two listeners at once.
	q2 := query.TodoQuery{Scope: query.ProjectScope("p1"), Sort: query.DefaultSort()}
	sub2, err := feed.Update(context.Background(), q2)
	require.NoError(t, err)
	require.NotSame(t, sub1, sub2)
	require.Equal(t, 1, env.bus.ListenerCount(CollectionTodos))

	feed.Close()
	require.Equal(t, 0, env.bus.ListenerCount(CollectionTodos))
}
