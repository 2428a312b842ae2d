package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/Matt0472/giftspire-client/internal/application/notification"
	"github.com/Matt0472/giftspire-client/internal/domain/notification"
)

var errRemote = errors.New("remote down")

// fakeRemote implements app.RemoteAPI with scriptable failures.
type fakeRemote struct {
	listResult []notification.Notification
	listErr    error
	mutateErr  error

	listCalls   int
	markCalls   []string
	markAll     int
	deleteCalls []string
	deleteAll   int
}

func (f *fakeRemote) List(context.Context) ([]notification.Notification, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]notification.Notification(nil), f.listResult...), nil
}

func (f *fakeRemote) MarkRead(_ context.Context, id string) error {
	f.markCalls = append(f.markCalls, id)
	return f.mutateErr
}

func (f *fakeRemote) MarkAllRead(context.Context) error {
	f.markAll++
	return f.mutateErr
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	f.deleteCalls = append(f.deleteCalls, id)
	return f.mutateErr
}

func (f *fakeRemote) DeleteAll(context.Context) error {
	f.deleteAll++
	return f.mutateErr
}

func serverEntry(id, order string, read bool, ts time.Time) notification.Notification {
	return notification.Notification{
		ID:        id,
		Kind:      notification.KindSuccess,
		Title:     "Done",
		Message:   "ready",
		Read:      read,
		Timestamp: ts,
		OrderID:   order,
		SearchID:  order,
	}
}

func TestSyncedStore_FetchAll(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("replaces the list", func(t *testing.T) {
		remote := &fakeRemote{listResult: []notification.Notification{serverEntry("1", "42", false, ts)}}
		store := app.NewSyncedStore(remote)

		require.NoError(t, store.FetchAll(testContext(t)))

		entries := store.Notifications()
		require.Len(t, entries, 1)
		assert.Equal(t, "1", entries[0].ID)
		assert.Equal(t, 1, store.UnreadCount())
		assert.False(t, store.Loading())
	})

	t.Run("failure leaves prior state intact", func(t *testing.T) {
		remote := &fakeRemote{listResult: []notification.Notification{serverEntry("1", "42", false, ts)}}
		store := app.NewSyncedStore(remote)
		require.NoError(t, store.FetchAll(testContext(t)))

		remote.listErr = errRemote
		err := store.FetchAll(testContext(t))

		assert.ErrorIs(t, err, errRemote)
		assert.Len(t, store.Notifications(), 1)
	})
}

func TestSyncedStore_PushFetchReconciliation(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	evt := notification.PushEvent{ID: "srv-1", OrderID: "42", Title: "Done", Message: "ready", Type: "success", Timestamp: ts}
	fetched := []notification.Notification{serverEntry("srv-1", "42", false, ts)}

	t.Run("fetch then push", func(t *testing.T) {
		store := app.NewSyncedStore(&fakeRemote{listResult: fetched})
		require.NoError(t, store.FetchAll(testContext(t)))

		store.AddFromPush(evt)

		assert.Len(t, store.Notifications(), 1)
	})

	t.Run("push then fetch", func(t *testing.T) {
		store := app.NewSyncedStore(&fakeRemote{listResult: fetched})
		store.AddFromPush(evt)

		require.NoError(t, store.FetchAll(testContext(t)))

		assert.Len(t, store.Notifications(), 1)
	})

	t.Run("push without server id deduped by order id and timestamp", func(t *testing.T) {
		store := app.NewSyncedStore(&fakeRemote{listResult: fetched})
		require.NoError(t, store.FetchAll(testContext(t)))

		anonymous := evt
		anonymous.ID = ""
		store.AddFromPush(anonymous)

		assert.Len(t, store.Notifications(), 1)
	})

	t.Run("push applied twice yields one entry", func(t *testing.T) {
		store := app.NewSyncedStore(&fakeRemote{})

		id1 := store.AddFromPush(evt)
		id2 := store.AddFromPush(evt)

		assert.Equal(t, id1, id2)
		assert.Len(t, store.Notifications(), 1)
	})
}

func TestSyncedStore_MarkRead(t *testing.T) {
	ts := time.Now()

	t.Run("optimistic with sync", func(t *testing.T) {
		remote := &fakeRemote{listResult: []notification.Notification{serverEntry("1", "42", false, ts)}}
		store := app.NewSyncedStore(remote)
		require.NoError(t, store.FetchAll(testContext(t)))

		require.NoError(t, store.MarkRead(testContext(t), "1"))

		assert.Equal(t, 0, store.UnreadCount())
		assert.Equal(t, []string{"1"}, remote.markCalls)
	})

	t.Run("rolls back on remote failure", func(t *testing.T) {
		remote := &fakeRemote{listResult: []notification.Notification{serverEntry("1", "42", false, ts)}}
		store := app.NewSyncedStore(remote)
		require.NoError(t, store.FetchAll(testContext(t)))

		remote.mutateErr = errRemote
		err := store.MarkRead(testContext(t), "1")

		assert.ErrorIs(t, err, errRemote)
		assert.Equal(t, 1, store.UnreadCount(), "optimistic flip undone")
	})

	t.Run("already-read entry needs no remote call", func(t *testing.T) {
		remote := &fakeRemote{listResult: []notification.Notification{serverEntry("1", "42", true, ts)}}
		store := app.NewSyncedStore(remote)
		require.NoError(t, store.FetchAll(testContext(t)))

		require.NoError(t, store.MarkRead(testContext(t), "1"))

		assert.Empty(t, remote.markCalls)
	})
}

func TestSyncedStore_BulkRecovery(t *testing.T) {
	ts := time.Now()
	twoUnread := []notification.Notification{
		serverEntry("2", "43", false, ts.Add(time.Minute)),
		serverEntry("1", "42", false, ts),
	}

	t.Run("mark-all-read failure refetches server truth", func(t *testing.T) {
		remote := &fakeRemote{listResult: twoUnread}
		store := app.NewSyncedStore(remote)
		require.NoError(t, store.FetchAll(testContext(t)))

		// Server refuses the bulk call; the refetch returns one entry read,
		// one still unread — the optimistic all-read state must be discarded.
		remote.mutateErr = errRemote
		remote.listResult = []notification.Notification{
			serverEntry("2", "43", true, ts.Add(time.Minute)),
			serverEntry("1", "42", false, ts),
		}

		err := store.MarkAllRead(testContext(t))

		assert.ErrorIs(t, err, errRemote)
		assert.Equal(t, 1, store.UnreadCount(), "feed reflects server state, not the optimistic update")
		assert.Equal(t, 2, remote.listCalls)
	})

	t.Run("remove failure refetches", func(t *testing.T) {
		remote := &fakeRemote{listResult: twoUnread}
		store := app.NewSyncedStore(remote)
		require.NoError(t, store.FetchAll(testContext(t)))

		remote.mutateErr = errRemote
		err := store.Remove(testContext(t), "1")

		assert.ErrorIs(t, err, errRemote)
		assert.Len(t, store.Notifications(), 2, "entry restored by refetch")
	})

	t.Run("remove of unknown id is a no-op", func(t *testing.T) {
		remote := &fakeRemote{listResult: twoUnread}
		store := app.NewSyncedStore(remote)
		require.NoError(t, store.FetchAll(testContext(t)))

		require.NoError(t, store.Remove(testContext(t), "nope"))

		assert.Empty(t, remote.deleteCalls)
	})

	t.Run("clear-all success", func(t *testing.T) {
		remote := &fakeRemote{listResult: twoUnread}
		store := app.NewSyncedStore(remote)
		require.NoError(t, store.FetchAll(testContext(t)))

		require.NoError(t, store.ClearAll(testContext(t)))

		assert.Empty(t, store.Notifications())
		assert.Equal(t, 1, remote.deleteAll)
	})
}
