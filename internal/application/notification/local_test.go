package notification_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/Matt0472/giftspire-client/internal/application/notification"
	"github.com/Matt0472/giftspire-client/internal/domain/notification"
)

func pushEvent(order string, ts time.Time) notification.PushEvent {
	return notification.PushEvent{
		OrderID:   order,
		Title:     "Done",
		Message:   "search " + order + " is ready",
		Type:      "success",
		Timestamp: ts,
	}
}

func TestLocalStore_Ordering(t *testing.T) {
	store := app.NewLocalStore(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		store.AddFromPush(pushEvent(fmt.Sprint(i), base.Add(time.Duration(i)*time.Minute)))
	}

	entries := store.Notifications()
	require.Len(t, entries, 3)
	assert.Equal(t, "2", entries[0].OrderID, "position 0 is the most recent")
	assert.Equal(t, "1", entries[1].OrderID)
	assert.Equal(t, "0", entries[2].OrderID)
}

func TestLocalStore_Capacity(t *testing.T) {
	const capacity = 5
	store := app.NewLocalStore(capacity)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < capacity+3; i++ {
		store.AddFromPush(pushEvent(fmt.Sprint(i), base.Add(time.Duration(i)*time.Minute)))
	}

	entries := store.Notifications()
	require.Len(t, entries, capacity)
	// The retained entries are the cap most recent ones.
	assert.Equal(t, "7", entries[0].OrderID)
	assert.Equal(t, "3", entries[capacity-1].OrderID)
}

func TestLocalStore_PushIdempotence(t *testing.T) {
	store := app.NewLocalStore(10)
	evt := notification.PushEvent{ID: "srv-1", Title: "t", Message: "m", Type: "info", Timestamp: time.Now()}

	id1 := store.AddFromPush(evt)
	id2 := store.AddFromPush(evt)

	assert.Equal(t, id1, id2)
	assert.Len(t, store.Notifications(), 1)
}

func TestLocalStore_ReadState(t *testing.T) {
	store := app.NewLocalStore(10)
	ts := time.Now()
	id1 := store.AddFromPush(pushEvent("1", ts))
	id2 := store.AddFromPush(pushEvent("2", ts.Add(time.Minute)))

	assert.Equal(t, 2, store.UnreadCount())

	require.NoError(t, store.MarkRead(testContext(t), id1))
	assert.Equal(t, 1, store.UnreadCount())

	// Unknown ids are ignored.
	require.NoError(t, store.MarkRead(testContext(t), "nope"))
	assert.Equal(t, 1, store.UnreadCount())

	require.NoError(t, store.MarkAllRead(testContext(t)))
	assert.Equal(t, 0, store.UnreadCount())

	require.NoError(t, store.Remove(testContext(t), id2))
	assert.Len(t, store.Notifications(), 1)

	require.NoError(t, store.ClearAll(testContext(t)))
	assert.Empty(t, store.Notifications())
}

func TestLocalStore_FetchAllIsNoop(t *testing.T) {
	store := app.NewLocalStore(10)
	store.AddFromPush(pushEvent("1", time.Now()))

	require.NoError(t, store.FetchAll(testContext(t)))

	assert.Len(t, store.Notifications(), 1)
	assert.False(t, store.Loading())
}
