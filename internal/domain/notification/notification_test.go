package notification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Matt0472/giftspire-client/internal/domain/notification"
)

func TestKind_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		kind  notification.Kind
		valid bool
	}{
		{"success", notification.KindSuccess, true},
		{"info", notification.KindInfo, true},
		{"warning", notification.KindWarning, true},
		{"error", notification.KindError, true},
		{"empty", notification.Kind(""), false},
		{"unknown", notification.Kind("fatal"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.kind.IsValid())
		})
	}
}

func TestNewLocalID(t *testing.T) {
	t.Run("is recognizable as local", func(t *testing.T) {
		id := notification.NewLocalID()

		assert.True(t, notification.IsLocalID(id))
		assert.False(t, notification.IsLocalID("42"))
		assert.False(t, notification.IsLocalID("b1c2d3"))
	})

	t.Run("is unique", func(t *testing.T) {
		assert.NotEqual(t, notification.NewLocalID(), notification.NewLocalID())
	})
}

func TestPushEvent_Notification(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("maps all fields", func(t *testing.T) {
		evt := notification.PushEvent{
			OrderID:   "42",
			Title:     "Done",
			Message:   "Your search is ready",
			Icon:      "gift",
			Type:      "success",
			Timestamp: ts,
		}

		n := evt.Notification()

		assert.Equal(t, notification.KindSuccess, n.Kind)
		assert.Equal(t, "Done", n.Title)
		assert.Equal(t, "Your search is ready", n.Message)
		assert.Equal(t, "gift", n.Icon)
		assert.False(t, n.Read)
		assert.Equal(t, ts, n.Timestamp)
		assert.Equal(t, "42", n.OrderID)
		assert.Equal(t, "42", n.SearchID)
		assert.True(t, notification.IsLocalID(n.ID))
	})

	t.Run("keeps server-assigned id", func(t *testing.T) {
		evt := notification.PushEvent{ID: "srv-7", Title: "t", Message: "m", Type: "info", Timestamp: ts}

		n := evt.Notification()

		assert.Equal(t, "srv-7", n.ID)
		assert.False(t, notification.IsLocalID(n.ID))
	})

	t.Run("unknown type degrades to info", func(t *testing.T) {
		evt := notification.PushEvent{Title: "t", Message: "m", Type: "shiny", Timestamp: ts}

		assert.Equal(t, notification.KindInfo, evt.Notification().Kind)
	})
}

func TestPushEvent_Matches(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("matches by server id", func(t *testing.T) {
		evt := notification.PushEvent{ID: "srv-7", Timestamp: ts}

		assert.True(t, evt.Matches(notification.Notification{ID: "srv-7"}))
		assert.False(t, evt.Matches(notification.Notification{ID: "srv-8"}))
	})

	t.Run("matches by order id and timestamp", func(t *testing.T) {
		evt := notification.PushEvent{OrderID: "42", Timestamp: ts}

		assert.True(t, evt.Matches(notification.Notification{ID: "srv-7", OrderID: "42", Timestamp: ts}))
		assert.False(t, evt.Matches(notification.Notification{ID: "srv-7", OrderID: "42", Timestamp: ts.Add(time.Second)}))
		assert.False(t, evt.Matches(notification.Notification{ID: "srv-7", OrderID: "43", Timestamp: ts}))
	})

	t.Run("empty event matches nothing", func(t *testing.T) {
		evt := notification.PushEvent{Timestamp: ts}

		assert.False(t, evt.Matches(notification.Notification{OrderID: "", Timestamp: ts}))
	})
}
