package notification

import "time"

// PushEvent is the payload delivered on the private channel when a background
// search completes. Field names match the backend's broadcast event.
type PushEvent struct {
	// ID is the server-assigned notification id when the backend persisted
	// the notification before pushing it. It may be empty.
	ID string `json:"id,omitempty"`

	OrderID   string    `json:"order_id,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon,omitempty"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification maps the push payload into a feed entry. Unknown kinds
// degrade to info; a local id is synthesized when the event carries no
// server-assigned one. The order id doubles as the search correlation id,
// matching the originating backend job.
func (e PushEvent) Notification() Notification {
	kind := Kind(e.Type)
	if !kind.IsValid() {
		kind = KindInfo
	}

	id := e.ID
	if id == "" {
		id = NewLocalID()
	}

	return Notification{
		ID:        id,
		Kind:      kind,
		Title:     e.Title,
		Message:   e.Message,
		Icon:      e.Icon,
		Read:      false,
		Timestamp: e.Timestamp,
		OrderID:   e.OrderID,
		SearchID:  e.OrderID,
	}
}

// Matches reports whether an existing feed entry describes the same
// underlying server event as this payload. Used to de-duplicate when a fetch
// result and a push event both describe one event, in either arrival order.
func (e PushEvent) Matches(n Notification) bool {
	if e.ID != "" && e.ID == n.ID {
		return true
	}
	return e.OrderID != "" && e.OrderID == n.OrderID && e.Timestamp.Equal(n.Timestamp)
}
