// Package notification defines the notification feed's core types.
package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification for presentation purposes only.
type Kind string

// Supported notification kinds.
const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// IsValid reports whether the kind is one of the supported values.
func (k Kind) IsValid() bool {
	switch k {
	case KindSuccess, KindInfo, KindWarning, KindError:
		return true
	}
	return false
}

// Notification is a single entry in the user's notification feed.
type Notification struct {
	// ID is either a server-assigned identifier or a locally synthesized one
	// (see NewLocalID) for entries not yet confirmed by an authoritative fetch.
	ID string

	// Kind drives presentation only; no behavior branches on it.
	Kind Kind

	Title   string
	Message string
	Icon    string

	// Read is false on creation and flipped by mark-read operations.
	Read bool

	// Timestamp is the event occurrence time, used for ordering and display.
	Timestamp time.Time

	// OrderID and SearchID correlate the notification with the background
	// search that produced it. Either may be empty.
	OrderID  string
	SearchID string
}

// localIDPrefix marks identifiers synthesized on the client.
const localIDPrefix = "notification-"

// localIDRandomLen is the number of random characters appended to local ids.
const localIDRandomLen = 8

// NewLocalID synthesizes an identifier for a notification that has no
// server-assigned id yet. Local ids are replaced wholesale by the next
// authoritative fetch.
func NewLocalID() string {
	return fmt.Sprintf("%s%d-%s", localIDPrefix, time.Now().UnixMilli(), uuid.NewString()[:localIDRandomLen])
}

// IsLocalID reports whether the id was synthesized by NewLocalID.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}
