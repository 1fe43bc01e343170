// internal/app/notify/notify.go
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Payload is one outbound status message. It carries everything the
// delivery channel needs so senders never read the database.
type Payload struct {
	ID                 string    `json:"id"`
	ContactPhone       string    `json:"contact_phone"`
	ContactDisplayName string    `json:"contact_display_name"`
	EventTitle         string    `json:"event_title"`
	Status             string    `json:"status"`
	GuestCount         int       `json:"guest_count,omitempty"`
	Note               string    `json:"note,omitempty"`
	RejectReason       string    `json:"reject_reason,omitempty"`
	CancelReason       string    `json:"cancel_reason,omitempty"`
	QueuedAt           time.Time `json:"queued_at"`
}

// NewPayload stamps a payload with an ID and queue time.
func NewPayload(p Payload) Payload {
	p.ID = uuid.NewString()
	p.QueuedAt = time.Now().UTC()
	return p
}

// Sender delivers one payload over some channel (SMS gateway, webhook,
// log-only in development).
type Sender interface {
	Send(ctx context.Context, p Payload) error
}
