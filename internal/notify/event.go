package notify

import (
	"time"

	"github.com/google/uuid"

	"messaging/internal/models"
)

// Event is the wire form of a notification, shared by every transport.
type Event struct {
	EventID        string    `json:"event_id"`
	NotificationID int64     `json:"notification_id"`
	UserID         int64     `json:"user_id"`
	MessageID      int64     `json:"message_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewEvent(n models.PendingNotification) Event {
	return Event{
		EventID:        uuid.NewString(),
		NotificationID: n.ID,
		UserID:         n.UserID,
		MessageID:      n.MessageID,
		SenderID:       n.SenderID,
		Content:        n.Content,
		CreatedAt:      n.CreatedAt,
	}
}
