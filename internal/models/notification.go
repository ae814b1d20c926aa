package models

import "time"

// Notification tells UserID that MessageID arrived.
type Notification struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	MessageID   int64      `json:"message_id"`
	IsRead      bool       `json:"is_read"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// PendingNotification is an undelivered notification joined with the
// message that triggered it.
type PendingNotification struct {
	Notification
	SenderID int64  `json:"sender_id"`
	Content  string `json:"content"`
}
