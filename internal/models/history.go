package models

import "time"

// MessageHistory holds the content a message had before one edit.
type MessageHistory struct {
	ID         int64     `json:"id"`
	MessageID  int64     `json:"message_id"`
	OldContent string    `json:"old_content"`
	EditedAt   time.Time `json:"edited_at"`
}
