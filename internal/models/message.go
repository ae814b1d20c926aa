package models

import "time"

// Message is a direct message from one user to another. A message with a
// ParentID is a reply to that parent.
type Message struct {
	ID         int64      `json:"id"`
	SenderID   int64      `json:"sender_id"`
	ReceiverID int64      `json:"receiver_id"`
	ParentID   *int64     `json:"parent_id,omitempty"`
	Content    string     `json:"content"`
	Edited     bool       `json:"edited"`
	CreatedAt  time.Time  `json:"created_at"`
	EditedAt   *time.Time `json:"edited_at,omitempty"`
}

// IsReply reports whether the message answers another message.
func (m *Message) IsReply() bool {
	return m.ParentID != nil
}

// ConversationMessage is a message with its sender, receiver and replies
// loaded alongside it.
type ConversationMessage struct {
	Message
	Sender   User      `json:"sender"`
	Receiver User      `json:"receiver"`
	Replies  []Message `json:"replies"`
}

// ConversationFilter narrows a conversation to the messages one user sent or
// received (UserA only) or to the messages exchanged between two users.
type ConversationFilter struct {
	UserA *int64
	UserB *int64
}
