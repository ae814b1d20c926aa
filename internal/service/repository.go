package service

import (
	"context"

	"messaging/internal/models"
)

// Tx is the set of reads and writes available inside one transaction.
type Tx interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	LockMessage(ctx context.Context, id int64) (*models.Message, error)
	UpdateMessage(ctx context.Context, msg *models.Message) error
	DeleteMessage(ctx context.Context, id int64) error
	InsertNotification(ctx context.Context, n *models.Notification) error
	InsertHistory(ctx context.Context, h *models.MessageHistory) error
	UserExists(ctx context.Context, id int64) (bool, error)
	MessageExists(ctx context.Context, id int64) (bool, error)
}

type MessageRepository interface {
	// WithinTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
	ListHistory(ctx context.Context, messageID int64) ([]models.MessageHistory, error)
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID int64) error
	Conversation(ctx context.Context, filter models.ConversationFilter) ([]models.ConversationMessage, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
}
