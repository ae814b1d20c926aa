package service

//go:generate mockgen -source=delivery.go -destination=../mocks/mock_dispatcher.go -package=mocks

import (
	"context"
	"time"

	"messaging/internal/models"
)

type NotificationRepository interface {
	PendingNotifications(ctx context.Context, limit int) ([]models.PendingNotification, error)
	MarkNotificationDelivered(ctx context.Context, id int64, at time.Time) error
}

// Sender pushes a notification to the outside world and returns the
// transport's delivery id.
type Sender interface {
	Send(ctx context.Context, n models.PendingNotification) (string, error)
}

type ReceiptCache interface {
	StoreReceipt(ctx context.Context, notificationID int64, deliveryID string, at time.Time) error
}
