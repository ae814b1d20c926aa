package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"messaging/internal/models"
)

// LogSender only logs notifications. It is the transport when nothing else
// is configured.
type LogSender struct {
	log logrus.FieldLogger
}

func NewLogSender(log logrus.FieldLogger) *LogSender {
	return &LogSender{log: log}
}

func (l *LogSender) Send(_ context.Context, n models.PendingNotification) (string, error) {
	event := NewEvent(n)
	l.log.WithFields(logrus.Fields{
		"event_id":        event.EventID,
		"notification_id": event.NotificationID,
		"user_id":         event.UserID,
		"message_id":      event.MessageID,
	}).Info("notification")
	return event.EventID, nil
}
