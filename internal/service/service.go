package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"messaging/internal/models"
)

const MaxContentLength = 4096

var validate = validator.New()

// NewMessage is the input for SendMessage.
type NewMessage struct {
	SenderID   int64  `json:"sender_id" binding:"required,gt=0" validate:"required,gt=0"`
	ReceiverID int64  `json:"receiver_id" binding:"required,gt=0" validate:"required,gt=0"`
	ParentID   *int64 `json:"parent_id,omitempty" binding:"omitempty,gt=0" validate:"omitempty,gt=0"`
	Content    string `json:"content" binding:"required,max=4096" validate:"required,max=4096"`
}

type MessageService struct {
	repo    MessageRepository
	signals *Signals
	log     logrus.FieldLogger
}

// NewMessageService wires the service. A nil signals registry means
// DefaultSignals.
func NewMessageService(repo MessageRepository, signals *Signals, log logrus.FieldLogger) *MessageService {
	if signals == nil {
		signals = DefaultSignals()
	}
	return &MessageService{repo: repo, signals: signals, log: log}
}

func (s *MessageService) Signals() *Signals {
	return s.signals
}

// SendMessage stores a message and fires the post-create handlers in the
// same transaction.
func (s *MessageService) SendMessage(ctx context.Context, in NewMessage) (*models.Message, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if err := checkContent(in.Content); err != nil {
		return nil, err
	}
	msg := &models.Message{
		SenderID:   in.SenderID,
		ReceiverID: in.ReceiverID,
		ParentID:   in.ParentID,
		Content:    in.Content,
	}
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		for _, id := range []int64{in.SenderID, in.ReceiverID} {
			ok, err := tx.UserExists(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %d: %w", id, models.ErrNotFound)
			}
		}
		if in.ParentID != nil {
			ok, err := tx.MessageExists(ctx, *in.ParentID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("parent message %d: %w", *in.ParentID, models.ErrNotFound)
			}
		}
		if err := tx.InsertMessage(ctx, msg); err != nil {
			return err
		}
		return s.signals.firePostCreate(ctx, tx, msg)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"message_id":  msg.ID,
		"sender_id":   msg.SenderID,
		"receiver_id": msg.ReceiverID,
	}).Info("message sent")
	return msg, nil
}

// SaveMessage writes msg over the stored row, firing the pre-save handlers
// first. msg is updated with whatever the handlers changed.
func (s *MessageService) SaveMessage(ctx context.Context, msg *models.Message) error {
	if err := checkContent(msg.Content); err != nil {
		return err
	}
	return s.repo.WithinTx(ctx, func(tx Tx) error {
		stored, err := tx.LockMessage(ctx, msg.ID)
		if err != nil {
			return err
		}
		return s.save(ctx, tx, stored, msg)
	})
}

// EditMessage replaces the content of a message. Only the sender may edit.
func (s *MessageService) EditMessage(ctx context.Context, messageID, editorID int64, content string) (*models.Message, error) {
	if err := checkContent(content); err != nil {
		return nil, err
	}
	var out *models.Message
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		stored, err := tx.LockMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if stored.SenderID != editorID {
			return fmt.Errorf("user %d cannot edit message %d: %w", editorID, messageID, models.ErrForbidden)
		}
		incoming := *stored
		incoming.Content = content
		if err := s.save(ctx, tx, stored, &incoming); err != nil {
			return err
		}
		out = &incoming
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"message_id": messageID, "edited": out.Edited}).Info("message saved")
	return out, nil
}

func (s *MessageService) save(ctx context.Context, tx Tx, stored, incoming *models.Message) error {
	// Only content is mutable; the rest comes from the locked row.
	incoming.SenderID = stored.SenderID
	incoming.ReceiverID = stored.ReceiverID
	incoming.ParentID = stored.ParentID
	incoming.CreatedAt = stored.CreatedAt
	if !incoming.Edited {
		incoming.Edited = stored.Edited
		incoming.EditedAt = stored.EditedAt
	}
	if err := s.signals.firePreSave(ctx, tx, stored, incoming); err != nil {
		return err
	}
	return tx.UpdateMessage(ctx, incoming)
}

// DeleteMessage removes a message together with its notifications, history
// and replies. Only the sender may delete.
func (s *MessageService) DeleteMessage(ctx context.Context, messageID, userID int64) error {
	err := s.repo.WithinTx(ctx, func(tx Tx) error {
		stored, err := tx.LockMessage(ctx, messageID)
		if err != nil {
			return err
		}
		if stored.SenderID != userID {
			return fmt.Errorf("user %d cannot delete message %d: %w", userID, messageID, models.ErrForbidden)
		}
		return tx.DeleteMessage(ctx, messageID)
	})
	if err != nil {
		return err
	}
	s.log.WithField("message_id", messageID).Info("message deleted")
	return nil
}

func (s *MessageService) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	return s.repo.GetMessage(ctx, id)
}

// History lists the edits of a message, newest first.
func (s *MessageService) History(ctx context.Context, messageID int64) ([]models.MessageHistory, error) {
	if _, err := s.repo.GetMessage(ctx, messageID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, messageID)
}

func (s *MessageService) Notifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	return s.repo.ListNotifications(ctx, userID, unreadOnly)
}

func (s *MessageService) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	return s.repo.MarkNotificationRead(ctx, userID, notificationID)
}

// Conversation returns messages oldest first with sender, receiver and
// direct replies loaded.
func (s *MessageService) Conversation(ctx context.Context, filter models.ConversationFilter) ([]models.ConversationMessage, error) {
	if filter.UserA == nil && filter.UserB != nil {
		filter.UserA, filter.UserB = filter.UserB, nil
	}
	return s.repo.Conversation(ctx, filter)
}

func checkContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is empty", models.ErrInvalidInput)
	}
	if n := len([]rune(content)); n > MaxContentLength {
		return fmt.Errorf("%w: content has %d characters, limit is %d", models.ErrInvalidInput, n, MaxContentLength)
	}
	return nil
}
