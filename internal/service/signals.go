package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"messaging/internal/models"
)

// PostCreateHandler runs inside the creating transaction once msg has been
// inserted and carries its id and timestamps.
type PostCreateHandler func(ctx context.Context, tx Tx, msg *models.Message) error

// PreSaveHandler runs inside the saving transaction before incoming is
// written. stored is the locked database row. Handlers may modify incoming.
type PreSaveHandler func(ctx context.Context, tx Tx, stored, incoming *models.Message) error

// Signals holds the message lifecycle handlers. Handlers run in the order
// they were connected and the first error aborts the transaction.
type Signals struct {
	mu         sync.RWMutex
	postCreate []PostCreateHandler
	preSave    []PreSaveHandler
}

// NewSignals returns a registry with no handlers connected.
func NewSignals() *Signals {
	return &Signals{}
}

// DefaultSignals connects CreateNotification and LogEdit.
func DefaultSignals() *Signals {
	s := NewSignals()
	s.ConnectPostCreate(CreateNotification)
	s.ConnectPreSave(LogEdit)
	return s
}

func (s *Signals) ConnectPostCreate(h PostCreateHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postCreate = append(s.postCreate, h)
}

func (s *Signals) ConnectPreSave(h PreSaveHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preSave = append(s.preSave, h)
}

func (s *Signals) firePostCreate(ctx context.Context, tx Tx, msg *models.Message) error {
	s.mu.RLock()
	handlers := append([]PostCreateHandler(nil), s.postCreate...)
	s.mu.RUnlock()
	for _, h := range handlers {
		if err := h(ctx, tx, msg); err != nil {
			return fmt.Errorf("post-create handler: %w", err)
		}
	}
	return nil
}

func (s *Signals) firePreSave(ctx context.Context, tx Tx, stored, incoming *models.Message) error {
	s.mu.RLock()
	handlers := append([]PreSaveHandler(nil), s.preSave...)
	s.mu.RUnlock()
	for _, h := range handlers {
		if err := h(ctx, tx, stored, incoming); err != nil {
			return fmt.Errorf("pre-save handler: %w", err)
		}
	}
	return nil
}

// CreateNotification notifies the receiver of a new message.
func CreateNotification(ctx context.Context, tx Tx, msg *models.Message) error {
	n := &models.Notification{UserID: msg.ReceiverID, MessageID: msg.ID}
	if err := tx.InsertNotification(ctx, n); err != nil {
		return fmt.Errorf("create notification for message %d: %w", msg.ID, err)
	}
	return nil
}

// LogEdit records the stored content in the message history when the
// content changes, and flags incoming as edited.
func LogEdit(ctx context.Context, tx Tx, stored, incoming *models.Message) error {
	if stored.Content == incoming.Content {
		return nil
	}
	now := time.Now().UTC()
	h := &models.MessageHistory{
		MessageID:  stored.ID,
		OldContent: stored.Content,
		EditedAt:   now,
	}
	if err := tx.InsertHistory(ctx, h); err != nil {
		return fmt.Errorf("log edit of message %d: %w", stored.ID, err)
	}
	incoming.Edited = true
	incoming.EditedAt = &now
	return nil
}
