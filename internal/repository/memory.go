package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"messaging/internal/models"
	"messaging/internal/service"
)

// MemoryRepo keeps everything in process memory. Transactions are
// serialized and a failed transaction restores the previous state.
type MemoryRepo struct {
	mu    sync.Mutex
	state memState
	now   func() time.Time
}

type memState struct {
	nextID        int64
	users         map[int64]models.User
	messages      map[int64]models.Message
	notifications map[int64]models.Notification
	history       map[int64]models.MessageHistory
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		state: memState{
			users:         map[int64]models.User{},
			messages:      map[int64]models.Message{},
			notifications: map[int64]models.Notification{},
			history:       map[int64]models.MessageHistory{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ service.MessageRepository      = (*MemoryRepo)(nil)
	_ service.UserRepository         = (*MemoryRepo)(nil)
	_ service.NotificationRepository = (*MemoryRepo)(nil)
)

func (s memState) clone() memState {
	c := memState{
		nextID:        s.nextID,
		users:         make(map[int64]models.User, len(s.users)),
		messages:      make(map[int64]models.Message, len(s.messages)),
		notifications: make(map[int64]models.Notification, len(s.notifications)),
		history:       make(map[int64]models.MessageHistory, len(s.history)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.messages {
		c.messages[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	for k, v := range s.history {
		c.history[k] = v
	}
	return c
}

func (r *MemoryRepo) id() int64 {
	r.state.nextID++
	return r.state.nextID
}

func (r *MemoryRepo) WithinTx(ctx context.Context, fn func(tx service.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := r.state.clone()
	if err := fn(&memTx{r: r}); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

type memTx struct {
	r *MemoryRepo
}

func (t *memTx) InsertMessage(_ context.Context, msg *models.Message) error {
	msg.ID = t.r.id()
	msg.CreatedAt = t.r.now()
	t.r.state.messages[msg.ID] = *msg
	return nil
}

func (t *memTx) LockMessage(_ context.Context, id int64) (*models.Message, error) {
	msg, ok := t.r.state.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, models.ErrNotFound)
	}
	return &msg, nil
}

func (t *memTx) UpdateMessage(_ context.Context, msg *models.Message) error {
	stored, ok := t.r.state.messages[msg.ID]
	if !ok {
		return fmt.Errorf("message %d: %w", msg.ID, models.ErrNotFound)
	}
	stored.Content = msg.Content
	stored.Edited = msg.Edited
	stored.EditedAt = msg.EditedAt
	t.r.state.messages[msg.ID] = stored
	return nil
}

func (t *memTx) DeleteMessage(_ context.Context, id int64) error {
	if _, ok := t.r.state.messages[id]; !ok {
		return fmt.Errorf("message %d: %w", id, models.ErrNotFound)
	}
	t.r.state.deleteMessage(id)
	return nil
}

func (s memState) deleteMessage(id int64) {
	delete(s.messages, id)
	for nid, n := range s.notifications {
		if n.MessageID == id {
			delete(s.notifications, nid)
		}
	}
	for hid, h := range s.history {
		if h.MessageID == id {
			delete(s.history, hid)
		}
	}
	for mid, m := range s.messages {
		if m.ParentID != nil && *m.ParentID == id {
			s.deleteMessage(mid)
		}
	}
}

func (t *memTx) InsertNotification(_ context.Context, n *models.Notification) error {
	if _, ok := t.r.state.messages[n.MessageID]; !ok {
		return fmt.Errorf("message %d: %w", n.MessageID, models.ErrNotFound)
	}
	n.ID = t.r.id()
	n.CreatedAt = t.r.now()
	t.r.state.notifications[n.ID] = *n
	return nil
}

func (t *memTx) InsertHistory(_ context.Context, h *models.MessageHistory) error {
	if _, ok := t.r.state.messages[h.MessageID]; !ok {
		return fmt.Errorf("message %d: %w", h.MessageID, models.ErrNotFound)
	}
	h.ID = t.r.id()
	t.r.state.history[h.ID] = *h
	return nil
}

func (t *memTx) UserExists(_ context.Context, id int64) (bool, error) {
	_, ok := t.r.state.users[id]
	return ok, nil
}

func (t *memTx) MessageExists(_ context.Context, id int64) (bool, error) {
	_, ok := t.r.state.messages[id]
	return ok, nil
}

func (r *MemoryRepo) CreateUser(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.state.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: username %q is taken", models.ErrConflict, u.Username)
		}
	}
	u.ID = r.id()
	u.CreatedAt = r.now()
	r.state.users[u.ID] = *u
	return nil
}

func (r *MemoryRepo) GetUser(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.state.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	return &u, nil
}

func (r *MemoryRepo) GetMessage(_ context.Context, id int64) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.state.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, models.ErrNotFound)
	}
	return &msg, nil
}

func (r *MemoryRepo) ListHistory(_ context.Context, messageID int64) ([]models.MessageHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := []models.MessageHistory{}
	for _, h := range r.state.history {
		if h.MessageID == messageID {
			results = append(results, h)
		}
	}
	// IDs grow with insertion order, so the largest id is the newest edit.
	sort.Slice(results, func(i, j int) bool { return results[i].ID > results[j].ID })
	return results, nil
}

func (r *MemoryRepo) ListNotifications(_ context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := []models.Notification{}
	for _, n := range r.state.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		results = append(results, n)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID > results[j].ID })
	return results, nil
}

func (r *MemoryRepo) MarkNotificationRead(_ context.Context, userID, notificationID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.state.notifications[notificationID]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %d: %w", notificationID, models.ErrNotFound)
	}
	n.IsRead = true
	r.state.notifications[notificationID] = n
	return nil
}

func (r *MemoryRepo) PendingNotifications(_ context.Context, limit int) ([]models.PendingNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var results []models.PendingNotification
	for _, n := range r.state.notifications {
		if n.DeliveredAt != nil {
			continue
		}
		msg := r.state.messages[n.MessageID]
		results = append(results, models.PendingNotification{Notification: n, SenderID: msg.SenderID, Content: msg.Content})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *MemoryRepo) MarkNotificationDelivered(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.state.notifications[id]
	if !ok {
		return fmt.Errorf("notification %d: %w", id, models.ErrNotFound)
	}
	n.DeliveredAt = &at
	r.state.notifications[id] = n
	return nil
}

func (r *MemoryRepo) Conversation(_ context.Context, filter models.ConversationFilter) ([]models.ConversationMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	results := []models.ConversationMessage{}
	for _, m := range r.state.messages {
		if !matches(filter, m) {
			continue
		}
		results = append(results, models.ConversationMessage{
			Message:  m,
			Sender:   r.state.users[m.SenderID],
			Receiver: r.state.users[m.ReceiverID],
			Replies:  []models.Message{},
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	index := make(map[int64]int, len(results))
	for i, cm := range results {
		index[cm.ID] = i
	}
	var replies []models.Message
	for _, m := range r.state.messages {
		if m.ParentID != nil {
			replies = append(replies, m)
		}
	}
	sort.Slice(replies, func(i, j int) bool { return replies[i].ID < replies[j].ID })
	for _, reply := range replies {
		if i, ok := index[*reply.ParentID]; ok {
			results[i].Replies = append(results[i].Replies, reply)
		}
	}
	return results, nil
}

func matches(f models.ConversationFilter, m models.Message) bool {
	switch {
	case f.UserA != nil && f.UserB != nil:
		a, b := *f.UserA, *f.UserB
		return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
	case f.UserA != nil:
		return m.SenderID == *f.UserA || m.ReceiverID == *f.UserA
	}
	return true
}
