package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"messaging/internal/models"
	"messaging/internal/repository"
	"messaging/internal/service"
)

type fixture struct {
	repo     *repository.MemoryRepo
	messages *service.MessageService
	user1    *models.User
	user2    *models.User
}

func newFixture(t *testing.T, signals *service.Signals) *fixture {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	repo := repository.NewMemoryRepo()
	ctx := context.Background()
	user1 := &models.User{Username: "user1", PasswordHash: "x"}
	user2 := &models.User{Username: "user2", PasswordHash: "x"}
	require.NoError(t, repo.CreateUser(ctx, user1))
	require.NoError(t, repo.CreateUser(ctx, user2))
	return &fixture{
		repo:     repo,
		messages: service.NewMessageService(repo, signals, log),
		user1:    user1,
		user2:    user2,
	}
}

func (f *fixture) send(t *testing.T, content string) *models.Message {
	t.Helper()
	msg, err := f.messages.SendMessage(context.Background(), service.NewMessage{
		SenderID:   f.user1.ID,
		ReceiverID: f.user2.ID,
		Content:    content,
	})
	require.NoError(t, err)
	return msg
}

func TestMessageNotificationCreated(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()

	msg := f.send(t, "Hello!")

	notifications, err := f.messages.Notifications(ctx, f.user2.ID, false)
	req.NoError(err)
	req.Len(notifications, 1)
	req.Equal(f.user2.ID, notifications[0].UserID)
	req.Equal(msg.ID, notifications[0].MessageID)
	req.False(notifications[0].IsRead)

	senderNotifications, err := f.messages.Notifications(ctx, f.user1.ID, false)
	req.NoError(err)
	req.Empty(senderNotifications)
}

func TestMessageEditLogged(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()

	msg := f.send(t, "Original")
	msg.Content = "Edited"
	req.NoError(f.messages.SaveMessage(ctx, msg))

	history, err := f.messages.History(ctx, msg.ID)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("Original", history[0].OldContent)
	req.Equal(msg.ID, history[0].MessageID)

	stored, err := f.messages.GetMessage(ctx, msg.ID)
	req.NoError(err)
	req.Equal("Edited", stored.Content)
	req.True(stored.Edited)
	req.NotNil(stored.EditedAt)
	req.True(msg.Edited)
}

func TestEditMessage(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	t.Run("each edit appends the replaced content", func(t *testing.T) {
		req := require.New(t)
		msg := f.send(t, "one")

		_, err := f.messages.EditMessage(ctx, msg.ID, f.user1.ID, "two")
		req.NoError(err)
		edited, err := f.messages.EditMessage(ctx, msg.ID, f.user1.ID, "three")
		req.NoError(err)
		req.Equal("three", edited.Content)

		history, err := f.messages.History(ctx, msg.ID)
		req.NoError(err)
		req.Len(history, 2)
		req.Equal("two", history[0].OldContent)
		req.Equal("one", history[1].OldContent)
	})

	t.Run("saving unchanged content records nothing", func(t *testing.T) {
		req := require.New(t)
		msg := f.send(t, "same")

		saved, err := f.messages.EditMessage(ctx, msg.ID, f.user1.ID, "same")
		req.NoError(err)
		req.False(saved.Edited)

		history, err := f.messages.History(ctx, msg.ID)
		req.NoError(err)
		req.Empty(history)
	})

	t.Run("only the sender may edit", func(t *testing.T) {
		req := require.New(t)
		msg := f.send(t, "mine")

		_, err := f.messages.EditMessage(ctx, msg.ID, f.user2.ID, "yours")
		req.ErrorIs(err, models.ErrForbidden)

		stored, err := f.messages.GetMessage(ctx, msg.ID)
		req.NoError(err)
		req.Equal("mine", stored.Content)
	})

	t.Run("unknown message", func(t *testing.T) {
		_, err := f.messages.EditMessage(ctx, 9999, f.user1.ID, "x")
		require.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		msg := f.send(t, "keep")
		_, err := f.messages.EditMessage(ctx, msg.ID, f.user1.ID, "   ")
		require.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	missing := int64(9999)

	cases := []struct {
		name string
		in   service.NewMessage
		want error
	}{
		{"empty content", service.NewMessage{SenderID: f.user1.ID, ReceiverID: f.user2.ID}, models.ErrInvalidInput},
		{"blank content", service.NewMessage{SenderID: f.user1.ID, ReceiverID: f.user2.ID, Content: " \n"}, models.ErrInvalidInput},
		{"too long", service.NewMessage{SenderID: f.user1.ID, ReceiverID: f.user2.ID, Content: strings.Repeat("é", service.MaxContentLength+1)}, models.ErrInvalidInput},
		{"no sender", service.NewMessage{ReceiverID: f.user2.ID, Content: "hi"}, models.ErrInvalidInput},
		{"unknown receiver", service.NewMessage{SenderID: f.user1.ID, ReceiverID: missing, Content: "hi"}, models.ErrNotFound},
		{"unknown parent", service.NewMessage{SenderID: f.user1.ID, ReceiverID: f.user2.ID, ParentID: &missing, Content: "hi"}, models.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.messages.SendMessage(ctx, tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}

	t.Run("longest allowed content", func(t *testing.T) {
		_, err := f.messages.SendMessage(ctx, service.NewMessage{
			SenderID:   f.user1.ID,
			ReceiverID: f.user2.ID,
			Content:    strings.Repeat("é", service.MaxContentLength),
		})
		require.NoError(t, err)
	})
}

func TestFailingHookRollsBack(t *testing.T) {
	req := require.New(t)
	errBoom := errors.New("boom")
	signals := service.DefaultSignals()
	signals.ConnectPostCreate(func(context.Context, service.Tx, *models.Message) error {
		return errBoom
	})
	f := newFixture(t, signals)
	ctx := context.Background()

	_, err := f.messages.SendMessage(ctx, service.NewMessage{SenderID: f.user1.ID, ReceiverID: f.user2.ID, Content: "lost"})
	req.ErrorIs(err, errBoom)

	conversation, err := f.messages.Conversation(ctx, models.ConversationFilter{})
	req.NoError(err)
	req.Empty(conversation)
	notifications, err := f.messages.Notifications(ctx, f.user2.ID, false)
	req.NoError(err)
	req.Empty(notifications)
}

func TestPreSaveHandlersRunInOrder(t *testing.T) {
	req := require.New(t)
	var calls []string
	signals := service.NewSignals()
	signals.ConnectPreSave(func(_ context.Context, _ service.Tx, stored, incoming *models.Message) error {
		calls = append(calls, "first:"+stored.Content)
		incoming.Content = strings.ToUpper(incoming.Content)
		return nil
	})
	signals.ConnectPreSave(func(_ context.Context, _ service.Tx, _, incoming *models.Message) error {
		calls = append(calls, "second:"+incoming.Content)
		return nil
	})
	f := newFixture(t, signals)
	ctx := context.Background()

	msg := f.send(t, "quiet")
	saved, err := f.messages.EditMessage(ctx, msg.ID, f.user1.ID, "loud")
	req.NoError(err)
	req.Equal("LOUD", saved.Content)
	req.Equal([]string{"first:quiet", "second:LOUD"}, calls)

	notifications, err := f.messages.Notifications(ctx, f.user2.ID, false)
	req.NoError(err)
	req.Empty(notifications, "no post-create handler was connected")
}

func TestDeleteMessage(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()

	parent := f.send(t, "parent")
	_, err := f.messages.SendMessage(ctx, service.NewMessage{
		SenderID:   f.user2.ID,
		ReceiverID: f.user1.ID,
		ParentID:   &parent.ID,
		Content:    "reply",
	})
	req.NoError(err)
	_, err = f.messages.EditMessage(ctx, parent.ID, f.user1.ID, "parent, edited")
	req.NoError(err)

	req.ErrorIs(f.messages.DeleteMessage(ctx, parent.ID, f.user2.ID), models.ErrForbidden)
	req.NoError(f.messages.DeleteMessage(ctx, parent.ID, f.user1.ID))

	_, err = f.messages.GetMessage(ctx, parent.ID)
	req.ErrorIs(err, models.ErrNotFound)
	_, err = f.messages.History(ctx, parent.ID)
	req.ErrorIs(err, models.ErrNotFound)
	conversation, err := f.messages.Conversation(ctx, models.ConversationFilter{})
	req.NoError(err)
	req.Empty(conversation)
	for _, u := range []*models.User{f.user1, f.user2} {
		notifications, err := f.messages.Notifications(ctx, u.ID, false)
		req.NoError(err)
		req.Empty(notifications)
	}
}

func TestConversation(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()
	user3 := &models.User{Username: "user3", PasswordHash: "x"}
	req.NoError(f.repo.CreateUser(ctx, user3))

	first := f.send(t, "first")
	reply, err := f.messages.SendMessage(ctx, service.NewMessage{
		SenderID: f.user2.ID, ReceiverID: f.user1.ID, ParentID: &first.ID, Content: "reply",
	})
	req.NoError(err)
	_, err = f.messages.SendMessage(ctx, service.NewMessage{
		SenderID: user3.ID, ReceiverID: f.user1.ID, Content: "other thread",
	})
	req.NoError(err)

	all, err := f.messages.Conversation(ctx, models.ConversationFilter{})
	req.NoError(err)
	req.Len(all, 3)
	req.Equal(first.ID, all[0].ID)
	req.Equal("user1", all[0].Sender.Username)
	req.Equal("user2", all[0].Receiver.Username)
	req.Len(all[0].Replies, 1)
	req.Equal(reply.ID, all[0].Replies[0].ID)
	req.Empty(all[1].Replies)

	between, err := f.messages.Conversation(ctx, models.ConversationFilter{UserA: &f.user1.ID, UserB: &f.user2.ID})
	req.NoError(err)
	req.Len(between, 2)

	// A lone UserB filter behaves like a lone UserA filter.
	involving3, err := f.messages.Conversation(ctx, models.ConversationFilter{UserB: &user3.ID})
	req.NoError(err)
	req.Len(involving3, 1)
	req.Equal("other thread", involving3[0].Content)
}

func TestMarkNotificationRead(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, nil)
	ctx := context.Background()

	f.send(t, "ping")
	notifications, err := f.messages.Notifications(ctx, f.user2.ID, true)
	req.NoError(err)
	req.Len(notifications, 1)
	id := notifications[0].ID

	req.ErrorIs(f.messages.MarkNotificationRead(ctx, f.user1.ID, id), models.ErrNotFound)
	req.NoError(f.messages.MarkNotificationRead(ctx, f.user2.ID, id))

	unread, err := f.messages.Notifications(ctx, f.user2.ID, true)
	req.NoError(err)
	req.Empty(unread)
	all, err := f.messages.Notifications(ctx, f.user2.ID, false)
	req.NoError(err)
	req.Len(all, 1)
	req.True(all[0].IsRead)
}
