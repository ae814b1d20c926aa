package service_test

import (
	"context"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"messaging/internal/models"
	"messaging/internal/repository"
	"messaging/internal/service"
)

func TestUserService_CreateUser(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	users := service.NewUserService(repository.NewMemoryRepo(), log)
	ctx := context.Background()

	t.Run("should store a hashed password", func(t *testing.T) {
		req := require.New(t)
		u, err := users.CreateUser(ctx, service.NewUser{Username: "alice", Password: "correct horse"})
		req.NoError(err)
		req.NotZero(u.ID)
		req.NotEqual("correct horse", u.PasswordHash)
		req.True(service.CheckPassword(u, "correct horse"))
		req.False(service.CheckPassword(u, "wrong horse"))

		stored, err := users.GetUser(ctx, u.ID)
		req.NoError(err)
		req.Equal("alice", stored.Username)
		req.Equal("user created", hook.LastEntry().Message)
	})

	t.Run("should reject a taken username", func(t *testing.T) {
		_, err := users.CreateUser(ctx, service.NewUser{Username: "alice", Password: "another pass"})
		require.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("should reject invalid input", func(t *testing.T) {
		req := require.New(t)
		_, err := users.CreateUser(ctx, service.NewUser{Username: "bo", Password: "long enough"})
		req.ErrorIs(err, models.ErrInvalidInput)
		_, err = users.CreateUser(ctx, service.NewUser{Username: "bob", Password: "short"})
		req.ErrorIs(err, models.ErrInvalidInput)
		_, err = users.CreateUser(ctx, service.NewUser{Username: "bob smith", Password: "long enough"})
		req.ErrorIs(err, models.ErrInvalidInput)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := users.GetUser(ctx, 4242)
		require.ErrorIs(t, err, models.ErrNotFound)
	})
}
