package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"messaging/internal/models"
)

type NewUser struct {
	Username string `json:"username" binding:"required,min=3,max=150,alphanum" validate:"required,min=3,max=150,alphanum"`
	Password string `json:"password" binding:"required,min=8,max=72" validate:"required,min=8,max=72"`
}

type UserService struct {
	repo UserRepository
	log  logrus.FieldLogger
}

func NewUserService(repo UserRepository, log logrus.FieldLogger) *UserService {
	return &UserService{repo: repo, log: log}
}

// CreateUser stores a user with a bcrypt hash of the password.
func (s *UserService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{Username: in.Username, PasswordHash: string(hash)}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("user created")
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// CheckPassword reports whether password matches the user's stored hash.
func CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
