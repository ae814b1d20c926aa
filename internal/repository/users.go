package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"messaging/internal/models"
)

func (r *PostgresRepo) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (username, password_hash)
	          VALUES ($1, $2)
	          RETURNING id, created_at;`
	if err := r.db.QueryRowContext(ctx, query, u.Username, u.PasswordHash).Scan(&u.ID, &u.CreatedAt); err != nil {
		return mapError(fmt.Errorf("insert user %q: %w", u.Username, err))
	}
	return nil
}

func (r *PostgresRepo) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username, password_hash, created_at FROM users WHERE id=$1;`
	var u models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}
