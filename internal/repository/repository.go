package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/multierr"

	"messaging/internal/models"
	"messaging/internal/service"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username VARCHAR(150) NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS messages (
	id BIGSERIAL PRIMARY KEY,
	sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	receiver_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	parent_id BIGINT REFERENCES messages(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	edited BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	edited_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS messages_parent_id_idx ON messages (parent_id);
CREATE INDEX IF NOT EXISTS messages_participants_idx ON messages (sender_id, receiver_id);
CREATE TABLE IF NOT EXISTS notifications (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	is_read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	delivered_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS notifications_user_id_idx ON notifications (user_id);
CREATE INDEX IF NOT EXISTS notifications_pending_idx ON notifications (id) WHERE delivered_at IS NULL;
CREATE TABLE IF NOT EXISTS message_history (
	id BIGSERIAL PRIMARY KEY,
	message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	old_content TEXT NOT NULL,
	edited_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS message_history_message_id_idx ON message_history (message_id);
`

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(ctx context.Context, connStr string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repo := &PostgresRepo{db: db}
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewPostgresRepoFromDB wraps an open pool without touching the schema.
func NewPostgresRepoFromDB(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Migrate creates the tables and indexes when they do not exist.
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema exists: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Close() error {
	return r.db.Close()
}

var (
	_ service.MessageRepository      = (*PostgresRepo)(nil)
	_ service.UserRepository         = (*PostgresRepo)(nil)
	_ service.NotificationRepository = (*PostgresRepo)(nil)
	_ service.Tx                     = (*pgTx)(nil)
)

func (r *PostgresRepo) WithinTx(ctx context.Context, fn func(tx service.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const messageColumns = `id, sender_id, receiver_id, parent_id, content, edited, created_at, edited_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		msg      models.Message
		parentID sql.NullInt64
		editedAt sql.NullTime
	)
	if err := row.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &parentID, &msg.Content, &msg.Edited, &msg.CreatedAt, &editedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		msg.ParentID = &id
	}
	if editedAt.Valid {
		t := editedAt.Time
		msg.EditedAt = &t
	}
	return &msg, nil
}

func getMessage(ctx context.Context, q queryer, id int64, forUpdate bool) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	msg, err := scanMessage(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return msg, nil
}

func (r *PostgresRepo) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	return getMessage(ctx, r.db, id, false)
}

// mapError turns constraint violations into the model's sentinel errors.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code.Name() {
	case "unique_violation":
		return fmt.Errorf("%w: %s", models.ErrConflict, pqErr.Detail)
	case "foreign_key_violation":
		return fmt.Errorf("%w: %s", models.ErrNotFound, pqErr.Detail)
	case "check_violation", "not_null_violation":
		return fmt.Errorf("%w: %s", models.ErrInvalidInput, pqErr.Message)
	}
	return err
}
