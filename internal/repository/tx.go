package repository

import (
	"context"
	"database/sql"
	"fmt"

	"messaging/internal/models"
)

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) InsertMessage(ctx context.Context, msg *models.Message) error {
	var parentID sql.NullInt64
	if msg.ParentID != nil {
		parentID = sql.NullInt64{Int64: *msg.ParentID, Valid: true}
	}
	query := `INSERT INTO messages (sender_id, receiver_id, parent_id, content)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id, created_at;`
	err := t.tx.QueryRowContext(ctx, query, msg.SenderID, msg.ReceiverID, parentID, msg.Content).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return mapError(fmt.Errorf("insert message: %w", err))
	}
	return nil
}

func (t *pgTx) LockMessage(ctx context.Context, id int64) (*models.Message, error) {
	return getMessage(ctx, t.tx, id, true)
}

func (t *pgTx) UpdateMessage(ctx context.Context, msg *models.Message) error {
	var editedAt sql.NullTime
	if msg.EditedAt != nil {
		editedAt = sql.NullTime{Time: *msg.EditedAt, Valid: true}
	}
	query := `UPDATE messages
	          SET content=$2, edited=$3, edited_at=$4
	          WHERE id=$1;`
	res, err := t.tx.ExecContext(ctx, query, msg.ID, msg.Content, msg.Edited, editedAt)
	if err != nil {
		return mapError(fmt.Errorf("update message %d: %w", msg.ID, err))
	}
	return expectRow(res, "message", msg.ID)
}

func (t *pgTx) DeleteMessage(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM messages WHERE id=$1;`, id)
	if err != nil {
		return fmt.Errorf("delete message %d: %w", id, err)
	}
	return expectRow(res, "message", id)
}

func (t *pgTx) InsertNotification(ctx context.Context, n *models.Notification) error {
	query := `INSERT INTO notifications (user_id, message_id)
	          VALUES ($1, $2)
	          RETURNING id, is_read, created_at;`
	err := t.tx.QueryRowContext(ctx, query, n.UserID, n.MessageID).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return mapError(fmt.Errorf("insert notification: %w", err))
	}
	return nil
}

func (t *pgTx) InsertHistory(ctx context.Context, h *models.MessageHistory) error {
	query := `INSERT INTO message_history (message_id, old_content, edited_at)
	          VALUES ($1, $2, $3)
	          RETURNING id;`
	if err := t.tx.QueryRowContext(ctx, query, h.MessageID, h.OldContent, h.EditedAt).Scan(&h.ID); err != nil {
		return mapError(fmt.Errorf("insert message history: %w", err))
	}
	return nil
}

func (t *pgTx) UserExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1);`, id)
}

func (t *pgTx) MessageExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, t.tx, `SELECT EXISTS (SELECT 1 FROM messages WHERE id=$1);`, id)
}

func exists(ctx context.Context, q queryer, query string, id int64) (bool, error) {
	var ok bool
	if err := q.QueryRowContext(ctx, query, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func expectRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, models.ErrNotFound)
	}
	return nil
}
