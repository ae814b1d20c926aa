package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"messaging/internal/models"
)

func (r *PostgresRepo) ListHistory(ctx context.Context, messageID int64) ([]models.MessageHistory, error) {
	query := `SELECT id, message_id, old_content, edited_at
	          FROM message_history
	          WHERE message_id=$1
	          ORDER BY edited_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("list history of message %d: %w", messageID, err)
	}
	defer rows.Close()

	results := []models.MessageHistory{}
	for rows.Next() {
		var h models.MessageHistory
		if err := rows.Scan(&h.ID, &h.MessageID, &h.OldContent, &h.EditedAt); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// Conversation loads messages joined with their sender and receiver, then
// fetches the direct replies of every returned message in one extra query.
func (r *PostgresRepo) Conversation(ctx context.Context, filter models.ConversationFilter) ([]models.ConversationMessage, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case filter.UserA != nil && filter.UserB != nil:
		where = append(where, `((m.sender_id=$1 AND m.receiver_id=$2) OR (m.sender_id=$2 AND m.receiver_id=$1))`)
		args = append(args, *filter.UserA, *filter.UserB)
	case filter.UserA != nil:
		where = append(where, `(m.sender_id=$1 OR m.receiver_id=$1)`)
		args = append(args, *filter.UserA)
	}
	query := `SELECT m.id, m.sender_id, m.receiver_id, m.parent_id, m.content, m.edited, m.created_at, m.edited_at,
	                 s.id, s.username, s.created_at,
	                 rc.id, rc.username, rc.created_at
	          FROM messages m
	          JOIN users s ON s.id = m.sender_id
	          JOIN users rc ON rc.id = m.receiver_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY m.created_at ASC, m.id ASC;`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	results := []models.ConversationMessage{}
	index := map[int64]int{}
	for rows.Next() {
		var (
			cm       models.ConversationMessage
			parentID sql.NullInt64
			editedAt sql.NullTime
		)
		err := rows.Scan(
			&cm.ID, &cm.SenderID, &cm.ReceiverID, &parentID, &cm.Content, &cm.Edited, &cm.CreatedAt, &editedAt,
			&cm.Sender.ID, &cm.Sender.Username, &cm.Sender.CreatedAt,
			&cm.Receiver.ID, &cm.Receiver.Username, &cm.Receiver.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if parentID.Valid {
			id := parentID.Int64
			cm.ParentID = &id
		}
		if editedAt.Valid {
			t := editedAt.Time
			cm.EditedAt = &t
		}
		cm.Replies = []models.Message{}
		index[cm.ID] = len(results)
		results = append(results, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	ids := make([]int64, 0, len(results))
	for _, cm := range results {
		ids = append(ids, cm.ID)
	}
	replyRows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE parent_id = ANY($1) ORDER BY created_at ASC, id ASC;`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query replies: %w", err)
	}
	defer replyRows.Close()
	for replyRows.Next() {
		reply, err := scanMessage(replyRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[*reply.ParentID]; ok {
			results[i].Replies = append(results[i].Replies, *reply)
		}
	}
	return results, replyRows.Err()
}
