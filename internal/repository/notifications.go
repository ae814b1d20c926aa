package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"messaging/internal/models"
)

func (r *PostgresRepo) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT id, user_id, message_id, is_read, created_at, delivered_at
	          FROM notifications
	          WHERE user_id=$1 AND (NOT $2 OR NOT is_read)
	          ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, query, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	results := []models.Notification{}
	for rows.Next() {
		var (
			n           models.Notification
			deliveredAt sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.MessageID, &n.IsRead, &n.CreatedAt, &deliveredAt); err != nil {
			return nil, err
		}
		if deliveredAt.Valid {
			t := deliveredAt.Time
			n.DeliveredAt = &t
		}
		results = append(results, n)
	}
	return results, rows.Err()
}

func (r *PostgresRepo) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	query := `UPDATE notifications SET is_read=TRUE WHERE id=$1 AND user_id=$2;`
	res, err := r.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", notificationID, err)
	}
	return expectRow(res, "notification", notificationID)
}

func (r *PostgresRepo) PendingNotifications(ctx context.Context, limit int) ([]models.PendingNotification, error) {
	query := `SELECT n.id, n.user_id, n.message_id, n.is_read, n.created_at, m.sender_id, m.content
	          FROM notifications n
	          JOIN messages m ON m.id = n.message_id
	          WHERE n.delivered_at IS NULL
	          ORDER BY n.id ASC
	          LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	defer rows.Close()

	var results []models.PendingNotification
	for rows.Next() {
		var p models.PendingNotification
		if err := rows.Scan(&p.ID, &p.UserID, &p.MessageID, &p.IsRead, &p.CreatedAt, &p.SenderID, &p.Content); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

func (r *PostgresRepo) MarkNotificationDelivered(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET delivered_at=$2 WHERE id=$1;`, id, at)
	if err != nil {
		return fmt.Errorf("mark notification %d delivered: %w", id, err)
	}
	return expectRow(res, "notification", id)
}
