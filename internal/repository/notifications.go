// internal/repository/notifications.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"agency-crm/internal/models"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// InsertMany writes the fan-out batch in one transaction so every admin sees
// the event or none does.
func (r *NotificationRepo) InsertMany(ctx context.Context, ns []*models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return withinTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, n := range ns {
			var data []byte
			if n.Data != nil {
				var err error
				data, err = json.Marshal(n.Data)
				if err != nil {
					return fmt.Errorf("marshal notification data: %w", err)
				}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO notifications (id, recipient_id, type, title, message, link, read, data, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				n.ID, n.RecipientID, n.Type, n.Title, n.Message, nullString(n.Link), n.Read, data, n.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
		}
		return nil
	})
}

// ListByRecipient returns the recipient's notifications, newest first.
// unreadOnly narrows to unread rows.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := `SELECT id, recipient_id, type, title, message, link, read, read_at, data, created_at
		FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		q += ` AND read = FALSE`
	}
	q += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var (
			n      models.Notification
			link   sql.NullString
			readAt sql.NullTime
			data   []byte
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &link, &n.Read, &readAt, &data, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Link = fromNullString(link)
		n.ReadAt = fromNullTime(readAt)
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, fmt.Errorf("unmarshal notification data: %w", err)
			}
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`, recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

// MarkRead flips one notification, scoped to the recipient so staff cannot
// touch each other's rows.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, recipientID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, read_at = $1
		WHERE id = $2 AND recipient_id = $3 AND read = FALSE`,
		now, id, recipientID,
	)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipientID string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, read_at = $1
		WHERE recipient_id = $2 AND read = FALSE`,
		now, recipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.RowsAffected()
}

func (r *NotificationRepo) Delete(ctx context.Context, id, recipientID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND recipient_id = $2`, id, recipientID)
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}
