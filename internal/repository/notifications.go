package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/shift-roster/backend/internal/domain"
)

func (r *Repository) CreateNotification(notification *domain.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	metadata, err := json.Marshal(notification.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (type, title, content, channel, metadata, recipient_id, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, read, created_at
	`

	args := []any{
		notification.Type,
		notification.Title,
		notification.Content,
		notification.Channel,
		metadata,
		notification.RecipientID,
		notification.OrganizationID,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&notification.ID, &notification.Read, &notification.CreatedAt); err != nil {
		return err
	}

	return nil
}

// insertNotificationTx 供需要把通知和业务变更一起落库的事务复用
func insertNotificationTx(ctx context.Context, tx *sql.Tx, notification *domain.Notification) error {
	metadata, err := json.Marshal(notification.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (type, title, content, channel, metadata, recipient_id, organization_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, read, created_at
	`

	args := []any{
		notification.Type,
		notification.Title,
		notification.Content,
		notification.Channel,
		metadata,
		notification.RecipientID,
		notification.OrganizationID,
	}
	return tx.QueryRowContext(ctx, query, args...).Scan(&notification.ID, &notification.Read, &notification.CreatedAt)
}

func (r *Repository) GetNotificationsForUser(userID int64, organizationID int64, showRead bool) ([]*domain.Notification, error) {
	query := `
		SELECT id, type, title, content, channel, read, metadata, recipient_id, organization_id, created_at, sent_at
		FROM notifications
		WHERE recipient_id = $1 AND organization_id = $2 AND ($3::boolean OR read = FALSE)
		ORDER BY created_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID, organizationID, showRead)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		notification := &domain.Notification{}
		var metadata []byte
		dst := []any{
			&notification.ID,
			&notification.Type,
			&notification.Title,
			&notification.Content,
			&notification.Channel,
			&notification.Read,
			&metadata,
			&notification.RecipientID,
			&notification.OrganizationID,
			&notification.CreatedAt,
			&notification.SentAt,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metadata, &notification.Metadata); err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *Repository) GetNotificationByID(id int64) (*domain.Notification, error) {
	query := `
		SELECT type, title, content, channel, read, metadata, recipient_id, organization_id, created_at, sent_at
		FROM notifications
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	notification := &domain.Notification{
		ID: id,
	}

	var metadata []byte
	dst := []any{
		&notification.Type,
		&notification.Title,
		&notification.Content,
		&notification.Channel,
		&notification.Read,
		&metadata,
		&notification.RecipientID,
		&notification.OrganizationID,
		&notification.CreatedAt,
		&notification.SentAt,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &notification.Metadata); err != nil {
		return nil, err
	}

	return notification, nil
}

// MarkNotificationRead 只允许接收者本人标记，找不到记录时返回 sql.ErrNoRows
func (r *Repository) MarkNotificationRead(id int64, userID int64) error {
	query := `
		UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2
		RETURNING id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var updatedID int64
	if err := r.dbpool.QueryRowContext(ctx, query, id, userID).Scan(&updatedID); err != nil {
		return err
	}

	return nil
}

func (r *Repository) MarkAllNotificationsRead(userID int64, organizationID int64) (int64, error) {
	query := `
		UPDATE notifications SET read = TRUE
		WHERE recipient_id = $1 AND organization_id = $2 AND read = FALSE
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, userID, organizationID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *Repository) DeleteNotification(id int64, userID int64) error {
	query := `
		DELETE FROM notifications WHERE id = $1 AND recipient_id = $2
		RETURNING id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var deletedID int64
	if err := r.dbpool.QueryRowContext(ctx, query, id, userID).Scan(&deletedID); err != nil {
		return err
	}

	return nil
}

func (r *Repository) MarkNotificationSent(id int64) error {
	query := `
		UPDATE notifications SET sent_at = NOW() WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
