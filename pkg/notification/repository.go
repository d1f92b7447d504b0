package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/cycleledger/internal/errs"
	log "github.com/sirupsen/logrus"
)

var ErrNotificationNotFound = errs.New(errs.NotFound, "Notification not found")

type Repository interface {
	Store(ctx context.Context, n Notification) (Notification, error)
	// StoreMany inserts one notification per user and returns them in userIds order.
	StoreMany(ctx context.Context, userIds []int, template Notification) ([]Notification, error)
	List(ctx context.Context, userId int, offset, limit int) ([]Notification, error)
	Count(ctx context.Context, userId int) (int, error)
	CountUnread(ctx context.Context, userId int) (int, error)
	MarkRead(ctx context.Context, userId int, id int64) (Notification, error)
	MarkAllRead(ctx context.Context, userId int) (int64, error)
	Delete(ctx context.Context, userId int, id int64) error
	// UsersNotified returns the users among userIds holding a notification whose data has
	// notifType and key set to the given values.
	UsersNotified(ctx context.Context, notifType, key, value string, userIds []int) ([]int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const notificationColumns = `id, user_id, title, body, type, is_read, data, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.Id, &n.UserId, &n.Title, &n.Body, &n.Type, &n.IsRead, &n.Data, &n.CreatedAt)
	return n, err
}

func dataOrEmpty(data map[string]string) map[string]string {
	if data == nil {
		return map[string]string{}
	}
	return data
}

const insertNotification = `INSERT INTO notification (user_id, title, body, type, data)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING ` + notificationColumns

func (r *RepositoryImpl) Store(ctx context.Context, n Notification) (Notification, error) {
	stored, err := scanNotification(r.db.QueryRow(ctx, insertNotification, n.UserId, n.Title, n.Body, n.Type, dataOrEmpty(n.Data)))
	if err != nil {
		err := fmt.Errorf("could not store notification: %w", err)
		log.Error(err)
		return Notification{}, err
	}
	return stored, nil
}

func (r *RepositoryImpl) StoreMany(ctx context.Context, userIds []int, template Notification) ([]Notification, error) {
	if len(userIds) == 0 {
		return nil, nil
	}
	batch := &pgx.Batch{}
	for _, userId := range userIds {
		batch.Queue(insertNotification, userId, template.Title, template.Body, template.Type, dataOrEmpty(template.Data))
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	results := tx.SendBatch(ctx, batch)
	stored := make([]Notification, 0, len(userIds))
	for range userIds {
		n, err := scanNotification(results.QueryRow())
		if err != nil {
			results.Close()
			return nil, fmt.Errorf("could not store notification batch: %w", err)
		}
		stored = append(stored, n)
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("could not store notification batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return stored, nil
}

func (r *RepositoryImpl) List(ctx context.Context, userId int, offset, limit int) ([]Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification WHERE user_id = $1
			  ORDER BY created_at DESC, id DESC OFFSET $2 LIMIT $3`
	rows, err := r.db.Query(ctx, query, userId, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("could not query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *RepositoryImpl) Count(ctx context.Context, userId int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notification WHERE user_id = $1`, userId).Scan(&count)
	return count, err
}

func (r *RepositoryImpl) CountUnread(ctx context.Context, userId int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notification WHERE user_id = $1 AND NOT is_read`, userId).Scan(&count)
	return count, err
}

func (r *RepositoryImpl) MarkRead(ctx context.Context, userId int, id int64) (Notification, error) {
	query := `UPDATE notification SET is_read = TRUE WHERE id = $1 AND user_id = $2 RETURNING ` + notificationColumns
	n, err := scanNotification(r.db.QueryRow(ctx, query, id, userId))
	if errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, ErrNotificationNotFound
	}
	if err != nil {
		log.Errorf("failed to mark notification as read: %v", err)
		return Notification{}, err
	}
	return n, nil
}

func (r *RepositoryImpl) MarkAllRead(ctx context.Context, userId int) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE notification SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userId)
	if err != nil {
		return 0, fmt.Errorf("could not mark notifications as read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, userId int, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notification WHERE id = $1 AND user_id = $2`, id, userId)
	if err != nil {
		log.Errorf("failed to delete notification: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *RepositoryImpl) UsersNotified(ctx context.Context, notifType, key, value string, userIds []int) ([]int, error) {
	query := `SELECT DISTINCT user_id FROM notification
			  WHERE data ->> 'notifType' = $1 AND data ->> $2 = $3 AND user_id = ANY($4)
			  ORDER BY user_id`
	rows, err := r.db.Query(ctx, query, notifType, key, value, userIds)
	if err != nil {
		return nil, fmt.Errorf("could not query notified users: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}
