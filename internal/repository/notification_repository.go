package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"notify-hub/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, notif *domain.Notification) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error)
	List(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter, params domain.PaginationParams) ([]domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) (int64, error)
	MarkManyAsRead(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Archive(ctx context.Context, id, userID uuid.UUID) (int64, error)
	Unarchive(ctx context.Context, id, userID uuid.UUID) (int64, error)
	SoftDelete(ctx context.Context, id, userID uuid.UUID) (int64, error)
	Update(ctx context.Context, notif *domain.Notification) error
	RecordClick(ctx context.Context, id, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	Stats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notif *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, company_id, type, priority, category,
			title, message, metadata, is_active, sent_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		notif.ID, notif.UserID, notif.CompanyID, notif.Type, notif.Priority,
		notif.Category, notif.Title, notif.Message, notif.Metadata,
		notif.IsActive, notif.SentAt, notif.ExpiresAt,
	).Scan(&notif.CreatedAt, &notif.UpdatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	var notif domain.Notification
	query := `SELECT * FROM notifications WHERE id = $1 AND user_id = $2 AND is_deleted = false`

	err := r.db.GetContext(ctx, &notif, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &notif, nil
}

func (r *notificationRepository) List(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	params.Validate()

	where, args := buildNotificationFilter(userID, filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM notifications ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	direction := "DESC"
	if filter.SortBy != "" && !filter.SortDesc {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT * FROM notifications %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		where, filter.SortColumn(), direction, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	var notifications []domain.Notification
	err := r.db.SelectContext(ctx, &notifications, query, args...)
	return notifications, total, err
}

func buildNotificationFilter(userID uuid.UUID, filter domain.NotificationFilter) (string, []any) {
	conditions := []string{"user_id = ?"}
	args := []any{userID}

	// Deleted rows stay queryable only when explicitly requested by status.
	if filter.Status != nil {
		switch *filter.Status {
		case domain.StatusDeleted:
			conditions = append(conditions, "is_deleted = true")
		case domain.StatusArchived:
			conditions = append(conditions, "is_deleted = false", "is_archived = true")
		case domain.StatusRead:
			conditions = append(conditions, "is_deleted = false", "is_archived = false", "is_read = true")
		case domain.StatusUnread:
			conditions = append(conditions, "is_deleted = false", "is_archived = false", "is_read = false")
		}
	} else {
		conditions = append(conditions, "is_deleted = false")
	}

	if filter.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, *filter.Type)
	}
	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.IsRead != nil {
		conditions = append(conditions, "is_read = ?")
		args = append(args, *filter.IsRead)
	}
	if filter.IsArchived != nil {
		conditions = append(conditions, "is_archived = ?")
		args = append(args, *filter.IsArchived)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(title ILIKE ? OR message ILIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.From != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *filter.To)
	}

	where := "WHERE " + strings.Join(conditions, " AND ")
	return rebindPositional(where), args
}

// rebindPositional converts ? placeholders to $1..$n for Postgres.
func rebindPositional(query string) string {
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = NOW(), read_count = read_count + 1, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_read = false AND is_deleted = false`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) MarkManyAsRead(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		UPDATE notifications
		SET is_read = true, read_at = NOW(), read_count = read_count + 1, updated_at = NOW()
		WHERE id IN (?) AND user_id = ? AND is_read = false AND is_deleted = false`,
		ids, userID)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = true, read_at = NOW(), read_count = read_count + 1, updated_at = NOW()
		WHERE user_id = $1 AND is_read = false AND is_deleted = false`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) Archive(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications
		SET is_archived = true, archived_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_archived = false AND is_deleted = false`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) Unarchive(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications
		SET is_archived = false, archived_at = NULL, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_archived = true AND is_deleted = false`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) SoftDelete(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications
		SET is_deleted = true, is_active = false, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_deleted = false`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) Update(ctx context.Context, notif *domain.Notification) error {
	query := `
		UPDATE notifications
		SET title = $3, message = $4, priority = $5, category = $6, metadata = $7,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_deleted = false
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		notif.ID, notif.UserID, notif.Title, notif.Message,
		notif.Priority, notif.Category, notif.Metadata,
	).Scan(&notif.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (r *notificationRepository) RecordClick(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications
		SET click_count = click_count + 1, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_deleted = false`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND is_read = false AND is_archived = false AND is_deleted = false`

	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}

type statsRow struct {
	Total           int64      `db:"total"`
	Unread          int64      `db:"unread"`
	Read            int64      `db:"read"`
	Archived        int64      `db:"archived"`
	LastRead        *time.Time `db:"last_read"`
	LastReceived    *time.Time `db:"last_received"`
	AverageReadTime *float64   `db:"average_read_time"`
}

type groupCountRow struct {
	Key   string `db:"key"`
	Count int64  `db:"count"`
}

func (r *notificationRepository) Stats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error) {
	var row statsRow
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE is_read = false AND is_archived = false) AS unread,
			COUNT(*) FILTER (WHERE is_read = true AND is_archived = false) AS read,
			COUNT(*) FILTER (WHERE is_archived = true) AS archived,
			MAX(read_at) FILTER (WHERE is_read = true) AS last_read,
			MAX(created_at) AS last_received,
			AVG(EXTRACT(EPOCH FROM (read_at - created_at))) FILTER (WHERE read_at IS NOT NULL) AS average_read_time
		FROM notifications
		WHERE user_id = $1 AND is_deleted = false`

	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return nil, err
	}

	stats := &domain.UserStats{
		Total:        row.Total,
		Unread:       row.Unread,
		Read:         row.Read,
		Archived:     row.Archived,
		ByType:       make(map[domain.NotificationType]int64),
		ByPriority:   make(map[domain.Priority]int64),
		ByStatus:     make(map[domain.NotificationStatus]int64),
		LastRead:     row.LastRead,
		LastReceived: row.LastReceived,
	}
	if row.AverageReadTime != nil {
		stats.AverageReadTime = *row.AverageReadTime
	}

	var byType []groupCountRow
	err := r.db.SelectContext(ctx, &byType, `
		SELECT type AS key, COUNT(*) AS count FROM notifications
		WHERE user_id = $1 AND is_deleted = false GROUP BY type`, userID)
	if err != nil {
		return nil, err
	}
	for _, g := range byType {
		stats.ByType[domain.NotificationType(g.Key)] = g.Count
	}

	var byPriority []groupCountRow
	err = r.db.SelectContext(ctx, &byPriority, `
		SELECT priority AS key, COUNT(*) AS count FROM notifications
		WHERE user_id = $1 AND is_deleted = false GROUP BY priority`, userID)
	if err != nil {
		return nil, err
	}
	for _, g := range byPriority {
		stats.ByPriority[domain.Priority(g.Key)] = g.Count
	}

	stats.ByStatus[domain.StatusUnread] = stats.Unread
	stats.ByStatus[domain.StatusRead] = stats.Read
	stats.ByStatus[domain.StatusArchived] = stats.Archived

	return stats, nil
}

func (r *notificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_deleted = true, is_active = false, deleted_at = NOW(), updated_at = NOW()
		WHERE expires_at IS NOT NULL AND expires_at < $1 AND is_deleted = false`

	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
