package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"notify-hub/internal/domain"
)

type PreferenceRepository interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error)
	Upsert(ctx context.Context, prefs *domain.Preferences) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type preferenceRepository struct {
	db *sqlx.DB
}

func NewPreferenceRepository(db *sqlx.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

// GetByUser returns nil (no error) when the user has never saved
// preferences; callers fall back to defaults.
func (r *preferenceRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	var prefs domain.Preferences
	query := `SELECT * FROM notification_preferences WHERE user_id = $1`

	err := r.db.GetContext(ctx, &prefs, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, prefs *domain.Preferences) error {
	query := `
		INSERT INTO notification_preferences (user_id, notifications_enabled, type_settings,
			channel_settings, quiet_hours_enabled, quiet_hours_start, quiet_hours_end,
			quiet_hours_timezone, is_muted, mute_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			notifications_enabled = EXCLUDED.notifications_enabled,
			type_settings = EXCLUDED.type_settings,
			channel_settings = EXCLUDED.channel_settings,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			quiet_hours_timezone = EXCLUDED.quiet_hours_timezone,
			is_muted = EXCLUDED.is_muted,
			mute_until = EXCLUDED.mute_until,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		prefs.UserID, prefs.NotificationsEnabled, prefs.TypeSettings,
		prefs.ChannelSettings, prefs.QuietHoursEnabled, prefs.QuietHoursStart,
		prefs.QuietHoursEnd, prefs.QuietHoursTimezone, prefs.IsMuted, prefs.MuteUntil,
	).Scan(&prefs.CreatedAt, &prefs.UpdatedAt)
}

func (r *preferenceRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notification_preferences WHERE user_id = $1`, userID)
	return err
}
