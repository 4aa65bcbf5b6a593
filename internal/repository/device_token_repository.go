package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"notify-hub/internal/domain"
)

type DeviceTokenRepository interface {
	Upsert(ctx context.Context, token *domain.DeviceToken) error
	GetByToken(ctx context.Context, token string) (*domain.DeviceToken, error)
	ActiveByUser(ctx context.Context, userID uuid.UUID) ([]domain.DeviceToken, error)
	ActiveByUsers(ctx context.Context, userIDs []uuid.UUID) ([]domain.DeviceToken, error)
	Deactivate(ctx context.Context, token string) error
	TouchLastUsed(ctx context.Context, tokens []string) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type deviceTokenRepository struct {
	db *sqlx.DB
}

func NewDeviceTokenRepository(db *sqlx.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// Upsert re-registers a known token under its current owner and
// reactivates it. A token deactivated by the gateway stays dead: the
// conflict branch only fires for client re-registration, which is the
// one case a token may legitimately come back.
func (r *deviceTokenRepository) Upsert(ctx context.Context, token *domain.DeviceToken) error {
	query := `
		INSERT INTO device_tokens (id, user_id, company_id, token, platform, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			company_id = EXCLUDED.company_id,
			platform = EXCLUDED.platform,
			is_active = true,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowxContext(ctx, query,
		token.ID, token.UserID, token.CompanyID, token.Token, token.Platform,
	).Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt)
}

func (r *deviceTokenRepository) GetByToken(ctx context.Context, token string) (*domain.DeviceToken, error) {
	var dt domain.DeviceToken
	err := r.db.GetContext(ctx, &dt, `SELECT * FROM device_tokens WHERE token = $1`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dt, nil
}

func (r *deviceTokenRepository) ActiveByUser(ctx context.Context, userID uuid.UUID) ([]domain.DeviceToken, error) {
	var tokens []domain.DeviceToken
	query := `
		SELECT * FROM device_tokens
		WHERE user_id = $1 AND is_active = true
		ORDER BY created_at`

	err := r.db.SelectContext(ctx, &tokens, query, userID)
	return tokens, err
}

func (r *deviceTokenRepository) ActiveByUsers(ctx context.Context, userIDs []uuid.UUID) ([]domain.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT * FROM device_tokens
		WHERE user_id IN (?) AND is_active = true
		ORDER BY created_at`, userIDs)
	if err != nil {
		return nil, err
	}

	var tokens []domain.DeviceToken
	err = r.db.SelectContext(ctx, &tokens, r.db.Rebind(query), args...)
	return tokens, err
}

func (r *deviceTokenRepository) Deactivate(ctx context.Context, token string) error {
	query := `UPDATE device_tokens SET is_active = false, updated_at = NOW() WHERE token = $1`
	_, err := r.db.ExecContext(ctx, query, token)
	return err
}

func (r *deviceTokenRepository) TouchLastUsed(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
		UPDATE device_tokens SET last_used = NOW(), updated_at = NOW()
		WHERE token IN (?)`, tokens)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	return err
}

func (r *deviceTokenRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM device_tokens WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
