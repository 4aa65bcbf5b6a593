package device

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"notify-hub/internal/domain"
	"notify-hub/internal/repository"
)

type Service interface {
	Register(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID, input domain.RegisterDeviceInput) (*domain.DeviceToken, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.DeviceToken, error)
	Deactivate(ctx context.Context, userID uuid.UUID, token string) error
	Remove(ctx context.Context, id, userID uuid.UUID) error
}

type service struct {
	tokenRepo repository.DeviceTokenRepository
}

func NewService(tokenRepo repository.DeviceTokenRepository) Service {
	return &service{tokenRepo: tokenRepo}
}

// Register upserts the token under the calling user. A token that moved
// between accounts (device handed to another user) is re-homed, and a
// token the client re-registers comes back active.
func (s *service) Register(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID, input domain.RegisterDeviceInput) (*domain.DeviceToken, error) {
	if userID == uuid.Nil {
		return nil, domain.Invalid("user_id", "must not be empty")
	}
	if input.Token == "" {
		return nil, domain.Invalid("token", "must not be empty")
	}
	if !input.Platform.Valid() {
		return nil, domain.Invalid("platform", fmt.Sprintf("unknown value %q", input.Platform))
	}

	dt := &domain.DeviceToken{
		ID:        uuid.New(),
		UserID:    userID,
		CompanyID: companyID,
		Token:     input.Token,
		Platform:  input.Platform,
		IsActive:  true,
	}
	if err := s.tokenRepo.Upsert(ctx, dt); err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}
	return dt, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]domain.DeviceToken, error) {
	tokens, err := s.tokenRepo.ActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if tokens == nil {
		tokens = []domain.DeviceToken{}
	}
	return tokens, nil
}

// Deactivate marks the caller's token inactive. Tokens owned by another
// user are invisible to the caller.
func (s *service) Deactivate(ctx context.Context, userID uuid.UUID, token string) error {
	dt, err := s.tokenRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if dt.UserID != userID {
		return domain.ErrNotFound
	}
	return s.tokenRepo.Deactivate(ctx, token)
}

func (s *service) Remove(ctx context.Context, id, userID uuid.UUID) error {
	return s.tokenRepo.Delete(ctx, id, userID)
}
