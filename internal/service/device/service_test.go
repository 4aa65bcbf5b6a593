package device

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"notify-hub/internal/domain"
)

type tokenRepoMock struct {
	mock.Mock
}

func (m *tokenRepoMock) Upsert(ctx context.Context, token *domain.DeviceToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *tokenRepoMock) GetByToken(ctx context.Context, token string) (*domain.DeviceToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeviceToken), args.Error(1)
}

func (m *tokenRepoMock) ActiveByUser(ctx context.Context, userID uuid.UUID) ([]domain.DeviceToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DeviceToken), args.Error(1)
}

func (m *tokenRepoMock) ActiveByUsers(ctx context.Context, userIDs []uuid.UUID) ([]domain.DeviceToken, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DeviceToken), args.Error(1)
}

func (m *tokenRepoMock) Deactivate(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *tokenRepoMock) TouchLastUsed(ctx context.Context, tokens []string) error {
	args := m.Called(ctx, tokens)
	return args.Error(0)
}

func (m *tokenRepoMock) Delete(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func TestRegister(t *testing.T) {
	repo := new(tokenRepoMock)
	svc := NewService(repo)

	userID := uuid.New()
	repo.On("Upsert", mock.Anything, mock.AnythingOfType("*domain.DeviceToken")).Return(nil)

	dt, err := svc.Register(context.Background(), userID, nil, domain.RegisterDeviceInput{
		Token:    "fcm-token-1",
		Platform: domain.PlatformAndroid,
	})

	assert.NoError(t, err)
	assert.Equal(t, userID, dt.UserID)
	assert.True(t, dt.IsActive)
	repo.AssertExpectations(t)
}

func TestRegister_Validation(t *testing.T) {
	svc := NewService(new(tokenRepoMock))

	_, err := svc.Register(context.Background(), uuid.Nil, nil, domain.RegisterDeviceInput{Token: "t", Platform: domain.PlatformIOS})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Register(context.Background(), uuid.New(), nil, domain.RegisterDeviceInput{Platform: domain.PlatformIOS})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Register(context.Background(), uuid.New(), nil, domain.RegisterDeviceInput{Token: "t", Platform: "symbian"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestList_NeverReturnsNilSlice(t *testing.T) {
	repo := new(tokenRepoMock)
	svc := NewService(repo)

	userID := uuid.New()
	repo.On("ActiveByUser", mock.Anything, userID).Return(nil, nil)

	tokens, err := svc.List(context.Background(), userID)

	assert.NoError(t, err)
	assert.NotNil(t, tokens)
	assert.Empty(t, tokens)
}

func TestDeactivate_OwnToken(t *testing.T) {
	repo := new(tokenRepoMock)
	svc := NewService(repo)

	userID := uuid.New()
	repo.On("GetByToken", mock.Anything, "fcm-token-1").Return(&domain.DeviceToken{UserID: userID, Token: "fcm-token-1"}, nil)
	repo.On("Deactivate", mock.Anything, "fcm-token-1").Return(nil)

	assert.NoError(t, svc.Deactivate(context.Background(), userID, "fcm-token-1"))
	repo.AssertExpectations(t)
}

func TestDeactivate_ForeignTokenIsInvisible(t *testing.T) {
	repo := new(tokenRepoMock)
	svc := NewService(repo)

	repo.On("GetByToken", mock.Anything, "fcm-token-1").Return(&domain.DeviceToken{UserID: uuid.New(), Token: "fcm-token-1"}, nil)

	err := svc.Deactivate(context.Background(), uuid.New(), "fcm-token-1")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	repo.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
}
