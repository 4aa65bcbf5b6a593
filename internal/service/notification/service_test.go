package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"notify-hub/internal/domain"
)

type notifRepoMock struct {
	mock.Mock
}

func (m *notifRepoMock) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *notifRepoMock) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *notifRepoMock) List(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	args := m.Called(ctx, userID, filter, params)
	return args.Get(0).([]domain.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *notifRepoMock) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *notifRepoMock) MarkManyAsRead(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ids, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *notifRepoMock) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *notifRepoMock) Archive(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *notifRepoMock) Unarchive(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *notifRepoMock) SoftDelete(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *notifRepoMock) RecordClick(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *notifRepoMock) Update(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *notifRepoMock) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *notifRepoMock) Stats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserStats), args.Error(1)
}

func (m *notifRepoMock) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type prefRepoMock struct {
	mock.Mock
}

func (m *prefRepoMock) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Preferences), args.Error(1)
}

func (m *prefRepoMock) Upsert(ctx context.Context, prefs *domain.Preferences) error {
	args := m.Called(ctx, prefs)
	return args.Error(0)
}

func (m *prefRepoMock) Delete(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type dispatcherMock struct {
	mock.Mock
}

func (m *dispatcherMock) SendToUser(ctx context.Context, userID uuid.UUID, event domain.OutboundEvent) bool {
	args := m.Called(ctx, userID, event)
	return args.Bool(0)
}

type emailMock struct {
	mock.Mock
}

func (m *emailMock) SendNotificationEmail(ctx context.Context, toEmail, title, message string) error {
	args := m.Called(ctx, toEmail, title, message)
	return args.Error(0)
}

func newTestService(notifRepo *notifRepoMock, prefRepo *prefRepoMock, dispatcher *dispatcherMock) *service {
	return &service{
		notifRepo:  notifRepo,
		prefRepo:   prefRepo,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) },
	}
}

func validInput(userID uuid.UUID) domain.CreateNotificationInput {
	return domain.CreateNotificationInput{
		UserID:  userID,
		Type:    domain.NotifMessage,
		Title:   "New message",
		Message: "You have a new message",
	}
}

func TestCreate_PersistsAndDispatches(t *testing.T) {
	notifRepo := new(notifRepoMock)
	prefRepo := new(prefRepoMock)
	dispatcher := new(dispatcherMock)
	svc := newTestService(notifRepo, prefRepo, dispatcher)

	userID := uuid.New()
	prefRepo.On("GetByUser", mock.Anything, userID).Return(nil, nil)
	notifRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Notification")).Return(nil)
	notifRepo.On("CountUnread", mock.Anything, userID).Return(int64(3), nil)
	dispatcher.On("SendToUser", mock.Anything, userID, mock.Anything).Return(true)

	res, err := svc.Create(context.Background(), validInput(userID))

	assert.NoError(t, err)
	assert.False(t, res.Denied)
	assert.NotNil(t, res.Notification)
	assert.Equal(t, domain.PriorityNormal, res.Notification.Priority)
	assert.True(t, res.Notification.IsActive)
	notifRepo.AssertExpectations(t)
	dispatcher.AssertNumberOfCalls(t, "SendToUser", 2)
}

func TestCreate_PolicyDeniedIsNotAnError(t *testing.T) {
	notifRepo := new(notifRepoMock)
	prefRepo := new(prefRepoMock)
	dispatcher := new(dispatcherMock)
	svc := newTestService(notifRepo, prefRepo, dispatcher)

	userID := uuid.New()
	prefs := domain.DefaultPreferences(userID)
	prefs.NotificationsEnabled = false
	prefRepo.On("GetByUser", mock.Anything, userID).Return(prefs, nil)

	for i := 0; i < 5; i++ {
		res, err := svc.Create(context.Background(), validInput(userID))
		assert.NoError(t, err)
		assert.True(t, res.Denied)
		assert.NotEmpty(t, res.DenyReason)
		assert.Nil(t, res.Notification)
	}

	notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	dispatcher.AssertNotCalled(t, "SendToUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_ValidationFailures(t *testing.T) {
	svc := newTestService(new(notifRepoMock), new(prefRepoMock), new(dispatcherMock))

	cases := []struct {
		name  string
		input domain.CreateNotificationInput
	}{
		{"missing user", domain.CreateNotificationInput{Type: domain.NotifSystem, Title: "t"}},
		{"missing title", domain.CreateNotificationInput{UserID: uuid.New(), Type: domain.NotifSystem}},
		{"unknown type", domain.CreateNotificationInput{UserID: uuid.New(), Type: "bogus", Title: "t"}},
		{"unknown priority", domain.CreateNotificationInput{UserID: uuid.New(), Type: domain.NotifSystem, Title: "t", Priority: "mega"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCreate_EmailChannelHonorsPolicy(t *testing.T) {
	notifRepo := new(notifRepoMock)
	prefRepo := new(prefRepoMock)
	dispatcher := new(dispatcherMock)
	emailSvc := new(emailMock)
	svc := newTestService(notifRepo, prefRepo, dispatcher)
	svc.emailSvc = emailSvc

	userID := uuid.New()
	prefs := domain.DefaultPreferences(userID)
	prefs.ChannelSettings = domain.BoolMap{string(domain.ChannelEmail): false}
	prefRepo.On("GetByUser", mock.Anything, userID).Return(prefs, nil)
	notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	notifRepo.On("CountUnread", mock.Anything, userID).Return(int64(1), nil)
	dispatcher.On("SendToUser", mock.Anything, userID, mock.Anything).Return(true)

	input := validInput(userID)
	input.Channels = []domain.Channel{domain.ChannelInApp, domain.ChannelEmail}
	input.Email = "user@example.com"

	res, err := svc.Create(context.Background(), input)

	assert.NoError(t, err)
	assert.False(t, res.Denied)
	emailSvc.AssertNotCalled(t, "SendNotificationEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_EmailChannelDelivers(t *testing.T) {
	notifRepo := new(notifRepoMock)
	prefRepo := new(prefRepoMock)
	dispatcher := new(dispatcherMock)
	emailSvc := new(emailMock)
	svc := newTestService(notifRepo, prefRepo, dispatcher)
	svc.emailSvc = emailSvc

	userID := uuid.New()
	prefRepo.On("GetByUser", mock.Anything, userID).Return(nil, nil)
	notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	notifRepo.On("CountUnread", mock.Anything, userID).Return(int64(1), nil)
	dispatcher.On("SendToUser", mock.Anything, userID, mock.Anything).Return(true)
	emailSvc.On("SendNotificationEmail", mock.Anything, "user@example.com", "New message", "You have a new message").Return(nil)

	input := validInput(userID)
	input.Channels = []domain.Channel{domain.ChannelEmail}
	input.Email = "user@example.com"

	_, err := svc.Create(context.Background(), input)

	assert.NoError(t, err)
	emailSvc.AssertExpectations(t)
}

func TestCreateMany_IsolatesFailures(t *testing.T) {
	notifRepo := new(notifRepoMock)
	prefRepo := new(prefRepoMock)
	dispatcher := new(dispatcherMock)
	svc := newTestService(notifRepo, prefRepo, dispatcher)

	okUser := uuid.New()
	mutedUser := uuid.New()

	prefRepo.On("GetByUser", mock.Anything, okUser).Return(nil, nil)
	muted := domain.DefaultPreferences(mutedUser)
	muted.IsMuted = true
	prefRepo.On("GetByUser", mock.Anything, mutedUser).Return(muted, nil)
	notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	notifRepo.On("CountUnread", mock.Anything, okUser).Return(int64(1), nil)
	dispatcher.On("SendToUser", mock.Anything, okUser, mock.Anything).Return(true)

	res := svc.CreateMany(context.Background(), []domain.CreateNotificationInput{
		validInput(okUser),
		validInput(mutedUser),
		{UserID: uuid.Nil, Type: domain.NotifSystem, Title: "t"},
		validInput(okUser),
	})

	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 2, res.FailureCount)
	assert.Len(t, res.Results, 4)
	assert.True(t, res.Results[1].Denied)
	assert.NotEmpty(t, res.Results[2].Err)
}

func TestMarkAsRead_Idempotent(t *testing.T) {
	notifRepo := new(notifRepoMock)
	dispatcher := new(dispatcherMock)
	svc := newTestService(notifRepo, new(prefRepoMock), dispatcher)

	id := uuid.New()
	userID := uuid.New()
	notifRepo.On("MarkAsRead", mock.Anything, id, userID).Return(int64(1), nil).Once()
	notifRepo.On("MarkAsRead", mock.Anything, id, userID).Return(int64(0), nil).Once()
	notifRepo.On("CountUnread", mock.Anything, userID).Return(int64(0), nil)
	dispatcher.On("SendToUser", mock.Anything, userID, mock.Anything).Return(true)

	first, err := svc.MarkAsRead(context.Background(), id, userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := svc.MarkAsRead(context.Background(), id, userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), second)

	// No fan-out for the no-op call.
	dispatcher.AssertNumberOfCalls(t, "SendToUser", 2)
}

func TestMarkAllAsRead_SecondCallZero(t *testing.T) {
	notifRepo := new(notifRepoMock)
	dispatcher := new(dispatcherMock)
	svc := newTestService(notifRepo, new(prefRepoMock), dispatcher)

	userID := uuid.New()
	notifRepo.On("MarkAllAsRead", mock.Anything, userID).Return(int64(7), nil).Once()
	notifRepo.On("MarkAllAsRead", mock.Anything, userID).Return(int64(0), nil).Once()
	notifRepo.On("CountUnread", mock.Anything, userID).Return(int64(0), nil)
	dispatcher.On("SendToUser", mock.Anything, userID, mock.Anything).Return(true)

	first, err := svc.MarkAllAsRead(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), first)

	second, err := svc.MarkAllAsRead(context.Background(), userID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), second)
}

func TestMarkMultipleAsRead_ScopedToOwner(t *testing.T) {
	notifRepo := new(notifRepoMock)
	dispatcher := new(dispatcherMock)
	svc := newTestService(notifRepo, new(prefRepoMock), dispatcher)

	userID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	// One of the three ids belongs to someone else; the store skips it.
	notifRepo.On("MarkManyAsRead", mock.Anything, ids, userID).Return(int64(2), nil)
	notifRepo.On("CountUnread", mock.Anything, userID).Return(int64(0), nil)
	dispatcher.On("SendToUser", mock.Anything, userID, mock.Anything).Return(true)

	updated, err := svc.MarkMultipleAsRead(context.Background(), ids, userID)

	assert.NoError(t, err)
	assert.Equal(t, int64(2), updated)
}

func TestArchiveLifecycle(t *testing.T) {
	notifRepo := new(notifRepoMock)
	dispatcher := new(dispatcherMock)
	svc := newTestService(notifRepo, new(prefRepoMock), dispatcher)

	id := uuid.New()
	userID := uuid.New()
	notifRepo.On("Archive", mock.Anything, id, userID).Return(int64(1), nil)
	notifRepo.On("Unarchive", mock.Anything, id, userID).Return(int64(1), nil)
	dispatcher.On("SendToUser", mock.Anything, userID, mock.Anything).Return(true)

	assert.NoError(t, svc.Archive(context.Background(), id, userID))
	assert.NoError(t, svc.Unarchive(context.Background(), id, userID))
}

func TestArchive_MissingIsNotFound(t *testing.T) {
	notifRepo := new(notifRepoMock)
	svc := newTestService(notifRepo, new(prefRepoMock), new(dispatcherMock))

	id := uuid.New()
	userID := uuid.New()
	notifRepo.On("Archive", mock.Anything, id, userID).Return(int64(0), nil)

	err := svc.Archive(context.Background(), id, userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSoftDelete_EmitsDeletedEvent(t *testing.T) {
	notifRepo := new(notifRepoMock)
	dispatcher := new(dispatcherMock)
	svc := newTestService(notifRepo, new(prefRepoMock), dispatcher)

	id := uuid.New()
	userID := uuid.New()
	notifRepo.On("SoftDelete", mock.Anything, id, userID).Return(int64(1), nil)
	notifRepo.On("CountUnread", mock.Anything, userID).Return(int64(4), nil)
	dispatcher.On("SendToUser", mock.Anything, userID, mock.MatchedBy(func(e domain.OutboundEvent) bool {
		return e.Event == domain.EventNotificationDeleted
	})).Return(true)
	dispatcher.On("SendToUser", mock.Anything, userID, mock.MatchedBy(func(e domain.OutboundEvent) bool {
		return e.Event == domain.EventUnreadCount
	})).Return(true)

	err := svc.SoftDelete(context.Background(), id, userID)

	assert.NoError(t, err)
	dispatcher.AssertExpectations(t)
}

func TestUpdate_DeletedBehavesAsAbsent(t *testing.T) {
	notifRepo := new(notifRepoMock)
	svc := newTestService(notifRepo, new(prefRepoMock), new(dispatcherMock))

	id := uuid.New()
	userID := uuid.New()
	// The store excludes deleted rows, so a deleted notification reads
	// back as not found.
	notifRepo.On("GetByID", mock.Anything, id, userID).Return(nil, domain.ErrNotFound)

	title := "patched"
	_, err := svc.Update(context.Background(), id, userID, domain.UpdateNotificationInput{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	notifRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdate_PatchesFields(t *testing.T) {
	notifRepo := new(notifRepoMock)
	dispatcher := new(dispatcherMock)
	svc := newTestService(notifRepo, new(prefRepoMock), dispatcher)

	id := uuid.New()
	userID := uuid.New()
	existing := &domain.Notification{ID: id, UserID: userID, Type: domain.NotifAlert, Priority: domain.PriorityNormal, Title: "old", Message: "old body"}
	notifRepo.On("GetByID", mock.Anything, id, userID).Return(existing, nil)
	notifRepo.On("Update", mock.Anything, existing).Return(nil)
	dispatcher.On("SendToUser", mock.Anything, userID, mock.Anything).Return(true)

	title := "new title"
	priority := domain.PriorityHigh
	updated, err := svc.Update(context.Background(), id, userID, domain.UpdateNotificationInput{
		Title:    &title,
		Priority: &priority,
	})

	assert.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, domain.PriorityHigh, updated.Priority)
	assert.Equal(t, "old body", updated.Message)
}

func TestCleanupExpired(t *testing.T) {
	notifRepo := new(notifRepoMock)
	svc := newTestService(notifRepo, new(prefRepoMock), new(dispatcherMock))

	notifRepo.On("DeleteExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(12), nil)

	count, err := svc.CleanupExpired(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(12), count)
}
