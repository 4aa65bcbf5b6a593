package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"notify-hub/internal/domain"
	"notify-hub/internal/repository"
	"notify-hub/internal/service/email"
	"notify-hub/internal/service/policy"
)

// Dispatcher is the slice of the realtime layer the facade needs:
// best-effort delivery to one user's live sessions.
type Dispatcher interface {
	SendToUser(ctx context.Context, userID uuid.UUID, event domain.OutboundEvent) bool
}

type Service interface {
	Create(ctx context.Context, input domain.CreateNotificationInput) (domain.CreateResult, error)
	CreateMany(ctx context.Context, inputs []domain.CreateNotificationInput) domain.BulkCreateResult
	Get(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error)
	List(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) (int64, error)
	MarkMultipleAsRead(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Archive(ctx context.Context, id, userID uuid.UUID) error
	Unarchive(ctx context.Context, id, userID uuid.UUID) error
	SoftDelete(ctx context.Context, id, userID uuid.UUID) error
	Update(ctx context.Context, id, userID uuid.UUID, patch domain.UpdateNotificationInput) (*domain.Notification, error)
	RecordClick(ctx context.Context, id, userID uuid.UUID) error
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	GetUserStats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type service struct {
	notifRepo  repository.NotificationRepository
	prefRepo   repository.PreferenceRepository
	dispatcher Dispatcher
	emailSvc   email.Service
	redis      *redis.Client
	now        func() time.Time
}

func NewService(
	notifRepo repository.NotificationRepository,
	prefRepo repository.PreferenceRepository,
	dispatcher Dispatcher,
	emailSvc email.Service,
	redisClient *redis.Client,
) Service {
	return &service{
		notifRepo:  notifRepo,
		prefRepo:   prefRepo,
		dispatcher: dispatcher,
		emailSvc:   emailSvc,
		redis:      redisClient,
		now:        time.Now,
	}
}

func validateCreate(input *domain.CreateNotificationInput) error {
	if input.UserID == uuid.Nil {
		return domain.Invalid("user_id", "must not be empty")
	}
	if input.Title == "" {
		return domain.Invalid("title", "must not be empty")
	}
	if !input.Type.Valid() {
		return domain.Invalid("type", fmt.Sprintf("unknown value %q", input.Type))
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityNormal
	}
	if !input.Priority.Valid() {
		return domain.Invalid("priority", fmt.Sprintf("unknown value %q", input.Priority))
	}
	return nil
}

// Create runs the policy check for the in_app channel, persists the
// notification, and fans it out to the user's live sessions. A policy
// denial is returned as a structured result and nothing is persisted.
// Fan-out failure after a successful insert is not rolled back: the
// notification stays queryable.
func (s *service) Create(ctx context.Context, input domain.CreateNotificationInput) (domain.CreateResult, error) {
	if err := validateCreate(&input); err != nil {
		return domain.CreateResult{}, err
	}

	prefs, err := s.prefRepo.GetByUser(ctx, input.UserID)
	if err != nil {
		return domain.CreateResult{}, fmt.Errorf("failed to load preferences: %w", err)
	}

	now := s.now()
	decision := policy.Evaluate(prefs, input.Type, domain.ChannelInApp, input.Priority, now)
	if !decision.Allowed {
		return domain.CreateResult{Denied: true, DenyReason: decision.Reason}, nil
	}

	notif := &domain.Notification{
		ID:        uuid.New(),
		UserID:    input.UserID,
		CompanyID: input.CompanyID,
		Type:      input.Type,
		Priority:  input.Priority,
		Category:  input.Category,
		Title:     input.Title,
		Message:   input.Message,
		Metadata:  input.Metadata,
		IsActive:  true,
		SentAt:    &now,
		ExpiresAt: input.ExpiresAt,
	}

	if err := s.notifRepo.Create(ctx, notif); err != nil {
		return domain.CreateResult{}, fmt.Errorf("failed to create notification: %w", err)
	}
	s.invalidateStats(ctx, input.UserID)

	s.dispatcher.SendToUser(ctx, notif.UserID, domain.OutboundEvent{
		Event: domain.EventNewNotification,
		Data:  notif,
	})
	s.pushUnreadCount(ctx, notif.UserID)

	s.maybeEmail(ctx, prefs, input, now)

	return domain.CreateResult{Notification: notif}, nil
}

// maybeEmail delivers over the email channel when the request asks for
// it and policy allows. Email failures are logged, never surfaced: the
// in-app record is already durable.
func (s *service) maybeEmail(ctx context.Context, prefs *domain.Preferences, input domain.CreateNotificationInput, now time.Time) {
	if s.emailSvc == nil || input.Email == "" || !hasChannel(input.Channels, domain.ChannelEmail) {
		return
	}

	decision := policy.Evaluate(prefs, input.Type, domain.ChannelEmail, input.Priority, now)
	if !decision.Allowed {
		return
	}

	if err := s.emailSvc.SendNotificationEmail(ctx, input.Email, input.Title, input.Message); err != nil {
		log.Printf("notification: email delivery to %s failed: %v", input.UserID, err)
	}
}

func hasChannel(channels []domain.Channel, target domain.Channel) bool {
	for _, c := range channels {
		if c == target {
			return true
		}
	}
	return false
}

// CreateMany isolates per-item failures: one failing or denied
// recipient never aborts the batch.
func (s *service) CreateMany(ctx context.Context, inputs []domain.CreateNotificationInput) domain.BulkCreateResult {
	out := domain.BulkCreateResult{Results: make([]domain.CreateResult, 0, len(inputs))}

	for _, input := range inputs {
		res, err := s.Create(ctx, input)
		if err != nil {
			out.Results = append(out.Results, domain.CreateResult{Err: err.Error()})
			out.FailureCount++
			continue
		}

		out.Results = append(out.Results, res)
		if res.Denied {
			out.FailureCount++
		} else {
			out.SuccessCount++
		}
	}
	return out
}

func (s *service) Get(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	return s.notifRepo.GetByID(ctx, id, userID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.Notification], error) {
	params.Validate()

	notifications, total, err := s.notifRepo.List(ctx, userID, filter, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Notification]{}, err
	}

	return domain.NewPaginatedResponse(notifications, params.Page, params.PageSize, total), nil
}

// MarkAsRead is idempotent: re-marking an already-read notification
// affects zero rows and is not an error.
func (s *service) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	updated, err := s.notifRepo.MarkAsRead(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.afterReadChange(ctx, userID, id)
	}
	return updated, nil
}

// MarkMultipleAsRead only touches rows owned by userID: ids belonging
// to another user are silently skipped and excluded from the count.
func (s *service) MarkMultipleAsRead(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error) {
	updated, err := s.notifRepo.MarkManyAsRead(ctx, ids, userID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.afterReadChange(ctx, userID, uuid.Nil)
	}
	return updated, nil
}

func (s *service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	updated, err := s.notifRepo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.afterReadChange(ctx, userID, uuid.Nil)
	}
	return updated, nil
}

func (s *service) Archive(ctx context.Context, id, userID uuid.UUID) error {
	updated, err := s.notifRepo.Archive(ctx, id, userID)
	if err != nil {
		return err
	}
	if updated == 0 {
		return domain.ErrNotFound
	}
	s.invalidateStats(ctx, userID)
	s.notifyUpdated(ctx, userID, id)
	return nil
}

// Unarchive restores the notification to read or unread according to
// its is_read flag; the status is derived, so clearing the archive
// flag is enough.
func (s *service) Unarchive(ctx context.Context, id, userID uuid.UUID) error {
	updated, err := s.notifRepo.Unarchive(ctx, id, userID)
	if err != nil {
		return err
	}
	if updated == 0 {
		return domain.ErrNotFound
	}
	s.invalidateStats(ctx, userID)
	s.notifyUpdated(ctx, userID, id)
	return nil
}

func (s *service) SoftDelete(ctx context.Context, id, userID uuid.UUID) error {
	updated, err := s.notifRepo.SoftDelete(ctx, id, userID)
	if err != nil {
		return err
	}
	if updated == 0 {
		return domain.ErrNotFound
	}
	s.invalidateStats(ctx, userID)

	s.dispatcher.SendToUser(ctx, userID, domain.OutboundEvent{
		Event: domain.EventNotificationDeleted,
		Data:  map[string]string{"id": id.String()},
	})
	s.pushUnreadCount(ctx, userID)
	return nil
}

// Update patches a live notification. Deleted notifications are
// immutable and behave as absent.
func (s *service) Update(ctx context.Context, id, userID uuid.UUID, patch domain.UpdateNotificationInput) (*domain.Notification, error) {
	notif, err := s.notifRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if *patch.Title == "" {
			return nil, domain.Invalid("title", "must not be empty")
		}
		notif.Title = *patch.Title
	}
	if patch.Message != nil {
		notif.Message = *patch.Message
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, domain.Invalid("priority", fmt.Sprintf("unknown value %q", *patch.Priority))
		}
		notif.Priority = *patch.Priority
	}
	if patch.Category != nil {
		notif.Category = *patch.Category
	}
	if patch.Metadata != nil {
		notif.Metadata = patch.Metadata
	}

	if err := s.notifRepo.Update(ctx, notif); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, userID)
	s.notifyUpdated(ctx, userID, id)
	return notif, nil
}

func (s *service) RecordClick(ctx context.Context, id, userID uuid.UUID) error {
	updated, err := s.notifRepo.RecordClick(ctx, id, userID)
	if err != nil {
		return err
	}
	if updated == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifRepo.CountUnread(ctx, userID)
}

const statsCacheTTL = time.Minute

func statsCacheKey(userID uuid.UUID) string {
	return "notifications:stats:" + userID.String()
}

func (s *service) GetUserStats(ctx context.Context, userID uuid.UUID) (*domain.UserStats, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, statsCacheKey(userID)).Result(); err == nil {
			var stats domain.UserStats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	stats, err := s.notifRepo.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if raw, err := json.Marshal(stats); err == nil {
			s.redis.Set(ctx, statsCacheKey(userID), raw, statsCacheTTL)
		}
	}
	return stats, nil
}

func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	return s.notifRepo.DeleteExpired(ctx, s.now())
}

func (s *service) invalidateStats(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	s.redis.Del(ctx, statsCacheKey(userID))
}

// afterReadChange refreshes caches and pushes the new unread count to
// the user's live sessions.
func (s *service) afterReadChange(ctx context.Context, userID, id uuid.UUID) {
	s.invalidateStats(ctx, userID)
	if id != uuid.Nil {
		s.notifyUpdated(ctx, userID, id)
	}
	s.pushUnreadCount(ctx, userID)
}

func (s *service) notifyUpdated(ctx context.Context, userID, id uuid.UUID) {
	s.dispatcher.SendToUser(ctx, userID, domain.OutboundEvent{
		Event: domain.EventNotificationUpdated,
		Data:  map[string]string{"id": id.String()},
	})
}

func (s *service) pushUnreadCount(ctx context.Context, userID uuid.UUID) {
	count, err := s.notifRepo.CountUnread(ctx, userID)
	if err != nil {
		log.Printf("notification: unread count for %s failed: %v", userID, err)
		return
	}
	s.dispatcher.SendToUser(ctx, userID, domain.OutboundEvent{
		Event: domain.EventUnreadCount,
		Data:  map[string]int64{"count": count},
	})
}
