package push

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"notify-hub/internal/domain"
	"notify-hub/internal/repository"
	"notify-hub/internal/service/policy"
)

type Service interface {
	SendToDevice(ctx context.Context, token string, payload domain.PushPayload) domain.PushResult
	SendToMultipleDevices(ctx context.Context, tokens []string, payload domain.PushPayload) domain.MulticastResult
	SendToUser(ctx context.Context, userID uuid.UUID, payload domain.PushPayload) (domain.MulticastResult, error)
	SendToTopic(ctx context.Context, topic string, payload domain.PushPayload) domain.PushResult
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) error
	UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error
	GetStats(ctx context.Context, from, to time.Time) (*domain.PushStats, error)
}

type service struct {
	gateway   Gateway
	tokenRepo repository.DeviceTokenRepository
	prefRepo  repository.PreferenceRepository
	redis     *redis.Client
	now       func() time.Time
}

func NewService(gateway Gateway, tokenRepo repository.DeviceTokenRepository, prefRepo repository.PreferenceRepository, redisClient *redis.Client) Service {
	return &service{
		gateway:   gateway,
		tokenRepo: tokenRepo,
		prefRepo:  prefRepo,
		redis:     redisClient,
		now:       time.Now,
	}
}

// SendToDevice pushes one message through the gateway. A provider
// "invalid token" rejection deactivates the token as a side effect and
// comes back as a failed result, not an error.
func (s *service) SendToDevice(ctx context.Context, token string, payload domain.PushPayload) domain.PushResult {
	messageID, err := s.gateway.Send(ctx, token, payload)
	if err != nil {
		if domain.IsInvalidToken(err) {
			s.deactivate(ctx, token)
		}
		s.count(ctx, "failed", 1)
		return domain.PushResult{Success: false, Error: err.Error()}
	}

	if err := s.tokenRepo.TouchLastUsed(ctx, []string{token}); err != nil {
		log.Printf("push: touch last_used failed: %v", err)
	}
	s.count(ctx, "sent", 1)
	return domain.PushResult{Success: true, ProviderMessageID: messageID}
}

// SendToMultipleDevices partitions per-token results of one multicast
// call. Result order matches token order; invalid tokens are
// deactivated; one bad token never fails the batch.
func (s *service) SendToMultipleDevices(ctx context.Context, tokens []string, payload domain.PushPayload) domain.MulticastResult {
	switch len(tokens) {
	case 0:
		return domain.MulticastResult{Success: true}
	case 1:
		res := s.SendToDevice(ctx, tokens[0], payload)
		out := domain.MulticastResult{
			Success: res.Success,
			Results: []domain.PushResult{res},
		}
		if res.Success {
			out.SuccessCount = 1
		} else {
			out.FailureCount = 1
			out.Errors = []string{res.Error}
		}
		return out
	}

	outcomes, err := s.gateway.SendMulticast(ctx, tokens, payload)
	if err != nil {
		// Whole-call failure: every token counts as failed.
		s.count(ctx, "failed", int64(len(tokens)))
		results := make([]domain.PushResult, len(tokens))
		errs := make([]string, len(tokens))
		for i := range tokens {
			results[i] = domain.PushResult{Success: false, Error: err.Error()}
			errs[i] = err.Error()
		}
		return domain.MulticastResult{
			FailureCount: len(tokens),
			Results:      results,
			Errors:       errs,
		}
	}

	out := domain.MulticastResult{Results: make([]domain.PushResult, len(tokens))}
	var delivered []string
	for i, o := range outcomes {
		if o.Err != nil {
			out.FailureCount++
			out.Errors = append(out.Errors, o.Err.Error())
			out.Results[i] = domain.PushResult{Success: false, Error: o.Err.Error()}
			if domain.IsInvalidToken(o.Err) {
				s.deactivate(ctx, tokens[i])
			}
			continue
		}
		out.SuccessCount++
		out.Results[i] = domain.PushResult{Success: true, ProviderMessageID: o.MessageID}
		delivered = append(delivered, tokens[i])
	}
	out.Success = out.FailureCount == 0

	if len(delivered) > 0 {
		if err := s.tokenRepo.TouchLastUsed(ctx, delivered); err != nil {
			log.Printf("push: touch last_used failed: %v", err)
		}
	}
	s.count(ctx, "sent", int64(out.SuccessCount))
	s.count(ctx, "failed", int64(out.FailureCount))

	return out
}

// SendToUser resolves the user's active device tokens, applies the push
// delivery policy, and multicasts. A policy denial or a user with no
// registered devices yields an empty successful result.
func (s *service) SendToUser(ctx context.Context, userID uuid.UUID, payload domain.PushPayload) (domain.MulticastResult, error) {
	prefs, err := s.prefRepo.GetByUser(ctx, userID)
	if err != nil {
		return domain.MulticastResult{}, fmt.Errorf("load preferences: %w", err)
	}

	decision := policy.Evaluate(prefs, domain.NotificationType(payload.Data["type"]), domain.ChannelPush, payload.Priority, s.now())
	if !decision.Allowed {
		return domain.MulticastResult{Success: true}, nil
	}

	devices, err := s.tokenRepo.ActiveByUser(ctx, userID)
	if err != nil {
		return domain.MulticastResult{}, fmt.Errorf("load device tokens: %w", err)
	}

	tokens := make([]string, len(devices))
	for i, d := range devices {
		tokens[i] = d.Token
	}
	return s.SendToMultipleDevices(ctx, tokens, payload), nil
}

func (s *service) SendToTopic(ctx context.Context, topic string, payload domain.PushPayload) domain.PushResult {
	messageID, err := s.gateway.SendToTopic(ctx, topic, payload)
	if err != nil {
		s.count(ctx, "failed", 1)
		return domain.PushResult{Success: false, Error: err.Error()}
	}
	s.count(ctx, "sent", 1)
	return domain.PushResult{Success: true, ProviderMessageID: messageID}
}

func (s *service) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	if len(tokens) == 0 {
		return nil
	}
	return s.gateway.SubscribeToTopic(ctx, tokens, topic)
}

func (s *service) UnsubscribeFromTopic(ctx context.Context, tokens []string, topic string) error {
	if len(tokens) == 0 {
		return nil
	}
	return s.gateway.UnsubscribeFromTopic(ctx, tokens, topic)
}

func (s *service) deactivate(ctx context.Context, token string) {
	if err := s.tokenRepo.Deactivate(ctx, token); err != nil {
		log.Printf("push: deactivate token failed: %v", err)
		return
	}
	s.count(ctx, "invalidated", 1)
}

// Delivery counters live in redis as per-day keys so GetStats can sum
// an arbitrary range without a table scan.

func statsKey(day time.Time, field string) string {
	return fmt.Sprintf("push:stats:%s:%s", day.Format("2006-01-02"), field)
}

func (s *service) count(ctx context.Context, field string, n int64) {
	if s.redis == nil || n == 0 {
		return
	}
	key := statsKey(s.now().UTC(), field)
	if err := s.redis.IncrBy(ctx, key, n).Err(); err != nil {
		log.Printf("push: stats incr failed: %v", err)
		return
	}
	s.redis.Expire(ctx, key, 90*24*time.Hour)
}

func (s *service) GetStats(ctx context.Context, from, to time.Time) (*domain.PushStats, error) {
	stats := &domain.PushStats{From: from, To: to}
	if s.redis == nil {
		return stats, nil
	}

	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to.UTC()); day = day.AddDate(0, 0, 1) {
		sent, err := s.redis.Get(ctx, statsKey(day, "sent")).Int64()
		if err != nil && err != redis.Nil {
			return nil, err
		}
		failed, err := s.redis.Get(ctx, statsKey(day, "failed")).Int64()
		if err != nil && err != redis.Nil {
			return nil, err
		}
		invalidated, err := s.redis.Get(ctx, statsKey(day, "invalidated")).Int64()
		if err != nil && err != redis.Nil {
			return nil, err
		}

		stats.Sent += sent
		stats.Failed += failed
		stats.Invalidated += invalidated
	}
	return stats, nil
}
