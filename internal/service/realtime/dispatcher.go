package realtime

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"notify-hub/internal/domain"
	"notify-hub/internal/repository"
	"notify-hub/internal/service/policy"
)

// Dispatcher fans events out to live sessions, applying the in_app
// delivery policy per recipient. It never retries: an absent session or
// a failed write is a one-shot delivery failure reported to the caller.
type Dispatcher struct {
	hub      *Hub
	prefRepo repository.PreferenceRepository
	now      func() time.Time
}

func NewDispatcher(hub *Hub, prefRepo repository.PreferenceRepository) *Dispatcher {
	return &Dispatcher{
		hub:      hub,
		prefRepo: prefRepo,
		now:      time.Now,
	}
}

func (d *Dispatcher) Hub() *Hub {
	return d.hub
}

// SendToUser emits an event to every live session of one user. It
// returns false when policy denies in_app delivery or the user has no
// live session; both are expected outcomes, not errors.
func (d *Dispatcher) SendToUser(ctx context.Context, userID uuid.UUID, event domain.OutboundEvent) bool {
	prefs, err := d.prefRepo.GetByUser(ctx, userID)
	if err != nil {
		log.Printf("realtime: preference lookup failed for %s: %v", userID, err)
		return false
	}

	decision := policy.Evaluate(prefs, eventType(event), domain.ChannelInApp, eventPriority(event), d.now())
	if !decision.Allowed {
		return false
	}

	sessions := d.hub.SessionsFor(userID)
	if len(sessions) == 0 {
		return false
	}

	delivered := false
	for _, s := range sessions {
		if err := s.Emit(event.Event, event.Data); err != nil {
			log.Printf("realtime: emit %s to session %s failed: %v", event.Event, s.ID(), err)
			continue
		}
		delivered = true
	}
	return delivered
}

// SendToUsers dispatches to each recipient concurrently and reports
// how many succeeded. One failing recipient never affects the rest.
func (d *Dispatcher) SendToUsers(ctx context.Context, userIDs []uuid.UUID, event domain.OutboundEvent) domain.DispatchResult {
	var success atomic.Int64
	var wg sync.WaitGroup

	for _, id := range userIDs {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			if d.SendToUser(ctx, userID, event) {
				success.Add(1)
			}
		}(id)
	}
	wg.Wait()

	return domain.DispatchResult{
		SuccessCount: int(success.Load()),
		TotalCount:   len(userIDs),
	}
}

// SendToCompany resolves the currently-connected members of a company
// and delegates. Zero connected members yields {0,0}.
func (d *Dispatcher) SendToCompany(ctx context.Context, companyID uuid.UUID, event domain.OutboundEvent) domain.DispatchResult {
	return d.SendToUsers(ctx, d.hub.CompanyUserIDs(companyID), event)
}

// Broadcast dispatches to every registered user.
func (d *Dispatcher) Broadcast(ctx context.Context, event domain.OutboundEvent) domain.DispatchResult {
	return d.SendToUsers(ctx, d.hub.ConnectedUserIDs(), event)
}

// Subscribe joins a session to a type-topic room.
func (d *Dispatcher) Subscribe(s Session, topic string) {
	d.hub.Join(s, TopicRoom(topic))
}

// Unsubscribe leaves a type-topic room.
func (d *Dispatcher) Unsubscribe(s Session, topic string) {
	d.hub.Leave(s, TopicRoom(topic))
}

// Events that carry a notification are policy-checked against its type
// and priority; bookkeeping events (unread counts, lifecycle updates)
// evaluate as system/normal.
func eventType(event domain.OutboundEvent) domain.NotificationType {
	if n, ok := event.Data.(*domain.Notification); ok {
		return n.Type
	}
	return domain.NotifSystem
}

func eventPriority(event domain.OutboundEvent) domain.Priority {
	if n, ok := event.Data.(*domain.Notification); ok {
		return n.Priority
	}
	return domain.PriorityNormal
}
