package push_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"notify-hub/internal/domain"
	"notify-hub/internal/service/push"
)

type senderStub struct {
	mu    sync.Mutex
	calls []uuid.UUID
	done  chan struct{}
}

func newSenderStub(expected int) *senderStub {
	return &senderStub{done: make(chan struct{}, expected)}
}

func (s *senderStub) SendToUser(_ context.Context, userID uuid.UUID, _ domain.PushPayload) (domain.MulticastResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, userID)
	s.mu.Unlock()
	s.done <- struct{}{}
	return domain.MulticastResult{Success: true, SuccessCount: 1}, nil
}

func (s *senderStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduled send")
	}
}

func TestSchedule_PastDueFiresImmediately(t *testing.T) {
	sender := newSenderStub(1)
	s := push.NewScheduler(sender, nil)
	defer s.Stop()

	userID := uuid.New()
	id, err := s.ScheduleNotification(context.Background(), domain.ScheduleNotificationInput{
		UserIDs:     []uuid.UUID{userID},
		Type:        domain.NotifReminder,
		Priority:    domain.PriorityNormal,
		Title:       "due",
		ScheduledAt: time.Now().Add(-time.Hour),
	})

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	waitFor(t, sender.done)
	assert.Equal(t, 1, sender.callCount())
}

func TestSchedule_FutureDelivery(t *testing.T) {
	sender := newSenderStub(1)
	s := push.NewScheduler(sender, nil)
	defer s.Stop()

	_, err := s.ScheduleNotification(context.Background(), domain.ScheduleNotificationInput{
		UserIDs:     []uuid.UUID{uuid.New()},
		Title:       "soon",
		ScheduledAt: time.Now().Add(30 * time.Millisecond),
	})
	assert.NoError(t, err)

	assert.Equal(t, 0, sender.callCount())
	waitFor(t, sender.done)
	assert.Equal(t, 1, sender.callCount())
}

func TestSchedule_ValidatesInput(t *testing.T) {
	s := push.NewScheduler(newSenderStub(0), nil)
	defer s.Stop()

	_, err := s.ScheduleNotification(context.Background(), domain.ScheduleNotificationInput{
		Title:       "nobody",
		ScheduledAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.ScheduleNotification(context.Background(), domain.ScheduleNotificationInput{
		UserIDs:     []uuid.UUID{uuid.New()},
		ScheduledAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCancel_PendingJob(t *testing.T) {
	sender := newSenderStub(0)
	s := push.NewScheduler(sender, nil)
	defer s.Stop()

	id, err := s.ScheduleNotification(context.Background(), domain.ScheduleNotificationInput{
		UserIDs:     []uuid.UUID{uuid.New()},
		Title:       "later",
		ScheduledAt: time.Now().Add(time.Hour),
	})
	assert.NoError(t, err)

	assert.True(t, s.CancelScheduledNotification(context.Background(), id))

	// Second cancel and unknown ids report false, not an error.
	assert.False(t, s.CancelScheduledNotification(context.Background(), id))
	assert.False(t, s.CancelScheduledNotification(context.Background(), uuid.New()))
	assert.Equal(t, 0, sender.callCount())
}

func TestCancel_AfterExecution(t *testing.T) {
	sender := newSenderStub(1)
	s := push.NewScheduler(sender, nil)
	defer s.Stop()

	id, err := s.ScheduleNotification(context.Background(), domain.ScheduleNotificationInput{
		UserIDs:     []uuid.UUID{uuid.New()},
		Title:       "done",
		ScheduledAt: time.Now().Add(-time.Second),
	})
	assert.NoError(t, err)

	waitFor(t, sender.done)
	assert.False(t, s.CancelScheduledNotification(context.Background(), id))
}

func TestRepeatRule_Next(t *testing.T) {
	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) // a Friday

	none := domain.RepeatRule{Frequency: domain.RepeatNone}
	assert.True(t, none.Next(base).IsZero())

	daily := domain.RepeatRule{Frequency: domain.RepeatDaily}
	assert.Equal(t, base.AddDate(0, 0, 1), daily.Next(base))

	every3 := domain.RepeatRule{Frequency: domain.RepeatDaily, Interval: 3}
	assert.Equal(t, base.AddDate(0, 0, 3), every3.Next(base))

	weeklyMonday := domain.RepeatRule{
		Frequency:  domain.RepeatWeekly,
		DaysOfWeek: []time.Weekday{time.Monday},
	}
	next := weeklyMonday.Next(base)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.True(t, next.After(base))

	monthly31 := domain.RepeatRule{Frequency: domain.RepeatMonthly, DayOfMonth: 31}
	next = monthly31.Next(time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC))
	// February clamps to its last day.
	assert.Equal(t, time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC), next)

	end := base.AddDate(0, 0, 1)
	expired := domain.RepeatRule{Frequency: domain.RepeatWeekly, EndDate: &end}
	assert.True(t, expired.Next(base).IsZero())
}
