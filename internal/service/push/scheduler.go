package push

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"notify-hub/internal/domain"
)

const jobKeyPrefix = "scheduled_jobs:"

// jobRecordTTL keeps finished job records around long enough for
// inspection before redis reclaims them.
const jobRecordTTL = 30 * 24 * time.Hour

// UserSender is the slice of the push service the scheduler needs to
// execute a job.
type UserSender interface {
	SendToUser(ctx context.Context, userID uuid.UUID, payload domain.PushPayload) (domain.MulticastResult, error)
}

// Scheduler arms one in-process timer per pending job and keeps the
// durable job record in redis (the delay-queue collaborator's store).
// Cancellation races with in-flight execution are tolerated: a cancel
// that loses the race reports false and nothing else.
type Scheduler struct {
	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer

	sender UserSender
	redis  *redis.Client
	now    func() time.Time
}

func NewScheduler(sender UserSender, redisClient *redis.Client) *Scheduler {
	return &Scheduler{
		timers: make(map[uuid.UUID]*time.Timer),
		sender: sender,
		redis:  redisClient,
		now:    time.Now,
	}
}

// ScheduleNotification enqueues a delayed push send and returns the job
// id. A scheduledAt in the past fires immediately: the delay clamps to
// zero, never negative.
func (s *Scheduler) ScheduleNotification(ctx context.Context, input domain.ScheduleNotificationInput) (uuid.UUID, error) {
	if len(input.UserIDs) == 0 {
		return uuid.Nil, domain.Invalid("user_ids", "must not be empty")
	}
	if input.Title == "" {
		return uuid.Nil, domain.Invalid("title", "must not be empty")
	}

	now := s.now()
	job := &domain.ScheduledJob{
		ID:          uuid.New(),
		UserIDs:     input.UserIDs,
		Type:        input.Type,
		Priority:    input.Priority,
		Title:       input.Title,
		Message:     input.Message,
		Metadata:    input.Metadata,
		ScheduledAt: input.ScheduledAt,
		Timezone:    input.Timezone,
		Repeat:      input.Repeat,
		Status:      domain.JobPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.saveJob(ctx, job); err != nil {
		return uuid.Nil, err
	}

	s.arm(job, maxDelay(job.ScheduledAt, now))
	return job.ID, nil
}

func maxDelay(scheduledAt, now time.Time) time.Duration {
	delay := scheduledAt.Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}

func (s *Scheduler) arm(job *domain.ScheduledJob, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[job.ID] = time.AfterFunc(delay, func() { s.execute(job) })
}

// CancelScheduledNotification removes a pending job. It returns false
// when the job is unknown or its timer already fired; losing the race
// with execution is not an error.
func (s *Scheduler) CancelScheduledNotification(ctx context.Context, id uuid.UUID) bool {
	s.mu.Lock()
	timer, ok := s.timers[id]
	if ok {
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if !ok || !timer.Stop() {
		return false
	}

	if err := s.updateStatus(ctx, id, func(job *domain.ScheduledJob) {
		job.Status = domain.JobCancelled
	}); err != nil {
		log.Printf("scheduler: mark cancelled failed for %s: %v", id, err)
	}
	return true
}

// GetJob loads the durable record for a scheduled job.
func (s *Scheduler) GetJob(ctx context.Context, id uuid.UUID) (*domain.ScheduledJob, error) {
	if s.redis == nil {
		return nil, domain.ErrNotFound
	}

	raw, err := s.redis.Get(ctx, jobKeyPrefix+id.String()).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var job domain.ScheduledJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Stop drains every armed timer; pending jobs stay recorded in redis.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) execute(job *domain.ScheduledJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.mu.Lock()
	delete(s.timers, job.ID)
	s.mu.Unlock()

	payload := domain.PushPayload{
		Title:    job.Title,
		Body:     job.Message,
		Data:     job.Metadata,
		Priority: job.Priority,
	}
	if payload.Data == nil {
		payload.Data = domain.Metadata{}
	}
	payload.Data["type"] = string(job.Type)

	sent, failed := 0, 0
	for _, userID := range job.UserIDs {
		res, err := s.sender.SendToUser(ctx, userID, payload)
		if err != nil {
			log.Printf("scheduler: job %s send to %s failed: %v", job.ID, userID, err)
			failed++
			continue
		}
		sent += res.SuccessCount
		failed += res.FailureCount
	}

	status := domain.JobSent
	if sent == 0 && failed > 0 {
		status = domain.JobFailed
	}

	if err := s.updateStatus(ctx, job.ID, func(j *domain.ScheduledJob) {
		j.Status = status
		j.SentCount += sent
		j.FailedCount += failed
	}); err != nil {
		log.Printf("scheduler: record job %s result failed: %v", job.ID, err)
	}

	s.reschedule(ctx, job)
}

// reschedule arms the next occurrence of a repeating job under the same
// id, until the rule runs out.
func (s *Scheduler) reschedule(ctx context.Context, job *domain.ScheduledJob) {
	if !job.Repeat.Repeats() {
		return
	}

	next := job.Repeat.Next(job.ScheduledAt)
	if next.IsZero() {
		return
	}

	job.ScheduledAt = next
	if err := s.updateStatus(ctx, job.ID, func(j *domain.ScheduledJob) {
		j.Status = domain.JobPending
		j.ScheduledAt = next
	}); err != nil {
		log.Printf("scheduler: reschedule job %s failed: %v", job.ID, err)
	}

	s.arm(job, maxDelay(next, s.now()))
}

func (s *Scheduler) saveJob(ctx context.Context, job *domain.ScheduledJob) error {
	if s.redis == nil {
		return nil
	}

	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKeyPrefix+job.ID.String(), raw, jobRecordTTL).Err()
}

func (s *Scheduler) updateStatus(ctx context.Context, id uuid.UUID, mutate func(*domain.ScheduledJob)) error {
	if s.redis == nil {
		return nil
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}

	mutate(job)
	job.UpdatedAt = s.now()
	return s.saveJob(ctx, job)
}
