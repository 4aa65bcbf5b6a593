package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobSent      JobStatus = "sent"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

type RepeatFrequency string

const (
	RepeatNone    RepeatFrequency = "none"
	RepeatDaily   RepeatFrequency = "daily"
	RepeatWeekly  RepeatFrequency = "weekly"
	RepeatMonthly RepeatFrequency = "monthly"
)

// RepeatRule describes how a scheduled job recurs after its first run.
type RepeatRule struct {
	Frequency  RepeatFrequency `json:"frequency"`
	Interval   int             `json:"interval,omitempty"`
	DaysOfWeek []time.Weekday  `json:"days_of_week,omitempty"`
	DayOfMonth int             `json:"day_of_month,omitempty"`
	EndDate    *time.Time      `json:"end_date,omitempty"`
}

func (r RepeatRule) Repeats() bool {
	return r.Frequency != "" && r.Frequency != RepeatNone
}

// Next computes the first run strictly after from, or the zero time when
// the rule does not repeat or the next run would fall past EndDate.
func (r RepeatRule) Next(from time.Time) time.Time {
	if !r.Repeats() {
		return time.Time{}
	}

	interval := r.Interval
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch r.Frequency {
	case RepeatDaily:
		next = from.AddDate(0, 0, interval)
	case RepeatWeekly:
		next = r.nextWeekly(from, interval)
	case RepeatMonthly:
		next = r.nextMonthly(from, interval)
	default:
		return time.Time{}
	}

	if r.EndDate != nil && next.After(*r.EndDate) {
		return time.Time{}
	}
	return next
}

func (r RepeatRule) nextWeekly(from time.Time, interval int) time.Time {
	if len(r.DaysOfWeek) == 0 {
		return from.AddDate(0, 0, 7*interval)
	}

	// Scan forward day by day for the nearest requested weekday,
	// skipping whole weeks according to the interval.
	for d := 1; d <= 7*interval; d++ {
		candidate := from.AddDate(0, 0, d)
		for _, wd := range r.DaysOfWeek {
			if candidate.Weekday() == wd {
				return candidate
			}
		}
	}
	return from.AddDate(0, 0, 7*interval)
}

func (r RepeatRule) nextMonthly(from time.Time, interval int) time.Time {
	year, month := from.Year(), from.Month()
	for i := 0; i < interval; i++ {
		if month == time.December {
			year++
			month = time.January
		} else {
			month++
		}
	}

	day := r.DayOfMonth
	if day < 1 {
		day = from.Day()
	}
	// Clamp month-end overflow (the 31st of February becomes the 28th/29th).
	if last := daysInMonth(year, month); day > last {
		day = last
	}

	return time.Date(year, month, day, from.Hour(), from.Minute(), from.Second(), 0, from.Location())
}

func daysInMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// ScheduledJob is the durable record behind a delayed push send. The
// in-process timer is ephemeral; this record is what survives in the
// delay-queue store.
type ScheduledJob struct {
	ID          uuid.UUID        `json:"id"`
	UserIDs     []uuid.UUID      `json:"user_ids"`
	Type        NotificationType `json:"type"`
	Priority    Priority         `json:"priority"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Metadata    Metadata         `json:"metadata,omitempty"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	Timezone    string           `json:"timezone,omitempty"`
	Repeat      RepeatRule       `json:"repeat"`
	Status      JobStatus        `json:"status"`
	SentCount   int              `json:"sent_count"`
	FailedCount int              `json:"failed_count"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type ScheduleNotificationInput struct {
	UserIDs     []uuid.UUID      `json:"user_ids"`
	Type        NotificationType `json:"type"`
	Priority    Priority         `json:"priority"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Metadata    Metadata         `json:"metadata,omitempty"`
	ScheduledAt time.Time        `json:"scheduled_at"`
	Timezone    string           `json:"timezone,omitempty"`
	Repeat      RepeatRule       `json:"repeat"`
}
