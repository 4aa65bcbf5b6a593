package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifQuoteUpdate NotificationType = "quote_update"
	NotifPayment     NotificationType = "payment"
	NotifSystem      NotificationType = "system"
	NotifMessage     NotificationType = "message"
	NotifReminder    NotificationType = "reminder"
	NotifAlert       NotificationType = "alert"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifQuoteUpdate, NotifPayment, NotifSystem, NotifMessage, NotifReminder, NotifAlert:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Channel is a delivery surface for a notification.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

type NotificationStatus string

const (
	StatusUnread   NotificationStatus = "unread"
	StatusRead     NotificationStatus = "read"
	StatusArchived NotificationStatus = "archived"
	StatusDeleted  NotificationStatus = "deleted"
)

type Notification struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	UserID     uuid.UUID        `json:"user_id" db:"user_id"`
	CompanyID  *uuid.UUID       `json:"company_id,omitempty" db:"company_id"`
	Type       NotificationType `json:"type" db:"type"`
	Priority   Priority         `json:"priority" db:"priority"`
	Category   string           `json:"category,omitempty" db:"category"`
	Title      string           `json:"title" db:"title"`
	Message    string           `json:"message" db:"message"`
	Metadata   Metadata         `json:"metadata,omitempty" db:"metadata"`
	IsRead     bool             `json:"is_read" db:"is_read"`
	IsArchived bool             `json:"is_archived" db:"is_archived"`
	IsDeleted  bool             `json:"is_deleted" db:"is_deleted"`
	IsActive   bool             `json:"is_active" db:"is_active"`
	ReadCount  int              `json:"read_count" db:"read_count"`
	ClickCount int              `json:"click_count" db:"click_count"`
	SentAt     *time.Time       `json:"sent_at,omitempty" db:"sent_at"`
	ReadAt     *time.Time       `json:"read_at,omitempty" db:"read_at"`
	ArchivedAt *time.Time       `json:"archived_at,omitempty" db:"archived_at"`
	DeletedAt  *time.Time       `json:"deleted_at,omitempty" db:"deleted_at"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at" db:"updated_at"`
}

// Status derives the lifecycle state from the flags.
// Precedence: deleted > archived > read > unread.
func (n *Notification) Status() NotificationStatus {
	switch {
	case n.IsDeleted:
		return StatusDeleted
	case n.IsArchived:
		return StatusArchived
	case n.IsRead:
		return StatusRead
	default:
		return StatusUnread
	}
}

func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

type CreateNotificationInput struct {
	UserID    uuid.UUID        `json:"user_id"`
	CompanyID *uuid.UUID       `json:"company_id,omitempty"`
	Type      NotificationType `json:"type"`
	Priority  Priority         `json:"priority"`
	Category  string           `json:"category,omitempty"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Metadata  Metadata         `json:"metadata,omitempty"`
	Channels  []Channel        `json:"channels,omitempty"`
	Email     string           `json:"email,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

type UpdateNotificationInput struct {
	Title    *string   `json:"title,omitempty"`
	Message  *string   `json:"message,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
	Category *string   `json:"category,omitempty"`
	Metadata Metadata  `json:"metadata,omitempty"`
}

// CreateResult reports the outcome of a single create attempt. A policy
// denial is an expected result, not an error.
type CreateResult struct {
	Notification *Notification `json:"notification,omitempty"`
	Denied       bool          `json:"denied"`
	DenyReason   string        `json:"deny_reason,omitempty"`
	Err          string        `json:"error,omitempty"`
}

type BulkCreateResult struct {
	Results      []CreateResult `json:"results"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
}

type NotificationFilter struct {
	Status     *NotificationStatus `json:"status,omitempty" query:"status"`
	Type       *NotificationType   `json:"type,omitempty" query:"type"`
	Priority   *Priority           `json:"priority,omitempty" query:"priority"`
	Category   string              `json:"category,omitempty" query:"category"`
	IsRead     *bool               `json:"is_read,omitempty" query:"is_read"`
	IsArchived *bool               `json:"is_archived,omitempty" query:"is_archived"`
	Search     string              `json:"search,omitempty" query:"search"`
	From       *time.Time          `json:"from,omitempty" query:"from"`
	To         *time.Time          `json:"to,omitempty" query:"to"`
	SortBy     string              `json:"sort_by,omitempty" query:"sort_by"`
	SortDesc   bool                `json:"sort_desc,omitempty" query:"sort_desc"`
}

// SortColumn maps the requested sort field to a storage column,
// falling back to created_at for anything unknown.
func (f NotificationFilter) SortColumn() string {
	switch f.SortBy {
	case "read_at", "priority", "type", "sent_at", "updated_at":
		return f.SortBy
	default:
		return "created_at"
	}
}

type UserStats struct {
	Total           int64                        `json:"total"`
	Unread          int64                        `json:"unread"`
	Read            int64                        `json:"read"`
	Archived        int64                        `json:"archived"`
	ByType          map[NotificationType]int64   `json:"by_type"`
	ByPriority      map[Priority]int64           `json:"by_priority"`
	ByStatus        map[NotificationStatus]int64 `json:"by_status"`
	LastRead        *time.Time                   `json:"last_read,omitempty"`
	LastReceived    *time.Time                   `json:"last_received,omitempty"`
	AverageReadTime float64                      `json:"average_read_time_seconds"`
}
