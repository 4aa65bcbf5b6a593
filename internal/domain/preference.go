package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BoolMap is a JSONB-backed map of enabled flags keyed by type or channel
// name. A key that is absent means "enabled" - only an explicit false
// disables delivery.
type BoolMap map[string]bool

func (b BoolMap) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

func (b *BoolMap) Scan(src any) error {
	if src == nil {
		*b = nil
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("boolmap: cannot scan %T", src)
	}

	return json.Unmarshal(raw, b)
}

type Preferences struct {
	UserID               uuid.UUID  `json:"user_id" db:"user_id"`
	NotificationsEnabled bool       `json:"notifications_enabled" db:"notifications_enabled"`
	TypeSettings         BoolMap    `json:"type_settings" db:"type_settings"`
	ChannelSettings      BoolMap    `json:"channel_settings" db:"channel_settings"`
	QuietHoursEnabled    bool       `json:"quiet_hours_enabled" db:"quiet_hours_enabled"`
	QuietHoursStart      string     `json:"quiet_hours_start" db:"quiet_hours_start"`
	QuietHoursEnd        string     `json:"quiet_hours_end" db:"quiet_hours_end"`
	QuietHoursTimezone   string     `json:"quiet_hours_timezone" db:"quiet_hours_timezone"`
	IsMuted              bool       `json:"is_muted" db:"is_muted"`
	MuteUntil            *time.Time `json:"mute_until,omitempty" db:"mute_until"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// DefaultPreferences is the lazily-created record a user gets on first
// access: everything enabled, no quiet hours, no mutes.
func DefaultPreferences(userID uuid.UUID) *Preferences {
	return &Preferences{
		UserID:               userID,
		NotificationsEnabled: true,
		TypeSettings:         BoolMap{},
		ChannelSettings:      BoolMap{},
		QuietHoursEnabled:    false,
		QuietHoursStart:      "22:00",
		QuietHoursEnd:        "08:00",
		QuietHoursTimezone:   "UTC",
	}
}

type UpdatePreferencesInput struct {
	NotificationsEnabled *bool      `json:"notifications_enabled,omitempty"`
	TypeSettings         BoolMap    `json:"type_settings,omitempty"`
	ChannelSettings      BoolMap    `json:"channel_settings,omitempty"`
	QuietHoursEnabled    *bool      `json:"quiet_hours_enabled,omitempty"`
	QuietHoursStart      *string    `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd        *string    `json:"quiet_hours_end,omitempty"`
	QuietHoursTimezone   *string    `json:"quiet_hours_timezone,omitempty"`
	IsMuted              *bool      `json:"is_muted,omitempty"`
	MuteUntil            *time.Time `json:"mute_until,omitempty"`
}

// PreferencesSnapshot is the exportable/importable form of a preference
// record, without the server-side identifiers and timestamps.
type PreferencesSnapshot struct {
	NotificationsEnabled bool       `json:"notifications_enabled"`
	TypeSettings         BoolMap    `json:"type_settings"`
	ChannelSettings      BoolMap    `json:"channel_settings"`
	QuietHoursEnabled    bool       `json:"quiet_hours_enabled"`
	QuietHoursStart      string     `json:"quiet_hours_start"`
	QuietHoursEnd        string     `json:"quiet_hours_end"`
	QuietHoursTimezone   string     `json:"quiet_hours_timezone"`
	IsMuted              bool       `json:"is_muted"`
	MuteUntil            *time.Time `json:"mute_until,omitempty"`
}

func (p *Preferences) Snapshot() PreferencesSnapshot {
	return PreferencesSnapshot{
		NotificationsEnabled: p.NotificationsEnabled,
		TypeSettings:         p.TypeSettings,
		ChannelSettings:      p.ChannelSettings,
		QuietHoursEnabled:    p.QuietHoursEnabled,
		QuietHoursStart:      p.QuietHoursStart,
		QuietHoursEnd:        p.QuietHoursEnd,
		QuietHoursTimezone:   p.QuietHoursTimezone,
		IsMuted:              p.IsMuted,
		MuteUntil:            p.MuteUntil,
	}
}

func (s PreferencesSnapshot) Apply(userID uuid.UUID) *Preferences {
	return &Preferences{
		UserID:               userID,
		NotificationsEnabled: s.NotificationsEnabled,
		TypeSettings:         s.TypeSettings,
		ChannelSettings:      s.ChannelSettings,
		QuietHoursEnabled:    s.QuietHoursEnabled,
		QuietHoursStart:      s.QuietHoursStart,
		QuietHoursEnd:        s.QuietHoursEnd,
		QuietHoursTimezone:   s.QuietHoursTimezone,
		IsMuted:              s.IsMuted,
		MuteUntil:            s.MuteUntil,
	}
}
