// Package policy decides whether a notification may be delivered to a
// user on a given channel. It is a pure function over the preference
// record and the current instant; it performs no I/O.
package policy

import (
	"fmt"
	"time"

	"notify-hub/internal/domain"
)

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Evaluate applies the layered delivery policy. First deny wins:
// global switch, type mute, channel mute, user mute, quiet hours.
// Urgent priority overrides mutes and quiet hours but not the explicit
// global/type/channel switches. A nil preference record behaves as
// all-defaults-enabled.
func Evaluate(prefs *domain.Preferences, typ domain.NotificationType, channel domain.Channel, priority domain.Priority, now time.Time) Decision {
	if prefs == nil {
		return allow()
	}

	if !prefs.NotificationsEnabled {
		return deny("notifications disabled")
	}

	if enabled, ok := prefs.TypeSettings[string(typ)]; ok && !enabled {
		return deny(fmt.Sprintf("type %s disabled", typ))
	}

	if enabled, ok := prefs.ChannelSettings[string(channel)]; ok && !enabled {
		return deny(fmt.Sprintf("channel %s disabled", channel))
	}

	if priority == domain.PriorityUrgent {
		return allow()
	}

	if muted(prefs, now) {
		return deny("user is muted")
	}

	if prefs.QuietHoursEnabled && inQuietHours(prefs, now) {
		return deny("quiet hours")
	}

	return allow()
}

func muted(prefs *domain.Preferences, now time.Time) bool {
	if prefs.MuteUntil != nil {
		return now.Before(*prefs.MuteUntil)
	}
	return prefs.IsMuted
}

// inQuietHours checks containment of now in [start, end), in the user's
// quiet-hours timezone. An overnight window (start > end, e.g.
// 22:00-08:00) wraps midnight: now >= start OR now < end.
func inQuietHours(prefs *domain.Preferences, now time.Time) bool {
	start, okStart := parseClock(prefs.QuietHoursStart)
	end, okEnd := parseClock(prefs.QuietHoursEnd)
	if !okStart || !okEnd || start == end {
		return false
	}

	loc, err := time.LoadLocation(prefs.QuietHoursTimezone)
	if err != nil {
		loc = time.UTC
	}

	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
