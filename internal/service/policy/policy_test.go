package policy_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"notify-hub/internal/domain"
	"notify-hub/internal/service/policy"
)

func basePrefs() *domain.Preferences {
	return domain.DefaultPreferences(uuid.New())
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 15, hour, minute, 0, 0, time.UTC)
}

func TestEvaluate_DefaultsAllow(t *testing.T) {
	d := policy.Evaluate(nil, domain.NotifPayment, domain.ChannelInApp, domain.PriorityNormal, at(12, 0))
	assert.True(t, d.Allowed)

	d = policy.Evaluate(basePrefs(), domain.NotifPayment, domain.ChannelPush, domain.PriorityNormal, at(12, 0))
	assert.True(t, d.Allowed)
}

func TestEvaluate_GlobalDisable(t *testing.T) {
	prefs := basePrefs()
	prefs.NotificationsEnabled = false

	d := policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityUrgent, at(12, 0))
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "disabled")
}

func TestEvaluate_TypeDisabled(t *testing.T) {
	prefs := basePrefs()
	prefs.TypeSettings = domain.BoolMap{"quote_update": false}

	d := policy.Evaluate(prefs, domain.NotifQuoteUpdate, domain.ChannelInApp, domain.PriorityNormal, at(12, 0))
	assert.False(t, d.Allowed)

	// Other types unaffected.
	d = policy.Evaluate(prefs, domain.NotifPayment, domain.ChannelInApp, domain.PriorityNormal, at(12, 0))
	assert.True(t, d.Allowed)
}

func TestEvaluate_ChannelDisabled(t *testing.T) {
	prefs := basePrefs()
	prefs.ChannelSettings = domain.BoolMap{"push": false}

	d := policy.Evaluate(prefs, domain.NotifPayment, domain.ChannelPush, domain.PriorityNormal, at(12, 0))
	assert.False(t, d.Allowed)

	d = policy.Evaluate(prefs, domain.NotifPayment, domain.ChannelInApp, domain.PriorityNormal, at(12, 0))
	assert.True(t, d.Allowed)
}

func TestEvaluate_Mute(t *testing.T) {
	prefs := basePrefs()
	prefs.IsMuted = true

	d := policy.Evaluate(prefs, domain.NotifAlert, domain.ChannelInApp, domain.PriorityHigh, at(12, 0))
	assert.False(t, d.Allowed)
	assert.Equal(t, "user is muted", d.Reason)

	// Urgent bypasses the mute.
	d = policy.Evaluate(prefs, domain.NotifAlert, domain.ChannelInApp, domain.PriorityUrgent, at(12, 0))
	assert.True(t, d.Allowed)
}

func TestEvaluate_MuteUntil(t *testing.T) {
	prefs := basePrefs()
	prefs.IsMuted = true
	until := at(14, 0)
	prefs.MuteUntil = &until

	d := policy.Evaluate(prefs, domain.NotifAlert, domain.ChannelInApp, domain.PriorityNormal, at(13, 0))
	assert.False(t, d.Allowed)

	// Mute expired: the flag no longer applies.
	d = policy.Evaluate(prefs, domain.NotifAlert, domain.ChannelInApp, domain.PriorityNormal, at(15, 0))
	assert.True(t, d.Allowed)
}

func TestEvaluate_QuietHoursOvernight(t *testing.T) {
	prefs := basePrefs()
	prefs.QuietHoursEnabled = true
	prefs.QuietHoursStart = "22:00"
	prefs.QuietHoursEnd = "08:00"
	prefs.QuietHoursTimezone = "UTC"

	d := policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityNormal, at(23, 30))
	assert.False(t, d.Allowed)
	assert.Equal(t, "quiet hours", d.Reason)

	d = policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityNormal, at(3, 0))
	assert.False(t, d.Allowed)

	d = policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityNormal, at(9, 0))
	assert.True(t, d.Allowed)

	// Urgent bypasses quiet hours.
	d = policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityUrgent, at(23, 30))
	assert.True(t, d.Allowed)
}

func TestEvaluate_QuietHoursSameDay(t *testing.T) {
	prefs := basePrefs()
	prefs.QuietHoursEnabled = true
	prefs.QuietHoursStart = "08:00"
	prefs.QuietHoursEnd = "18:00"
	prefs.QuietHoursTimezone = "UTC"

	d := policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityNormal, at(12, 0))
	assert.False(t, d.Allowed)

	d = policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityNormal, at(19, 0))
	assert.True(t, d.Allowed)

	// Boundaries: start inclusive, end exclusive.
	d = policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityNormal, at(8, 0))
	assert.False(t, d.Allowed)

	d = policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityNormal, at(18, 0))
	assert.True(t, d.Allowed)
}

func TestEvaluate_QuietHoursTimezone(t *testing.T) {
	prefs := basePrefs()
	prefs.QuietHoursEnabled = true
	prefs.QuietHoursStart = "22:00"
	prefs.QuietHoursEnd = "08:00"
	prefs.QuietHoursTimezone = "Asia/Jakarta" // UTC+7

	// 16:00 UTC is 23:00 in Jakarta - inside the window.
	d := policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityNormal, at(16, 0))
	assert.False(t, d.Allowed)

	// 5:00 UTC is 12:00 in Jakarta - outside.
	d = policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityNormal, at(5, 0))
	assert.True(t, d.Allowed)
}

func TestEvaluate_MalformedQuietHoursIgnored(t *testing.T) {
	prefs := basePrefs()
	prefs.QuietHoursEnabled = true
	prefs.QuietHoursStart = "not-a-time"
	prefs.QuietHoursEnd = "08:00"

	d := policy.Evaluate(prefs, domain.NotifSystem, domain.ChannelInApp, domain.PriorityNormal, at(3, 0))
	assert.True(t, d.Allowed)
}
