package preference

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"notify-hub/internal/domain"
	"notify-hub/internal/repository"
)

type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error)
	Update(ctx context.Context, userID uuid.UUID, input domain.UpdatePreferencesInput) (*domain.Preferences, error)
	Reset(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error)
	Export(ctx context.Context, userID uuid.UUID) (domain.PreferencesSnapshot, error)
	Import(ctx context.Context, userID uuid.UUID, snapshot domain.PreferencesSnapshot) (*domain.Preferences, error)
	Mute(ctx context.Context, userID uuid.UUID, until *time.Time) error
	Unmute(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	prefRepo repository.PreferenceRepository
	now      func() time.Time
}

func NewService(prefRepo repository.PreferenceRepository) Service {
	return &service{
		prefRepo: prefRepo,
		now:      time.Now,
	}
}

// Get returns the stored record or in-memory defaults for users who
// never customized anything. Defaults are not persisted on read.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	if userID == uuid.Nil {
		return nil, domain.Invalid("user_id", "must not be empty")
	}

	prefs, err := s.prefRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if prefs == nil {
		return domain.DefaultPreferences(userID), nil
	}
	return prefs, nil
}

var clockRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

func validClock(v string) bool {
	return clockRe.MatchString(v)
}

func validTimezone(name string) bool {
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// Update applies a partial patch on top of the current (or default)
// record and upserts the result.
func (s *service) Update(ctx context.Context, userID uuid.UUID, input domain.UpdatePreferencesInput) (*domain.Preferences, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.NotificationsEnabled != nil {
		prefs.NotificationsEnabled = *input.NotificationsEnabled
	}
	if input.TypeSettings != nil {
		prefs.TypeSettings = input.TypeSettings
	}
	if input.ChannelSettings != nil {
		prefs.ChannelSettings = input.ChannelSettings
	}
	if input.QuietHoursEnabled != nil {
		prefs.QuietHoursEnabled = *input.QuietHoursEnabled
	}
	if input.QuietHoursStart != nil {
		if !validClock(*input.QuietHoursStart) {
			return nil, domain.Invalid("quiet_hours_start", "must be HH:MM")
		}
		prefs.QuietHoursStart = *input.QuietHoursStart
	}
	if input.QuietHoursEnd != nil {
		if !validClock(*input.QuietHoursEnd) {
			return nil, domain.Invalid("quiet_hours_end", "must be HH:MM")
		}
		prefs.QuietHoursEnd = *input.QuietHoursEnd
	}
	if input.QuietHoursTimezone != nil {
		if !validTimezone(*input.QuietHoursTimezone) {
			return nil, domain.Invalid("quiet_hours_timezone", fmt.Sprintf("unknown timezone %q", *input.QuietHoursTimezone))
		}
		prefs.QuietHoursTimezone = *input.QuietHoursTimezone
	}
	if input.IsMuted != nil {
		prefs.IsMuted = *input.IsMuted
		if !prefs.IsMuted {
			prefs.MuteUntil = nil
		}
	}
	if input.MuteUntil != nil {
		prefs.MuteUntil = input.MuteUntil
	}

	if err := s.prefRepo.Upsert(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}

// Reset drops any stored record so the user falls back to defaults.
func (s *service) Reset(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	if userID == uuid.Nil {
		return nil, domain.Invalid("user_id", "must not be empty")
	}
	if err := s.prefRepo.Delete(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to reset preferences: %w", err)
	}
	return domain.DefaultPreferences(userID), nil
}

func (s *service) Export(ctx context.Context, userID uuid.UUID) (domain.PreferencesSnapshot, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return domain.PreferencesSnapshot{}, err
	}
	return prefs.Snapshot(), nil
}

func (s *service) Import(ctx context.Context, userID uuid.UUID, snapshot domain.PreferencesSnapshot) (*domain.Preferences, error) {
	if userID == uuid.Nil {
		return nil, domain.Invalid("user_id", "must not be empty")
	}
	if snapshot.QuietHoursStart != "" && !validClock(snapshot.QuietHoursStart) {
		return nil, domain.Invalid("quiet_hours_start", "must be HH:MM")
	}
	if snapshot.QuietHoursEnd != "" && !validClock(snapshot.QuietHoursEnd) {
		return nil, domain.Invalid("quiet_hours_end", "must be HH:MM")
	}
	if snapshot.QuietHoursTimezone != "" && !validTimezone(snapshot.QuietHoursTimezone) {
		return nil, domain.Invalid("quiet_hours_timezone", fmt.Sprintf("unknown timezone %q", snapshot.QuietHoursTimezone))
	}

	prefs := snapshot.Apply(userID)
	if prefs.QuietHoursTimezone == "" {
		prefs.QuietHoursTimezone = "UTC"
	}
	if err := s.prefRepo.Upsert(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to import preferences: %w", err)
	}
	return prefs, nil
}

// Mute silences non-urgent delivery, indefinitely when until is nil.
func (s *service) Mute(ctx context.Context, userID uuid.UUID, until *time.Time) error {
	if until != nil && until.Before(s.now()) {
		return domain.Invalid("mute_until", "must be in the future")
	}

	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	prefs.IsMuted = true
	prefs.MuteUntil = until
	if err := s.prefRepo.Upsert(ctx, prefs); err != nil {
		return fmt.Errorf("failed to mute: %w", err)
	}
	return nil
}

func (s *service) Unmute(ctx context.Context, userID uuid.UUID) error {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	prefs.IsMuted = false
	prefs.MuteUntil = nil
	if err := s.prefRepo.Upsert(ctx, prefs); err != nil {
		return fmt.Errorf("failed to unmute: %w", err)
	}
	return nil
}
