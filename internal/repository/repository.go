package repository

import (
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	Notification NotificationRepository
	Preference   PreferenceRepository
	DeviceToken  DeviceTokenRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Notification: NewNotificationRepository(db),
		Preference:   NewPreferenceRepository(db),
		DeviceToken:  NewDeviceTokenRepository(db),
	}
}
