package domain

import (
	"time"

	"github.com/google/uuid"
)

type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return true
	}
	return false
}

// DeviceToken is a push-messaging registration for one device. Once the
// gateway reports the token invalid it is deactivated and never reused.
type DeviceToken struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	CompanyID *uuid.UUID `json:"company_id,omitempty" db:"company_id"`
	Token     string     `json:"token" db:"token"`
	Platform  Platform   `json:"platform" db:"platform"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	LastUsed  *time.Time `json:"last_used,omitempty" db:"last_used"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

type RegisterDeviceInput struct {
	Token    string   `json:"token"`
	Platform Platform `json:"platform"`
}
