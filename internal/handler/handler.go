package handler

import (
	"notify-hub/internal/config"
	"notify-hub/internal/service"
)

type Handlers struct {
	Notification *NotificationHandler
	Preference   *PreferenceHandler
	Device       *DeviceHandler
	Push         *PushHandler
	Realtime     *RealtimeHandler
	WS           *WSHandler
}

func NewHandlers(services *service.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		Notification: NewNotificationHandler(services.Notification),
		Preference:   NewPreferenceHandler(services.Preference),
		Device:       NewDeviceHandler(services.Device),
		Push:         NewPushHandler(services.Push, services.Scheduler),
		Realtime:     NewRealtimeHandler(services.Dispatcher),
		WS:           NewWSHandler(services.Hub, services.Dispatcher, services.Notification, cfg),
	}
}
