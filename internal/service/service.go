package service

import (
	"github.com/redis/go-redis/v9"

	"notify-hub/internal/config"
	"notify-hub/internal/repository"
	"notify-hub/internal/service/device"
	"notify-hub/internal/service/email"
	"notify-hub/internal/service/notification"
	"notify-hub/internal/service/preference"
	"notify-hub/internal/service/push"
	"notify-hub/internal/service/realtime"
)

type Services struct {
	Hub          *realtime.Hub
	Dispatcher   *realtime.Dispatcher
	Notification notification.Service
	Preference   preference.Service
	Device       device.Service
	Push         push.Service
	Scheduler    *push.Scheduler
	Email        email.Service
}

func NewServices(repos *repository.Repositories, redis *redis.Client, cfg *config.Config) *Services {
	emailService := email.NewService(cfg)

	hub := realtime.NewHub()
	dispatcher := realtime.NewDispatcher(hub, repos.Preference)

	notificationService := notification.NewService(repos.Notification, repos.Preference, dispatcher, emailService, redis)
	preferenceService := preference.NewService(repos.Preference)
	deviceService := device.NewService(repos.DeviceToken)

	gateway := push.NewHTTPGateway(cfg.PushGatewayURL, cfg.PushAPIKey)
	pushService := push.NewService(gateway, repos.DeviceToken, repos.Preference, redis)
	scheduler := push.NewScheduler(pushService, redis)

	return &Services{
		Hub:          hub,
		Dispatcher:   dispatcher,
		Notification: notificationService,
		Preference:   preferenceService,
		Device:       deviceService,
		Push:         pushService,
		Scheduler:    scheduler,
		Email:        emailService,
	}
}
