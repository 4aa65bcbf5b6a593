package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"notify-hub/internal/domain"
	"notify-hub/internal/middleware"
	"notify-hub/internal/service/push"
)

type PushHandler struct {
	pushService push.Service
	scheduler   *push.Scheduler
}

func NewPushHandler(pushService push.Service, scheduler *push.Scheduler) *PushHandler {
	return &PushHandler{pushService: pushService, scheduler: scheduler}
}

func (h *PushHandler) SendToUser(c *fiber.Ctx) error {
	var body struct {
		UserID  uuid.UUID          `json:"user_id"`
		Payload domain.PushPayload `json:"payload"`
	}
	if err := c.BodyParser(&body); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	if body.UserID == uuid.Nil {
		return middleware.BadRequest("User ID is required")
	}

	result, err := h.pushService.SendToUser(c.Context(), body.UserID, body.Payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *PushHandler) SendToTopic(c *fiber.Ctx) error {
	var body struct {
		Topic   string             `json:"topic"`
		Payload domain.PushPayload `json:"payload"`
	}
	if err := c.BodyParser(&body); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	if body.Topic == "" {
		return middleware.BadRequest("Topic is required")
	}

	result := h.pushService.SendToTopic(c.Context(), body.Topic, body.Payload)
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *PushHandler) Schedule(c *fiber.Ctx) error {
	var input domain.ScheduleNotificationInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	jobID, err := h.scheduler.ScheduleNotification(c.Context(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": jobID,
	})
}

func (h *PushHandler) CancelScheduled(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid job ID")
	}

	cancelled := h.scheduler.CancelScheduledNotification(c.Context(), jobID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"cancelled": cancelled,
	})
}

func (h *PushHandler) GetScheduled(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid job ID")
	}

	job, err := h.scheduler.GetJob(c.Context(), jobID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(job)
}

func (h *PushHandler) GetStats(c *fiber.Ctx) error {
	to := time.Now()
	from := to.AddDate(0, 0, -7)

	if v := c.Query("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = t
		}
	}

	stats, err := h.pushService.GetStats(c.Context(), from, to)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

func (h *PushHandler) SubscribeToTopic(c *fiber.Ctx) error {
	var body struct {
		Tokens []string `json:"tokens"`
		Topic  string   `json:"topic"`
	}
	if err := c.BodyParser(&body); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	if body.Topic == "" {
		return middleware.BadRequest("Topic is required")
	}

	if err := h.pushService.SubscribeToTopic(c.Context(), body.Tokens, body.Topic); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *PushHandler) UnsubscribeFromTopic(c *fiber.Ctx) error {
	var body struct {
		Tokens []string `json:"tokens"`
		Topic  string   `json:"topic"`
	}
	if err := c.BodyParser(&body); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	if body.Topic == "" {
		return middleware.BadRequest("Topic is required")
	}

	if err := h.pushService.UnsubscribeFromTopic(c.Context(), body.Tokens, body.Topic); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}
