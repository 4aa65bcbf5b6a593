package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"notify-hub/internal/domain"
	"notify-hub/internal/middleware"
	"notify-hub/internal/service/realtime"
)

// RealtimeHandler exposes fan-out to live sessions without persisting
// anything: transient announcements, deploy notices and the like.
type RealtimeHandler struct {
	dispatcher *realtime.Dispatcher
}

func NewRealtimeHandler(dispatcher *realtime.Dispatcher) *RealtimeHandler {
	return &RealtimeHandler{dispatcher: dispatcher}
}

func (h *RealtimeHandler) Announce(c *fiber.Ctx) error {
	var body struct {
		CompanyID *uuid.UUID      `json:"company_id,omitempty"`
		UserIDs   []uuid.UUID     `json:"user_ids,omitempty"`
		Event     string          `json:"event"`
		Data      json.RawMessage `json:"data,omitempty"`
	}
	if err := c.BodyParser(&body); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	if body.Event == "" {
		return middleware.BadRequest("Event is required")
	}

	event := domain.OutboundEvent{Event: body.Event, Data: body.Data}

	var result domain.DispatchResult
	switch {
	case len(body.UserIDs) > 0:
		result = h.dispatcher.SendToUsers(c.Context(), body.UserIDs, event)
	case body.CompanyID != nil:
		result = h.dispatcher.SendToCompany(c.Context(), *body.CompanyID, event)
	default:
		result = h.dispatcher.Broadcast(c.Context(), event)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *RealtimeHandler) Status(c *fiber.Ctx) error {
	hub := h.dispatcher.Hub()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"sessions":        hub.SessionCount(),
		"connected_users": len(hub.ConnectedUserIDs()),
	})
}
