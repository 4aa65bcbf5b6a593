package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"notify-hub/internal/domain"
	"notify-hub/internal/middleware"
	"notify-hub/internal/service/device"
)

type DeviceHandler struct {
	deviceService device.Service
}

func NewDeviceHandler(deviceService device.Service) *DeviceHandler {
	return &DeviceHandler{deviceService: deviceService}
}

func (h *DeviceHandler) Register(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	var input domain.RegisterDeviceInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	token, err := h.deviceService.Register(c.Context(), userID, middleware.GetCurrentCompanyID(c), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(token)
}

func (h *DeviceHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	tokens, err := h.deviceService.List(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"devices": tokens,
	})
}

func (h *DeviceHandler) Deactivate(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var body struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	if body.Token == "" {
		return middleware.BadRequest("Token is required")
	}

	if err := h.deviceService.Deactivate(c.Context(), userID, body.Token); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *DeviceHandler) Remove(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	deviceID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid device ID")
	}

	if err := h.deviceService.Remove(c.Context(), deviceID, userID); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}
