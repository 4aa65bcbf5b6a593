package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"notify-hub/internal/domain"
	"notify-hub/internal/middleware"
	"notify-hub/internal/service/preference"
)

type PreferenceHandler struct {
	prefService preference.Service
}

func NewPreferenceHandler(prefService preference.Service) *PreferenceHandler {
	return &PreferenceHandler{prefService: prefService}
}

func (h *PreferenceHandler) Get(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	prefs, err := h.prefService.Get(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(prefs)
}

func (h *PreferenceHandler) Update(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	var input domain.UpdatePreferencesInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	prefs, err := h.prefService.Update(c.Context(), userID, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(prefs)
}

func (h *PreferenceHandler) Reset(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	prefs, err := h.prefService.Reset(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(prefs)
}

func (h *PreferenceHandler) Export(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	snapshot, err := h.prefService.Export(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(snapshot)
}

func (h *PreferenceHandler) Import(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	var snapshot domain.PreferencesSnapshot
	if err := c.BodyParser(&snapshot); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	prefs, err := h.prefService.Import(c.Context(), userID, snapshot)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(prefs)
}

func (h *PreferenceHandler) Mute(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	var body struct {
		Until *time.Time `json:"until,omitempty"`
	}
	if err := c.BodyParser(&body); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	if err := h.prefService.Mute(c.Context(), userID, body.Until); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *PreferenceHandler) Unmute(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	if err := h.prefService.Unmute(c.Context(), userID); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}
