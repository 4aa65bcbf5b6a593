package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"notify-hub/internal/domain"
	"notify-hub/internal/middleware"
	"notify-hub/internal/service/notification"
)

type NotificationHandler struct {
	notifService notification.Service
}

func NewNotificationHandler(notifService notification.Service) *NotificationHandler {
	return &NotificationHandler{notifService: notifService}
}

func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var input domain.CreateNotificationInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	result, err := h.notifService.Create(c.Context(), input)
	if err != nil {
		return err
	}

	if result.Denied {
		return c.Status(fiber.StatusOK).JSON(result)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *NotificationHandler) CreateBulk(c *fiber.Ctx) error {
	var body struct {
		Notifications []domain.CreateNotificationInput `json:"notifications"`
	}
	if err := c.BodyParser(&body); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	if len(body.Notifications) == 0 {
		return middleware.BadRequest("No notifications provided")
	}

	result := h.notifService.CreateMany(c.Context(), body.Notifications)
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	filter := parseNotificationFilter(c)
	params := getPaginationParams(c)

	result, err := h.notifService.List(c.Context(), userID, filter, params)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *NotificationHandler) Get(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	notif, err := h.notifService.Get(c.Context(), notifID, userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(notif)
}

func (h *NotificationHandler) Update(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	var patch domain.UpdateNotificationInput
	if err := c.BodyParser(&patch); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	notif, err := h.notifService.Update(c.Context(), notifID, userID, patch)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(notif)
}

func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	count, err := h.notifService.GetUnreadCount(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count": count,
	})
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	updated, err := h.notifService.MarkAsRead(c.Context(), notifID, userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"updated_count": updated,
	})
}

func (h *NotificationHandler) MarkMultipleAsRead(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)

	var body struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := c.BodyParser(&body); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	if len(body.IDs) == 0 {
		return middleware.BadRequest("No notification IDs provided")
	}

	updated, err := h.notifService.MarkMultipleAsRead(c.Context(), body.IDs, userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"updated_count": updated,
	})
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	updated, err := h.notifService.MarkAllAsRead(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"updated_count": updated,
	})
}

func (h *NotificationHandler) Archive(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	if err := h.notifService.Archive(c.Context(), notifID, userID); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *NotificationHandler) Unarchive(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	if err := h.notifService.Unarchive(c.Context(), notifID, userID); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	if err := h.notifService.SoftDelete(c.Context(), notifID, userID); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *NotificationHandler) RecordClick(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	if err := h.notifService.RecordClick(c.Context(), notifID, userID); err != nil {
		return err
	}
	return c.Status(fiber.StatusNoContent).SendString("")
}

func (h *NotificationHandler) GetStats(c *fiber.Ctx) error {
	userID := middleware.GetCurrentUserID(c)
	if userID == uuid.Nil {
		return middleware.Unauthorized("User not found")
	}

	stats, err := h.notifService.GetUserStats(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

// Cleanup hard-deletes notifications past their expiry. Meant to be
// hit by a cron-style caller.
func (h *NotificationHandler) Cleanup(c *fiber.Ctx) error {
	deleted, err := h.notifService.CleanupExpired(c.Context())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"deleted_count": deleted,
	})
}

func parseNotificationFilter(c *fiber.Ctx) domain.NotificationFilter {
	var filter domain.NotificationFilter

	if v := c.Query("status"); v != "" {
		status := domain.NotificationStatus(v)
		filter.Status = &status
	}
	if v := c.Query("type"); v != "" {
		typ := domain.NotificationType(v)
		filter.Type = &typ
	}
	if v := c.Query("priority"); v != "" {
		priority := domain.Priority(v)
		filter.Priority = &priority
	}
	filter.Category = c.Query("category")
	filter.Search = c.Query("search")

	if v := c.Query("is_read"); v != "" {
		isRead := v == "true"
		filter.IsRead = &isRead
	}
	if v := c.Query("is_archived"); v != "" {
		isArchived := v == "true"
		filter.IsArchived = &isArchived
	}
	if v := c.Query("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = &t
		}
	}
	if v := c.Query("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = &t
		}
	}

	filter.SortBy = c.Query("sort_by")
	filter.SortDesc = c.Query("sort_desc", "true") == "true"

	return filter
}

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.DefaultPagination()

	if page := c.QueryInt("page", 1); page > 0 {
		params.Page = page
	}
	if pageSize := c.QueryInt("page_size", 20); pageSize > 0 {
		params.PageSize = pageSize
	}

	params.Validate()
	return params
}
