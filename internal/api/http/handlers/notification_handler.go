package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/academia-portal/internal/cache"
)

// Inbox serves the signed-in user's notifications.
type Inbox interface {
	List(ctx context.Context) ([]cache.Notification, error)
	Get(ctx context.Context, id string) (cache.Notification, error)
}

type NotificationHandler struct {
	inbox Inbox
}

func NewNotificationHandler(inbox Inbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

// List handles GET /api/notifications.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	items, err := h.inbox.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /api/notifications/:id.
func (h *NotificationHandler) Get(c *fiber.Ctx) error {
	item, err := h.inbox.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": item})
}
