package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/academia-portal/internal/observability"
)

// ChannelStatus reports the notification subscription, if any.
type ChannelStatus interface {
	Active() (string, bool)
}

// DebugHandler exposes in-process counters.
type DebugHandler struct {
	metrics *observability.Metrics
	channel ChannelStatus
}

// NewDebugHandler constructs handler. channel may be nil when realtime is off.
func NewDebugHandler(metrics *observability.Metrics, channel ChannelStatus) *DebugHandler {
	return &DebugHandler{metrics: metrics, channel: channel}
}

// Metrics handles GET /debug/metrics.
func (h *DebugHandler) Metrics(c *fiber.Ctx) error {
	body := fiber.Map{"counters": h.metrics.Snapshot()}
	if h.channel != nil {
		topic, active := h.channel.Active()
		body["channel"] = fiber.Map{"active": active, "destination": topic}
	}
	return c.JSON(body)
}
