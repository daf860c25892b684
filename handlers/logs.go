package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"studio-admin/store"
)

// ListDeliveryLogsHandler handles GET /api/mail/logs?status=pending|success|failed.
func ListDeliveryLogsHandler(logs *store.DeliveryLogs) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := c.Query("status")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		list, err := logs.List(ctx, status)
		if err != nil {
			return errorResponse(c, err)
		}

		return c.JSON(fiber.Map{
			"count": len(list),
			"logs":  list,
		})
	}
}

// GetDeliveryLogHandler handles GET /api/mail/logs/:id.
func GetDeliveryLogHandler(logs *store.DeliveryLogs) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		entry, err := logs.GetByID(ctx, c.Params("id"))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(entry)
	}
}

// DeleteDeliveryLogHandler handles DELETE /api/mail/logs/:id. Logs are never
// deleted automatically; this is the explicit admin path.
func DeleteDeliveryLogHandler(logs *store.DeliveryLogs) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := logs.Delete(ctx, c.Params("id")); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(fiber.Map{"message": "Delivery log deleted"})
	}
}
