package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"studio-admin/apperrors"
)

// errorResponse maps a typed error to its HTTP status. Internal errors are
// answered with a generic message so store and transport details never leak.
func errorResponse(c *fiber.Ctx, err error) error {
	status := apperrors.StatusCode(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("Internal error on %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
