package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"studio-admin/db"
)

// RequireAdmin validates the session token from the Authorization header
// against the admin_sessions table.
func RequireAdmin(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authorization header required"})
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if token == "" || token == authHeader {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var email string
	query := `SELECT email FROM admin_sessions WHERE token = $1 AND expires_at > NOW()`
	if err := db.Pool.QueryRow(ctx, query, token).Scan(&email); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired session token"})
	}

	c.Locals("admin_email", email)
	c.Locals("session_token", token)

	return c.Next()
}
