package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"studio-admin/apperrors"
	"studio-admin/config"
	"studio-admin/db"
	"studio-admin/mailer"
	"studio-admin/utils"
)

type RequestOTPRequest struct {
	Email string `json:"email"`
}

// RequestOTPHandler handles POST /api/auth/request-otp. Only addresses on the
// configured allow-list may request a code; a configured alias also delivers
// the code to its forwards. The OTP mail goes through the dispatcher, so it
// shows up in the delivery log like any other send.
func RequestOTPHandler(cfg *config.Config, disp *mailer.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RequestOTPRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		email := strings.TrimSpace(req.Email)
		if err := mailer.ValidateAddress(email); err != nil {
			return errorResponse(c, err)
		}
		if !cfg.IsAdminEmail(email) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Email is not authorized"})
		}

		code := utils.GenerateOTP()
		expiresAt := time.Now().UTC().Add(cfg.OTPTTL)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		query := `INSERT INTO admin_otps (email, code, expires_at) VALUES ($1, $2, $3)`
		if _, err := db.Pool.Exec(ctx, query, strings.ToLower(email), code, expiresAt); err != nil {
			log.Printf("Failed to store OTP: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
		}

		recipients := append([]string{email}, cfg.ForwardsFor(email)...)
		logID, err := disp.Send(context.Background(), &mailer.SendRequest{
			To:       recipients,
			Subject:  "Your admin login code",
			HTMLBody: otpEmailBody(code, cfg.OTPTTL),
		})
		if err != nil {
			log.Printf("Failed to send OTP email (log %s): %v", logID, err)
			resp := fiber.Map{"error": "Failed to send OTP email"}
			if logID != "" {
				resp["log_id"] = logID
			}
			return c.Status(apperrors.StatusCode(err)).JSON(resp)
		}

		return c.JSON(fiber.Map{"message": "OTP sent", "log_id": logID})
	}
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyOTPHandler handles POST /api/auth/verify-otp. Codes are single-use
// and expire; success issues a session token.
func VerifyOTPHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req VerifyOTPRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		code := strings.TrimSpace(req.Code)
		if email == "" || code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and code are required"})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var otpID int
		query := `
			SELECT id FROM admin_otps
			WHERE email = $1 AND code = $2 AND consumed = false AND expires_at > NOW()
			ORDER BY id DESC
			LIMIT 1
		`
		if err := db.Pool.QueryRow(ctx, query, email, code).Scan(&otpID); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired code"})
		}

		_, _ = db.Pool.Exec(context.Background(), `UPDATE admin_otps SET consumed = true WHERE id = $1`, otpID)

		token := utils.GenerateSessionToken()
		expiresAt := time.Now().UTC().Add(cfg.SessionTTL)
		insert := `INSERT INTO admin_sessions (token, email, expires_at) VALUES ($1, $2, $3)`
		if _, err := db.Pool.Exec(ctx, insert, token, email, expiresAt); err != nil {
			log.Printf("Failed to create session: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
		}

		return c.JSON(fiber.Map{"token": token, "expires_at": expiresAt})
	}
}

// LogoutHandler handles POST /api/auth/logout.
func LogoutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, _ := c.Locals("session_token").(string)
		if token != "" {
			_, _ = db.Pool.Exec(context.Background(), `DELETE FROM admin_sessions WHERE token = $1`, token)
		}
		return c.JSON(fiber.Map{"message": "Logged out"})
	}
}

func otpEmailBody(code string, ttl time.Duration) string {
	return fmt.Sprintf(
		`<p>Your one-time login code is:</p><h2>%s</h2><p>It expires in %d minutes.</p>`,
		code, int(ttl.Minutes()),
	)
}
