package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"studio-admin/config"
	"studio-admin/db"
	"studio-admin/mailer"
	"studio-admin/models"
	"studio-admin/utils"
)

type CreateSubmissionRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// CreateSubmissionHandler handles POST /api/submissions (public). The client
// IP is enriched with best-effort geolocation, and a thank-you email is fired
// through the dispatcher; neither blocks the submission itself.
func CreateSubmissionHandler(cfg *config.Config, disp *mailer.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateSubmissionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		if strings.TrimSpace(req.Name) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
		}
		if strings.TrimSpace(req.Message) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
		}
		email := strings.TrimSpace(req.Email)
		if err := mailer.ValidateAddress(email); err != nil {
			return errorResponse(c, err)
		}

		ip := c.IP()

		geoCtx, cancelGeo := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelGeo()
		geo := utils.LookupGeo(geoCtx, cfg.GeoAPIBaseURL, ip)

		var geoJSON []byte
		if geo != nil {
			geoJSON, _ = json.Marshal(geo)
		}

		sub := models.Submission{
			ID:      uuid.NewString(),
			Name:    strings.TrimSpace(req.Name),
			Email:   email,
			Phone:   nilIfEmpty(req.Phone),
			Subject: nilIfEmpty(req.Subject),
			Message: req.Message,
		}
		if ip != "" {
			sub.IPAddress = &ip
		}
		sub.Geolocation = geo

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		query := `
			INSERT INTO submissions (id, name, email, phone, subject, message, ip_address, geolocation)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at
		`
		err := db.Pool.QueryRow(ctx, query,
			sub.ID, sub.Name, sub.Email, sub.Phone, sub.Subject, sub.Message, sub.IPAddress, geoJSON,
		).Scan(&sub.CreatedAt)
		if err != nil {
			log.Printf("Failed to save submission: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save submission"})
		}

		// The submission is already saved; the thank-you email is best-effort.
		if logID, err := disp.Send(context.Background(), &mailer.SendRequest{
			To:                  []string{email},
			Subject:             "Thanks for reaching out",
			HTMLBody:            thankYouBody(sub.Name),
			RelatedSubmissionID: &sub.ID,
		}); err != nil {
			log.Printf("Thank-you email failed for submission %s (log %s): %v", sub.ID, logID, err)
		}

		return c.Status(fiber.StatusCreated).JSON(sub)
	}
}

// ListSubmissionsHandler handles GET /api/submissions.
func ListSubmissionsHandler(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		SELECT id, name, email, phone, subject, message, ip_address, geolocation, created_at
		FROM submissions
		ORDER BY created_at DESC
		LIMIT 1000
	`
	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch submissions"})
	}
	defer rows.Close()

	submissions := []models.Submission{}
	for rows.Next() {
		var (
			sub     models.Submission
			geoJSON []byte
		)
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Phone, &sub.Subject, &sub.Message, &sub.IPAddress, &geoJSON, &sub.CreatedAt); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan submission"})
		}
		if len(geoJSON) > 0 {
			var geo models.Geolocation
			if err := json.Unmarshal(geoJSON, &geo); err == nil {
				sub.Geolocation = &geo
			}
		}
		submissions = append(submissions, sub)
	}

	return c.JSON(fiber.Map{
		"count":       len(submissions),
		"submissions": submissions,
	})
}

// GetSubmissionHandler handles GET /api/submissions/:id.
func GetSubmissionHandler(c *fiber.Ctx) error {
	id := c.Params("id")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		sub     models.Submission
		geoJSON []byte
	)
	query := `
		SELECT id, name, email, phone, subject, message, ip_address, geolocation, created_at
		FROM submissions
		WHERE id = $1
	`
	err := db.Pool.QueryRow(ctx, query, id).Scan(
		&sub.ID, &sub.Name, &sub.Email, &sub.Phone, &sub.Subject, &sub.Message,
		&sub.IPAddress, &geoJSON, &sub.CreatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Submission not found"})
	}
	if len(geoJSON) > 0 {
		var geo models.Geolocation
		if err := json.Unmarshal(geoJSON, &geo); err == nil {
			sub.Geolocation = &geo
		}
	}

	return c.JSON(sub)
}

// DeleteSubmissionHandler handles DELETE /api/submissions/:id.
func DeleteSubmissionHandler(c *fiber.Ctx) error {
	id := c.Params("id")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tag, err := db.Pool.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete submission"})
	}
	if tag.RowsAffected() == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Submission not found"})
	}

	return c.JSON(fiber.Map{"message": "Submission deleted"})
}

func nilIfEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func thankYouBody(name string) string {
	return `<p>Hi ` + name + `,</p><p>Thanks for reaching out. We received your message and will get back to you shortly.</p>`
}
