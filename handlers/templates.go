package handlers

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"studio-admin/apperrors"
	"studio-admin/models"
	"studio-admin/storage"
	"studio-admin/store"
)

type TemplateRequest struct {
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

// CreateTemplateHandler handles POST /api/templates. Duplicate names answer
// with 409.
func CreateTemplateHandler(templates *store.Templates) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req TemplateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := validateTemplateRequest(&req); err != nil {
			return errorResponse(c, err)
		}

		tmpl := &models.EmailTemplate{
			Name:        strings.TrimSpace(req.Name),
			Subject:     req.Subject,
			HTMLBody:    req.HTMLBody,
			Attachments: []models.AttachmentRef{},
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := templates.Create(ctx, tmpl); err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tmpl)
	}
}

// ListTemplatesHandler handles GET /api/templates.
func ListTemplatesHandler(templates *store.Templates) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		list, err := templates.List(ctx)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(fiber.Map{
			"count":     len(list),
			"templates": list,
		})
	}
}

// GetTemplateHandler handles GET /api/templates/:id.
func GetTemplateHandler(templates *store.Templates) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		tmpl, err := templates.GetByID(ctx, c.Params("id"))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(tmpl)
	}
}

// UpdateTemplateHandler handles PUT /api/templates/:id. Renaming onto an
// existing name answers with 409. Stored attachments are kept as they are;
// they are managed through the attachment endpoint.
func UpdateTemplateHandler(templates *store.Templates) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req TemplateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if err := validateTemplateRequest(&req); err != nil {
			return errorResponse(c, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		tmpl, err := templates.GetByID(ctx, c.Params("id"))
		if err != nil {
			return errorResponse(c, err)
		}

		tmpl.Name = strings.TrimSpace(req.Name)
		tmpl.Subject = req.Subject
		tmpl.HTMLBody = req.HTMLBody

		if err := templates.Update(ctx, tmpl); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(tmpl)
	}
}

// DeleteTemplateHandler handles DELETE /api/templates/:id. Remote attachment
// objects are destroyed best-effort; a cleanup failure is logged and does not
// fail the deletion.
func DeleteTemplateHandler(templates *store.Templates, objects *storage.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		tmpl, err := templates.GetByID(ctx, c.Params("id"))
		if err != nil {
			return errorResponse(c, err)
		}

		for _, ref := range tmpl.Attachments {
			if ref.Kind != models.AttachmentRemote || ref.RemoteID == "" {
				continue
			}
			if objects == nil {
				log.Printf("Object storage not configured, skipping cleanup of %s", ref.RemoteID)
				continue
			}
			if err := objects.Destroy(ctx, ref.RemoteID, "raw"); err != nil {
				log.Printf("Failed to clean up attachment %s of template %s: %v", ref.RemoteID, tmpl.ID, err)
			}
		}

		if err := templates.Delete(ctx, tmpl.ID); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(fiber.Map{"message": "Template deleted"})
	}
}

// UploadTemplateAttachmentHandler handles POST /api/templates/:id/attachments.
// The file is uploaded to object storage and appended to the template's
// attachment list.
func UploadTemplateAttachmentHandler(templates *store.Templates, objects *storage.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if objects == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Object storage is not configured"})
		}

		file, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tmpl, err := templates.GetByID(ctx, c.Params("id"))
		if err != nil {
			return errorResponse(c, err)
		}

		localPath := filepath.Join(os.TempDir(), uuid.NewString()+"-"+filepath.Base(file.Filename))
		if err := c.SaveFile(file, localPath); err != nil {
			log.Printf("Failed to save upload: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save upload"})
		}
		defer os.Remove(localPath)

		result, err := objects.Upload(ctx, localPath, "templates", "raw")
		if err != nil {
			log.Printf("Failed to upload attachment: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upload attachment"})
		}

		tmpl.Attachments = append(tmpl.Attachments, models.AttachmentRef{
			Filename:    file.Filename,
			ContentType: file.Header.Get("Content-Type"),
			Size:        file.Size,
			Kind:        models.AttachmentRemote,
			URL:         result.SecureURL,
			RemoteID:    result.PublicID,
		})

		if err := templates.Update(ctx, tmpl); err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tmpl)
	}
}

func validateTemplateRequest(req *TemplateRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.Validation("name is required")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return apperrors.Validation("subject is required")
	}
	if strings.TrimSpace(req.HTMLBody) == "" {
		return apperrors.Validation("html_body is required")
	}
	return nil
}
