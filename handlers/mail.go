package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"studio-admin/apperrors"
	"studio-admin/mailer"
	"studio-admin/models"
)

type SendEmailRequest struct {
	To          mailer.AddressList     `json:"to"`
	CC          mailer.AddressList     `json:"cc"`
	BCC         mailer.AddressList     `json:"bcc"`
	Subject     string                 `json:"subject"`
	HTMLBody    string                 `json:"html_body"`
	Attachments []models.AttachmentRef `json:"attachments"`
}

// SendEmailHandler handles POST /api/mail/send. A transport failure still
// produced a delivery log, so its id is included in the error response.
func SendEmailHandler(disp *mailer.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SendEmailRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		if strings.TrimSpace(req.Subject) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "subject is required"})
		}
		if strings.TrimSpace(req.HTMLBody) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "html_body is required"})
		}

		to, err := mailer.ValidateAddresses(req.To)
		if err != nil {
			return errorResponse(c, err)
		}
		if len(to) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "at least one recipient is required"})
		}
		cc, err := mailer.ValidateAddresses(req.CC)
		if err != nil {
			return errorResponse(c, err)
		}
		bcc, err := mailer.ValidateAddresses(req.BCC)
		if err != nil {
			return errorResponse(c, err)
		}
		if err := validateAttachments(req.Attachments); err != nil {
			return errorResponse(c, err)
		}

		logID, err := disp.Send(context.Background(), &mailer.SendRequest{
			To:          to,
			CC:          cc,
			BCC:         bcc,
			Subject:     req.Subject,
			HTMLBody:    req.HTMLBody,
			Attachments: req.Attachments,
		})
		if err != nil {
			resp := fiber.Map{"error": "Failed to send email"}
			if logID != "" {
				resp["log_id"] = logID
			}
			return c.Status(apperrors.StatusCode(err)).JSON(resp)
		}

		return c.JSON(fiber.Map{
			"message": "Email sent successfully",
			"log_id":  logID,
		})
	}
}

type SendTemplateRequest struct {
	TemplateID      string                 `json:"template_id"`
	To              mailer.AddressList     `json:"to"`
	SubjectOverride string                 `json:"subject_override"`
	BodyOverride    string                 `json:"body_override"`
	Attachments     []models.AttachmentRef `json:"attachments"`
}

// SendTemplateHandler handles POST /api/mail/send-template.
func SendTemplateHandler(disp *mailer.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SendTemplateRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		if strings.TrimSpace(req.TemplateID) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "template_id is required"})
		}
		to, err := mailer.ValidateAddresses(req.To)
		if err != nil {
			return errorResponse(c, err)
		}
		if len(to) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "at least one recipient is required"})
		}
		if err := validateAttachments(req.Attachments); err != nil {
			return errorResponse(c, err)
		}

		logID, err := disp.SendFromTemplate(context.Background(), req.TemplateID, to, req.SubjectOverride, req.BodyOverride, req.Attachments)
		if err != nil {
			if apperrors.Is(err, apperrors.KindTransport) {
				resp := fiber.Map{"error": "Failed to send email"}
				if logID != "" {
					resp["log_id"] = logID
				}
				return c.Status(apperrors.StatusCode(err)).JSON(resp)
			}
			return errorResponse(c, err)
		}

		return c.JSON(fiber.Map{
			"message": "Email sent successfully",
			"log_id":  logID,
		})
	}
}

// RetryFailedHandler handles POST /api/mail/retry-failed. The call itself
// always answers 200; per-item outcomes are in the result list.
func RetryFailedHandler(disp *mailer.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := disp.RetryFailed(context.Background())
		if err != nil {
			return errorResponse(c, err)
		}

		return c.JSON(fiber.Map{
			"success":       summary.Success(),
			"retried_count": summary.RetriedCount,
			"succeeded":     summary.Succeeded,
			"failed":        summary.Failed,
			"results":       summary.Results,
		})
	}
}

func validateAttachments(refs []models.AttachmentRef) error {
	for _, ref := range refs {
		if strings.TrimSpace(ref.Filename) == "" {
			return apperrors.Validation("attachment filename is required")
		}
		switch ref.Kind {
		case models.AttachmentLocal:
			if ref.Path == "" {
				return apperrors.Validation("attachment %s needs a path", ref.Filename)
			}
		case models.AttachmentRemote:
			if ref.URL == "" {
				return apperrors.Validation("attachment %s needs a url", ref.Filename)
			}
		default:
			return apperrors.Validation("attachment %s has unknown kind %q", ref.Filename, ref.Kind)
		}
	}
	return nil
}
