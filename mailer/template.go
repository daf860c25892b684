package mailer

import (
	"context"

	"studio-admin/models"
)

// SendFromTemplate sends a stored template to the given recipients. A
// non-empty override replaces the template subject or body; request-supplied
// attachments are appended after the template's own, which are never dropped.
func (d *Dispatcher) SendFromTemplate(ctx context.Context, templateID string, to []string, subjectOverride, bodyOverride string, extra []models.AttachmentRef) (string, error) {
	tmpl, err := d.Templates.GetByID(ctx, templateID)
	if err != nil {
		return "", err
	}

	subject := tmpl.Subject
	if subjectOverride != "" {
		subject = subjectOverride
	}
	body := tmpl.HTMLBody
	if bodyOverride != "" {
		body = bodyOverride
	}

	attachments := make([]models.AttachmentRef, 0, len(tmpl.Attachments)+len(extra))
	attachments = append(attachments, tmpl.Attachments...)
	attachments = append(attachments, extra...)

	return d.Send(ctx, &SendRequest{
		To:          to,
		Subject:     subject,
		HTMLBody:    body,
		Attachments: attachments,
	})
}
