package models

import "time"

// EmailTemplate is a reusable (subject, HTML body, attachments) tuple keyed by
// a unique name. Sends consume templates by value and never mutate them.
type EmailTemplate struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Subject     string          `json:"subject"`
	HTMLBody    string          `json:"html_body"`
	Attachments []AttachmentRef `json:"attachments"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
