package models

import "time"

// Delivery status values shared by DeliveryLog and its recipients.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Attachment content source kinds.
const (
	AttachmentLocal  = "local"
	AttachmentRemote = "remote"
)

// Recipient is one address inside a delivery log. It starts pending and is
// resolved to success or failed independently of its siblings.
type Recipient struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// AttachmentRef points at attachment content without owning it. Kind selects
// the source: "local" uses Path, "remote" uses URL and RemoteID.
type AttachmentRef struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Kind        string `json:"kind"`
	Path        string `json:"path,omitempty"`
	URL         string `json:"url,omitempty"`
	RemoteID    string `json:"remote_id,omitempty"`
}

// DeliveryLog is one durable record per send attempt. Retries never reuse a
// record; they create a new one and keep the original as history.
type DeliveryLog struct {
	ID                  string          `json:"id"`
	Sender              string          `json:"sender"`
	To                  []Recipient     `json:"to"`
	CC                  []Recipient     `json:"cc,omitempty"`
	BCC                 []Recipient     `json:"bcc,omitempty"`
	Subject             string          `json:"subject"`
	HTMLBody            string          `json:"html_body"`
	Attachments         []AttachmentRef `json:"attachments,omitempty"`
	OverallStatus       string          `json:"overall_status"`
	ErrorDetail         *string         `json:"error_detail,omitempty"`
	MessageID           *string         `json:"message_id,omitempty"`
	RelatedSubmissionID *string         `json:"related_submission_id,omitempty"`
	SentAt              *time.Time      `json:"sent_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
