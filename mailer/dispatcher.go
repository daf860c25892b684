// Package mailer implements the send pipeline: recipient normalization, the
// durable per-attempt delivery log, outcome reconciliation and retry of
// failed sends.
package mailer

import (
	"context"
	"log"
	"strings"
	"time"

	"studio-admin/apperrors"
	"studio-admin/models"
)

// LogStore persists delivery log records. Implemented by store.DeliveryLogs.
type LogStore interface {
	Create(ctx context.Context, entry *models.DeliveryLog) error
	Update(ctx context.Context, entry *models.DeliveryLog) error
	ListFailed(ctx context.Context) ([]models.DeliveryLog, error)
}

// TemplateSource resolves stored email templates. Implemented by store.Templates.
type TemplateSource interface {
	GetByID(ctx context.Context, id string) (*models.EmailTemplate, error)
}

const updateAttempts = 3

// Dispatcher runs one delivery attempt end to end: normalize recipients,
// persist a pending log record, invoke the transport, reconcile per-recipient
// outcomes and persist the terminal record.
type Dispatcher struct {
	Logs      LogStore
	Templates TemplateSource
	Transport Transport
	Sender    string
	Timeout   time.Duration
}

// SendRequest carries one outbound email. Human-supplied addresses are
// expected to be validated by the caller before they get here.
type SendRequest struct {
	To                  []string
	CC                  []string
	BCC                 []string
	Subject             string
	HTMLBody            string
	Attachments         []models.AttachmentRef
	RelatedSubmissionID *string
}

// Send returns the delivery log id on both transport success and transport
// failure; a transport failure is recorded and then re-surfaced as a
// transport error. Only a failure to persist the initial pending record
// returns an empty id, and in that case the transport is never invoked.
func (d *Dispatcher) Send(ctx context.Context, req *SendRequest) (string, error) {
	entry := &models.DeliveryLog{
		Sender:              d.Sender,
		To:                  pendingRecipients(Normalize(req.To)),
		CC:                  pendingRecipients(Normalize(req.CC)),
		BCC:                 pendingRecipients(Normalize(req.BCC)),
		Subject:             req.Subject,
		HTMLBody:            req.HTMLBody,
		Attachments:         req.Attachments,
		OverallStatus:       models.StatusPending,
		RelatedSubmissionID: req.RelatedSubmissionID,
	}

	// The pending record must exist before the transport is touched, so that
	// a log row is a reliable sign an attempt was made.
	if err := d.Logs.Create(ctx, entry); err != nil {
		return "", apperrors.Persistence("failed to create delivery log", err)
	}

	msg := &Message{
		From:        d.Sender,
		To:          recipientAddresses(entry.To),
		CC:          recipientAddresses(entry.CC),
		BCC:         recipientAddresses(entry.BCC),
		Subject:     req.Subject,
		HTMLBody:    req.HTMLBody,
		Attachments: req.Attachments,
	}

	sendCtx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	result, err := d.Transport.SendMail(sendCtx, msg)
	now := time.Now().UTC()
	entry.SentAt = &now

	if err != nil {
		detail := err.Error()
		entry.OverallStatus = models.StatusFailed
		entry.ErrorDetail = &detail
		failPending(entry.To, detail)
		failPending(entry.CC, detail)
		failPending(entry.BCC, detail)
		d.persistOutcome(ctx, entry)
		return entry.ID, apperrors.Transport("email send failed", err)
	}

	entry.OverallStatus = models.StatusSuccess
	if result.MessageID != "" {
		entry.MessageID = &result.MessageID
	}
	reconcile(entry.To, result)
	reconcile(entry.CC, result)
	reconcile(entry.BCC, result)
	d.persistOutcome(ctx, entry)
	return entry.ID, nil
}

// persistOutcome writes the terminal record. The transport outcome is already
// decided at this point, so a write failure is retried a few times and then
// logged instead of being surfaced to the caller.
func (d *Dispatcher) persistOutcome(ctx context.Context, entry *models.DeliveryLog) {
	var err error
	for attempt := 1; attempt <= updateAttempts; attempt++ {
		if err = d.Logs.Update(ctx, entry); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	log.Printf("Failed to persist delivery log %s after %d attempts: %v", entry.ID, updateAttempts, err)
}

func pendingRecipients(addresses []string) []models.Recipient {
	recipients := make([]models.Recipient, len(addresses))
	for i, addr := range addresses {
		recipients[i] = models.Recipient{Email: addr, Status: models.StatusPending}
	}
	return recipients
}

func recipientAddresses(recipients []models.Recipient) []string {
	addresses := make([]string, len(recipients))
	for i, r := range recipients {
		addresses[i] = r.Email
	}
	return addresses
}

// reconcile resolves each pending recipient against the transport report.
// Explicitly rejected addresses fail; everything else succeeds, including
// addresses the transport did not mention, since SMTP-style transports often
// report rejections only.
func reconcile(recipients []models.Recipient, result *Result) {
	rejected := addressSet(result.Rejected)
	for i := range recipients {
		if recipients[i].Status != models.StatusPending {
			continue
		}
		if _, ok := rejected[strings.ToLower(recipients[i].Email)]; ok {
			recipients[i].Status = models.StatusFailed
			recipients[i].Error = "rejected by mail server"
		} else {
			recipients[i].Status = models.StatusSuccess
		}
	}
}

func failPending(recipients []models.Recipient, detail string) {
	for i := range recipients {
		if recipients[i].Status == models.StatusPending {
			recipients[i].Status = models.StatusFailed
			recipients[i].Error = detail
		}
	}
}

func addressSet(addresses []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		set[strings.ToLower(addr)] = struct{}{}
	}
	return set
}
