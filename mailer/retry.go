package mailer

import (
	"context"

	"studio-admin/apperrors"
	"studio-admin/models"
)

// RetryResult records the outcome of re-dispatching one failed delivery log.
type RetryResult struct {
	OriginalID string  `json:"original_id"`
	Status     string  `json:"status"`
	NewID      *string `json:"new_id"`
	Message    string  `json:"message"`
}

// RetrySummary aggregates one RetryFailed pass.
type RetrySummary struct {
	RetriedCount int           `json:"retried_count"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Results      []RetryResult `json:"results"`
}

// Success reports whether every retried item went through.
func (s *RetrySummary) Success() bool { return s.Failed == 0 }

// RetryFailed re-dispatches every delivery log currently in the failed state.
// Each retry produces a brand-new log record; the original is never mutated
// or deleted. Items are processed sequentially and a failure on one item does
// not abort the rest.
func (d *Dispatcher) RetryFailed(ctx context.Context) (*RetrySummary, error) {
	failed, err := d.Logs.ListFailed(ctx)
	if err != nil {
		return nil, apperrors.Persistence("failed to list failed delivery logs", err)
	}

	summary := &RetrySummary{Results: make([]RetryResult, 0, len(failed))}
	for i := range failed {
		entry := &failed[i]
		newID, sendErr := d.Send(ctx, rebuildRequest(entry))

		result := RetryResult{OriginalID: entry.ID}
		if newID != "" {
			id := newID
			result.NewID = &id
		}
		if sendErr != nil {
			result.Status = models.StatusFailed
			result.Message = sendErr.Error()
			summary.Failed++
		} else {
			result.Status = models.StatusSuccess
			result.Message = "resent"
			summary.Succeeded++
		}
		summary.Results = append(summary.Results, result)
	}

	summary.RetriedCount = len(summary.Results)
	return summary, nil
}

// rebuildRequest reconstructs a send request from a failed record. Recipient
// statuses are discarded; attachments keep their remote source when one
// exists, so a retry does not depend on files still being on local disk.
func rebuildRequest(entry *models.DeliveryLog) *SendRequest {
	attachments := make([]models.AttachmentRef, 0, len(entry.Attachments))
	for _, ref := range entry.Attachments {
		if ref.URL != "" {
			ref.Kind = models.AttachmentRemote
			ref.Path = ""
		}
		attachments = append(attachments, ref)
	}

	return &SendRequest{
		To:                  recipientAddresses(entry.To),
		CC:                  recipientAddresses(entry.CC),
		BCC:                 recipientAddresses(entry.BCC),
		Subject:             entry.Subject,
		HTMLBody:            entry.HTMLBody,
		Attachments:         attachments,
		RelatedSubmissionID: entry.RelatedSubmissionID,
	}
}
