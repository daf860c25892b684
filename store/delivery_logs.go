// Package store implements Postgres persistence for delivery logs and email
// templates. Recipient lists and attachment refs are stored as jsonb. pgx
// no-rows and unique-violation conditions are mapped to apperrors kinds here.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio-admin/apperrors"
	"studio-admin/models"
)

type DeliveryLogs struct {
	pool *pgxpool.Pool
}

func NewDeliveryLogs(pool *pgxpool.Pool) *DeliveryLogs {
	return &DeliveryLogs{pool: pool}
}

func (s *DeliveryLogs) Create(ctx context.Context, entry *models.DeliveryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	to, cc, bcc, attachments, err := encodeLogFields(entry)
	if err != nil {
		return apperrors.Persistence("failed to encode delivery log", err)
	}

	query := `
		INSERT INTO delivery_logs
			(id, sender, to_recipients, cc_recipients, bcc_recipients, subject, html_body,
			 attachments, overall_status, error_detail, message_id, related_submission_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`
	err = s.pool.QueryRow(ctx, query,
		entry.ID, entry.Sender, to, cc, bcc, entry.Subject, entry.HTMLBody,
		attachments, entry.OverallStatus, entry.ErrorDetail, entry.MessageID,
		entry.RelatedSubmissionID, entry.SentAt,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return apperrors.Persistence("failed to insert delivery log", err)
	}
	return nil
}

func (s *DeliveryLogs) Update(ctx context.Context, entry *models.DeliveryLog) error {
	to, cc, bcc, attachments, err := encodeLogFields(entry)
	if err != nil {
		return apperrors.Persistence("failed to encode delivery log", err)
	}

	query := `
		UPDATE delivery_logs
		SET to_recipients = $1, cc_recipients = $2, bcc_recipients = $3,
		    overall_status = $4, error_detail = $5, message_id = $6,
		    attachments = $7, sent_at = $8, updated_at = NOW()
		WHERE id = $9
	`
	tag, err := s.pool.Exec(ctx, query,
		to, cc, bcc, entry.OverallStatus, entry.ErrorDetail, entry.MessageID,
		attachments, entry.SentAt, entry.ID,
	)
	if err != nil {
		return apperrors.Persistence("failed to update delivery log", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("delivery log %s not found", entry.ID)
	}
	return nil
}

func (s *DeliveryLogs) GetByID(ctx context.Context, id string) (*models.DeliveryLog, error) {
	query := `
		SELECT id, sender, to_recipients, cc_recipients, bcc_recipients, subject, html_body,
		       attachments, overall_status, error_detail, message_id, related_submission_id,
		       sent_at, created_at, updated_at
		FROM delivery_logs
		WHERE id = $1
	`
	entry, err := scanLog(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("delivery log %s not found", id)
		}
		return nil, apperrors.Persistence("failed to fetch delivery log", err)
	}
	return entry, nil
}

// List returns delivery logs, newest first, optionally filtered by overall
// status.
func (s *DeliveryLogs) List(ctx context.Context, status string) ([]models.DeliveryLog, error) {
	query := `
		SELECT id, sender, to_recipients, cc_recipients, bcc_recipients, subject, html_body,
		       attachments, overall_status, error_detail, message_id, related_submission_id,
		       sent_at, created_at, updated_at
		FROM delivery_logs
	`
	args := []any{}
	if status != "" {
		query += ` WHERE overall_status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT 1000`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Persistence("failed to list delivery logs", err)
	}
	defer rows.Close()

	logs := []models.DeliveryLog{}
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, apperrors.Persistence("failed to scan delivery log", err)
		}
		logs = append(logs, *entry)
	}
	return logs, rows.Err()
}

// ListFailed returns failed logs oldest first, the order retries run in.
func (s *DeliveryLogs) ListFailed(ctx context.Context) ([]models.DeliveryLog, error) {
	query := `
		SELECT id, sender, to_recipients, cc_recipients, bcc_recipients, subject, html_body,
		       attachments, overall_status, error_detail, message_id, related_submission_id,
		       sent_at, created_at, updated_at
		FROM delivery_logs
		WHERE overall_status = $1
		ORDER BY created_at ASC
	`
	rows, err := s.pool.Query(ctx, query, models.StatusFailed)
	if err != nil {
		return nil, apperrors.Persistence("failed to list failed delivery logs", err)
	}
	defer rows.Close()

	logs := []models.DeliveryLog{}
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, apperrors.Persistence("failed to scan delivery log", err)
		}
		logs = append(logs, *entry)
	}
	return logs, rows.Err()
}

func (s *DeliveryLogs) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM delivery_logs WHERE id = $1`, id)
	if err != nil {
		return apperrors.Persistence("failed to delete delivery log", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("delivery log %s not found", id)
	}
	return nil
}

func encodeLogFields(entry *models.DeliveryLog) (to, cc, bcc, attachments []byte, err error) {
	if to, err = json.Marshal(orEmptyRecipients(entry.To)); err != nil {
		return
	}
	if cc, err = json.Marshal(orEmptyRecipients(entry.CC)); err != nil {
		return
	}
	if bcc, err = json.Marshal(orEmptyRecipients(entry.BCC)); err != nil {
		return
	}
	attachments, err = json.Marshal(orEmptyAttachments(entry.Attachments))
	return
}

func orEmptyRecipients(recipients []models.Recipient) []models.Recipient {
	if recipients == nil {
		return []models.Recipient{}
	}
	return recipients
}

func orEmptyAttachments(attachments []models.AttachmentRef) []models.AttachmentRef {
	if attachments == nil {
		return []models.AttachmentRef{}
	}
	return attachments
}

func scanLog(row pgx.Row) (*models.DeliveryLog, error) {
	var (
		entry                models.DeliveryLog
		to, cc, bcc, attachs []byte
	)
	err := row.Scan(
		&entry.ID, &entry.Sender, &to, &cc, &bcc, &entry.Subject, &entry.HTMLBody,
		&attachs, &entry.OverallStatus, &entry.ErrorDetail, &entry.MessageID,
		&entry.RelatedSubmissionID, &entry.SentAt, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(to, &entry.To); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cc, &entry.CC); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bcc, &entry.BCC); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attachs, &entry.Attachments); err != nil {
		return nil, err
	}
	return &entry, nil
}
