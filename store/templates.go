package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio-admin/apperrors"
	"studio-admin/models"
)

const uniqueViolation = "23505"

type Templates struct {
	pool *pgxpool.Pool
}

func NewTemplates(pool *pgxpool.Pool) *Templates {
	return &Templates{pool: pool}
}

func (s *Templates) Create(ctx context.Context, tmpl *models.EmailTemplate) error {
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}

	attachments, err := json.Marshal(orEmptyAttachments(tmpl.Attachments))
	if err != nil {
		return apperrors.Persistence("failed to encode template", err)
	}

	query := `
		INSERT INTO email_templates (id, name, subject, html_body, attachments)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err = s.pool.QueryRow(ctx, query,
		tmpl.ID, tmpl.Name, tmpl.Subject, tmpl.HTMLBody, attachments,
	).Scan(&tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("a template named %q already exists", tmpl.Name)
		}
		return apperrors.Persistence("failed to insert template", err)
	}
	return nil
}

func (s *Templates) GetByID(ctx context.Context, id string) (*models.EmailTemplate, error) {
	query := `
		SELECT id, name, subject, html_body, attachments, created_at, updated_at
		FROM email_templates
		WHERE id = $1
	`
	tmpl, err := scanTemplate(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("template %s not found", id)
		}
		return nil, apperrors.Persistence("failed to fetch template", err)
	}
	return tmpl, nil
}

func (s *Templates) List(ctx context.Context) ([]models.EmailTemplate, error) {
	query := `
		SELECT id, name, subject, html_body, attachments, created_at, updated_at
		FROM email_templates
		ORDER BY name
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Persistence("failed to list templates", err)
	}
	defer rows.Close()

	templates := []models.EmailTemplate{}
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, apperrors.Persistence("failed to scan template", err)
		}
		templates = append(templates, *tmpl)
	}
	return templates, rows.Err()
}

func (s *Templates) Update(ctx context.Context, tmpl *models.EmailTemplate) error {
	attachments, err := json.Marshal(orEmptyAttachments(tmpl.Attachments))
	if err != nil {
		return apperrors.Persistence("failed to encode template", err)
	}

	query := `
		UPDATE email_templates
		SET name = $1, subject = $2, html_body = $3, attachments = $4, updated_at = NOW()
		WHERE id = $5
	`
	tag, err := s.pool.Exec(ctx, query,
		tmpl.Name, tmpl.Subject, tmpl.HTMLBody, attachments, tmpl.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("a template named %q already exists", tmpl.Name)
		}
		return apperrors.Persistence("failed to update template", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("template %s not found", tmpl.ID)
	}
	return nil
}

func (s *Templates) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	if err != nil {
		return apperrors.Persistence("failed to delete template", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("template %s not found", id)
	}
	return nil
}

func scanTemplate(row pgx.Row) (*models.EmailTemplate, error) {
	var (
		tmpl    models.EmailTemplate
		attachs []byte
	)
	err := row.Scan(
		&tmpl.ID, &tmpl.Name, &tmpl.Subject, &tmpl.HTMLBody, &attachs,
		&tmpl.CreatedAt, &tmpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attachs, &tmpl.Attachments); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
