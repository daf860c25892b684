package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-admin/apperrors"
	"studio-admin/models"
)

type memTemplates struct {
	templates map[string]*models.EmailTemplate
}

func (s *memTemplates) GetByID(_ context.Context, id string) (*models.EmailTemplate, error) {
	tmpl, ok := s.templates[id]
	if !ok {
		return nil, apperrors.NotFound("template %s not found", id)
	}
	copied := *tmpl
	return &copied, nil
}

func newTemplateDispatcher(store *memStore, transport Transport, templates map[string]*models.EmailTemplate) *Dispatcher {
	d := newTestDispatcher(store, transport)
	d.Templates = &memTemplates{templates: templates}
	return d
}

func TestSendFromTemplateNotFound(t *testing.T) {
	store := newMemStore()
	transport := &stubTransport{}
	d := newTemplateDispatcher(store, transport, nil)

	logID, err := d.SendFromTemplate(context.Background(), "missing", []string{"x@y.com"}, "", "", nil)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	assert.Empty(t, logID)
	assert.Zero(t, store.createCalls)
	assert.Zero(t, transport.calls)
}

func TestSendFromTemplateUsesStoredContent(t *testing.T) {
	store := newMemStore()
	transport := &stubTransport{}
	d := newTemplateDispatcher(store, transport, map[string]*models.EmailTemplate{
		"tmpl-1": {
			ID:       "tmpl-1",
			Name:     "Welcome",
			Subject:  "Welcome aboard",
			HTMLBody: "<p>welcome</p>",
		},
	})

	logID, err := d.SendFromTemplate(context.Background(), "tmpl-1", []string{"x@y.com"}, "", "", nil)

	require.NoError(t, err)
	entry := store.records[logID]
	assert.Equal(t, "Welcome aboard", entry.Subject)
	assert.Equal(t, "<p>welcome</p>", entry.HTMLBody)
	assert.Nil(t, entry.RelatedSubmissionID)
}

func TestSendFromTemplateOverrides(t *testing.T) {
	templates := map[string]*models.EmailTemplate{
		"tmpl-1": {
			ID:       "tmpl-1",
			Name:     "Welcome",
			Subject:  "Welcome aboard",
			HTMLBody: "<p>welcome</p>",
		},
	}

	t.Run("subject only", func(t *testing.T) {
		store := newMemStore()
		d := newTemplateDispatcher(store, &stubTransport{}, templates)

		logID, err := d.SendFromTemplate(context.Background(), "tmpl-1", []string{"x@y.com"}, "Custom subject", "", nil)

		require.NoError(t, err)
		entry := store.records[logID]
		assert.Equal(t, "Custom subject", entry.Subject)
		assert.Equal(t, "<p>welcome</p>", entry.HTMLBody)
	})

	t.Run("body only", func(t *testing.T) {
		store := newMemStore()
		d := newTemplateDispatcher(store, &stubTransport{}, templates)

		logID, err := d.SendFromTemplate(context.Background(), "tmpl-1", []string{"x@y.com"}, "", "<p>custom</p>", nil)

		require.NoError(t, err)
		entry := store.records[logID]
		assert.Equal(t, "Welcome aboard", entry.Subject)
		assert.Equal(t, "<p>custom</p>", entry.HTMLBody)
	})
}

func TestSendFromTemplateConcatenatesAttachments(t *testing.T) {
	stored := models.AttachmentRef{
		Filename: "brochure.pdf",
		Kind:     models.AttachmentRemote,
		URL:      "https://cdn.test/brochure.pdf",
		RemoteID: "templates/brochure",
	}
	extra := models.AttachmentRef{
		Filename: "invoice.pdf",
		Kind:     models.AttachmentLocal,
		Path:     "/tmp/invoice.pdf",
	}

	tmpl := &models.EmailTemplate{
		ID:          "tmpl-1",
		Name:        "Welcome",
		Subject:     "Welcome aboard",
		HTMLBody:    "<p>welcome</p>",
		Attachments: []models.AttachmentRef{stored},
	}

	store := newMemStore()
	transport := &stubTransport{}
	d := newTemplateDispatcher(store, transport, map[string]*models.EmailTemplate{"tmpl-1": tmpl})

	_, err := d.SendFromTemplate(context.Background(), "tmpl-1", []string{"x@y.com"}, "", "", []models.AttachmentRef{extra})

	require.NoError(t, err)
	// Template attachments come first, request attachments after.
	assert.Equal(t, []models.AttachmentRef{stored, extra}, transport.lastMsg.Attachments)
	// The stored template itself is never mutated by a send.
	assert.Equal(t, []models.AttachmentRef{stored}, tmpl.Attachments)
}
