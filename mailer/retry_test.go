package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-admin/models"
)

func failedLog(id string, to ...string) *models.DeliveryLog {
	detail := "SMTP down"
	recipients := make([]models.Recipient, len(to))
	for i, addr := range to {
		recipients[i] = models.Recipient{Email: addr, Status: models.StatusFailed, Error: detail}
	}
	return &models.DeliveryLog{
		ID:            id,
		Sender:        "admin@studio.test",
		To:            recipients,
		Subject:       "Hello",
		HTMLBody:      "<p>hello</p>",
		OverallStatus: models.StatusFailed,
		ErrorDetail:   &detail,
	}
}

func TestRetryFailedNothingToRetry(t *testing.T) {
	store := newMemStore()
	transport := &stubTransport{}
	d := newTestDispatcher(store, transport)

	summary, err := d.RetryFailed(context.Background())

	require.NoError(t, err)
	assert.Zero(t, summary.RetriedCount)
	assert.Empty(t, summary.Results)
	assert.True(t, summary.Success())
	assert.Zero(t, store.createCalls)
	assert.Zero(t, store.updateCalls)
	assert.Zero(t, transport.calls)
}

func TestRetryCreatesNewRecordAndKeepsOriginal(t *testing.T) {
	store := newMemStore()
	original := failedLog("orig-1", "user@test.com")
	store.seed(original)

	transport := &stubTransport{}
	d := newTestDispatcher(store, transport)

	summary, err := d.RetryFailed(context.Background())

	require.NoError(t, err)
	require.Equal(t, 1, summary.RetriedCount)
	assert.Equal(t, 1, summary.Succeeded)
	assert.True(t, summary.Success())

	result := summary.Results[0]
	assert.Equal(t, "orig-1", result.OriginalID)
	assert.Equal(t, models.StatusSuccess, result.Status)
	require.NotNil(t, result.NewID)
	assert.NotEqual(t, original.ID, *result.NewID)

	// The original record is history, never mutated.
	assert.Equal(t, models.StatusFailed, original.OverallStatus)
	assert.Equal(t, "Hello", original.Subject)
	assert.Equal(t, models.StatusFailed, original.To[0].Status)

	fresh := store.records[*result.NewID]
	require.NotNil(t, fresh)
	assert.Equal(t, models.StatusSuccess, fresh.OverallStatus)
	assert.Equal(t, "Hello", fresh.Subject)
	assert.Equal(t, "<p>hello</p>", fresh.HTMLBody)
	assert.Equal(t, models.StatusSuccess, fresh.To[0].Status)
}

func TestRetryDiscardsPreviousRecipientState(t *testing.T) {
	store := newMemStore()
	store.seed(failedLog("orig-1", "user@test.com"))

	transport := &stubTransport{}
	transport.onSend = func(*Message) {
		fresh := store.records[store.order[len(store.order)-1]]
		assert.Equal(t, models.StatusPending, fresh.To[0].Status)
		assert.Empty(t, fresh.To[0].Error)
	}
	d := newTestDispatcher(store, transport)

	_, err := d.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, transport.calls)
}

func TestRetryIsolatesPerItemFailures(t *testing.T) {
	store := newMemStore()
	store.seed(failedLog("orig-1", "a@x.com"))
	store.seed(failedLog("orig-2", "b@x.com"))

	transport := &stubTransport{errs: []error{errors.New("still down"), nil}}
	d := newTestDispatcher(store, transport)

	summary, err := d.RetryFailed(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, transport.calls)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.False(t, summary.Success())

	assert.Equal(t, "orig-1", summary.Results[0].OriginalID)
	assert.Equal(t, models.StatusFailed, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].Message, "still down")
	// The failed retry still produced its own log record.
	assert.NotNil(t, summary.Results[0].NewID)

	assert.Equal(t, "orig-2", summary.Results[1].OriginalID)
	assert.Equal(t, models.StatusSuccess, summary.Results[1].Status)
}

func TestRetryPrefersRemoteAttachmentSource(t *testing.T) {
	store := newMemStore()
	entry := failedLog("orig-1", "user@test.com")
	entry.Attachments = []models.AttachmentRef{
		{
			Filename: "report.pdf",
			Kind:     models.AttachmentLocal,
			Path:     "/tmp/report.pdf",
			URL:      "https://cdn.test/report.pdf",
			RemoteID: "docs/report",
		},
	}
	store.seed(entry)

	transport := &stubTransport{}
	d := newTestDispatcher(store, transport)

	_, err := d.RetryFailed(context.Background())
	require.NoError(t, err)

	require.Len(t, transport.lastMsg.Attachments, 1)
	ref := transport.lastMsg.Attachments[0]
	assert.Equal(t, models.AttachmentRemote, ref.Kind)
	assert.Equal(t, "https://cdn.test/report.pdf", ref.URL)
	assert.Empty(t, ref.Path)
}

func TestRetryCarriesRelatedSubmission(t *testing.T) {
	store := newMemStore()
	entry := failedLog("orig-1", "user@test.com")
	submissionID := "sub-42"
	entry.RelatedSubmissionID = &submissionID
	store.seed(entry)

	d := newTestDispatcher(store, &stubTransport{})

	summary, err := d.RetryFailed(context.Background())
	require.NoError(t, err)

	fresh := store.records[*summary.Results[0].NewID]
	require.NotNil(t, fresh.RelatedSubmissionID)
	assert.Equal(t, "sub-42", *fresh.RelatedSubmissionID)
}

func TestRetryListFailurePropagates(t *testing.T) {
	store := newMemStore()
	store.failList = true
	d := newTestDispatcher(store, &stubTransport{})

	summary, err := d.RetryFailed(context.Background())
	require.Error(t, err)
	assert.Nil(t, summary)
}
