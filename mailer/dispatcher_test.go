package mailer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-admin/apperrors"
	"studio-admin/models"
)

type memStore struct {
	records        map[string]*models.DeliveryLog
	order          []string
	createCalls    int
	updateCalls    int
	failCreate     bool
	failList       bool
	updateErrs     int
	statusAtCreate []string
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*models.DeliveryLog)}
}

func (s *memStore) Create(_ context.Context, entry *models.DeliveryLog) error {
	s.createCalls++
	if s.failCreate {
		return errors.New("database unavailable")
	}
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("log-%d", len(s.order)+1)
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	s.statusAtCreate = append(s.statusAtCreate, entry.OverallStatus)
	s.records[entry.ID] = entry
	s.order = append(s.order, entry.ID)
	return nil
}

func (s *memStore) Update(_ context.Context, entry *models.DeliveryLog) error {
	s.updateCalls++
	if s.updateErrs > 0 {
		s.updateErrs--
		return errors.New("database unavailable")
	}
	entry.UpdatedAt = time.Now()
	s.records[entry.ID] = entry
	return nil
}

func (s *memStore) ListFailed(_ context.Context) ([]models.DeliveryLog, error) {
	if s.failList {
		return nil, errors.New("database unavailable")
	}
	out := []models.DeliveryLog{}
	for _, id := range s.order {
		if entry := s.records[id]; entry.OverallStatus == models.StatusFailed {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (s *memStore) seed(entry *models.DeliveryLog) {
	s.records[entry.ID] = entry
	s.order = append(s.order, entry.ID)
}

type stubTransport struct {
	result  *Result
	err     error
	errs    []error
	calls   int
	lastMsg *Message
	onSend  func(msg *Message)
}

func (t *stubTransport) SendMail(_ context.Context, msg *Message) (*Result, error) {
	t.calls++
	t.lastMsg = msg
	if t.onSend != nil {
		t.onSend(msg)
	}
	if len(t.errs) > 0 {
		err := t.errs[0]
		t.errs = t.errs[1:]
		if err != nil {
			return nil, err
		}
		return t.defaultResult(msg), nil
	}
	if t.err != nil {
		return nil, t.err
	}
	if t.result != nil {
		return t.result, nil
	}
	return t.defaultResult(msg), nil
}

func (t *stubTransport) defaultResult(msg *Message) *Result {
	return &Result{MessageID: "<test@local>", Accepted: msg.To}
}

func newTestDispatcher(store *memStore, transport Transport) *Dispatcher {
	return &Dispatcher{
		Logs:      store,
		Transport: transport,
		Sender:    "admin@studio.test",
	}
}

func TestSendSuccess(t *testing.T) {
	store := newMemStore()
	transport := &stubTransport{
		result: &Result{MessageID: "<abc@relay>", Accepted: []string{"user@test.com"}},
	}
	d := newTestDispatcher(store, transport)

	logID, err := d.Send(context.Background(), &SendRequest{
		To:       []string{"user@test.com"},
		Subject:  "Hi",
		HTMLBody: "<p>hi</p>",
	})

	require.NoError(t, err)
	require.NotEmpty(t, logID)
	assert.Equal(t, 1, transport.calls)
	assert.Equal(t, 1, store.updateCalls)

	entry := store.records[logID]
	require.NotNil(t, entry)
	assert.Equal(t, models.StatusSuccess, entry.OverallStatus)
	require.NotNil(t, entry.MessageID)
	assert.Equal(t, "<abc@relay>", *entry.MessageID)
	require.Len(t, entry.To, 1)
	assert.Equal(t, "user@test.com", entry.To[0].Email)
	assert.Equal(t, models.StatusSuccess, entry.To[0].Status)
	assert.NotNil(t, entry.SentAt)
	assert.Nil(t, entry.ErrorDetail)
}

func TestSendTransportFailure(t *testing.T) {
	store := newMemStore()
	transport := &stubTransport{err: errors.New("SMTP down")}
	d := newTestDispatcher(store, transport)

	logID, err := d.Send(context.Background(), &SendRequest{
		To:       []string{"user@test.com"},
		Subject:  "Hi",
		HTMLBody: "<p>hi</p>",
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindTransport))
	require.NotEmpty(t, logID)

	entry := store.records[logID]
	require.NotNil(t, entry)
	assert.Equal(t, models.StatusFailed, entry.OverallStatus)
	require.NotNil(t, entry.ErrorDetail)
	assert.Equal(t, "SMTP down", *entry.ErrorDetail)
	require.Len(t, entry.To, 1)
	assert.Equal(t, models.StatusFailed, entry.To[0].Status)
	assert.Equal(t, "SMTP down", entry.To[0].Error)
	assert.Nil(t, entry.MessageID)
}

func TestSendPartialRejection(t *testing.T) {
	store := newMemStore()
	transport := &stubTransport{
		result: &Result{
			MessageID: "<abc@relay>",
			Accepted:  []string{"a@x.com"},
			Rejected:  []string{"b@x.com"},
		},
	}
	d := newTestDispatcher(store, transport)

	logID, err := d.Send(context.Background(), &SendRequest{
		To:       []string{"a@x.com", "b@x.com"},
		Subject:  "Hi",
		HTMLBody: "<p>hi</p>",
	})

	require.NoError(t, err)

	entry := store.records[logID]
	require.Len(t, entry.To, 2)
	// Partial delivery does not flip the overall status.
	assert.Equal(t, models.StatusSuccess, entry.OverallStatus)
	assert.Equal(t, models.StatusSuccess, entry.To[0].Status)
	assert.Equal(t, models.StatusFailed, entry.To[1].Status)
	assert.NotEmpty(t, entry.To[1].Error)
}

func TestSendUnlistedRecipientCountsAsDelivered(t *testing.T) {
	store := newMemStore()
	transport := &stubTransport{
		result: &Result{MessageID: "<abc@relay>"},
	}
	d := newTestDispatcher(store, transport)

	logID, err := d.Send(context.Background(), &SendRequest{
		To:       []string{"silent@x.com"},
		Subject:  "Hi",
		HTMLBody: "<p>hi</p>",
	})

	require.NoError(t, err)
	entry := store.records[logID]
	assert.Equal(t, models.StatusSuccess, entry.To[0].Status)
}

func TestSendPendingRecordPrecedesTransport(t *testing.T) {
	store := newMemStore()
	transport := &stubTransport{}
	transport.onSend = func(*Message) {
		require.Len(t, store.order, 1)
		entry := store.records[store.order[0]]
		assert.Equal(t, models.StatusPending, entry.OverallStatus)
		assert.Equal(t, models.StatusPending, entry.To[0].Status)
		assert.Zero(t, store.updateCalls)
	}
	d := newTestDispatcher(store, transport)

	_, err := d.Send(context.Background(), &SendRequest{
		To:       []string{"user@test.com"},
		Subject:  "Hi",
		HTMLBody: "<p>hi</p>",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, transport.calls)
}

func TestSendTerminalStateAlwaysReached(t *testing.T) {
	for name, transport := range map[string]*stubTransport{
		"success": {},
		"failure": {err: errors.New("boom")},
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			d := newTestDispatcher(store, transport)

			logID, _ := d.Send(context.Background(), &SendRequest{
				To:       []string{"user@test.com"},
				Subject:  "Hi",
				HTMLBody: "<p>hi</p>",
			})

			entry := store.records[logID]
			require.NotNil(t, entry)
			assert.Contains(t, []string{models.StatusSuccess, models.StatusFailed}, entry.OverallStatus)
		})
	}
}

func TestSendInitialPersistenceFailureAbortsBeforeTransport(t *testing.T) {
	store := newMemStore()
	store.failCreate = true
	transport := &stubTransport{}
	d := newTestDispatcher(store, transport)

	logID, err := d.Send(context.Background(), &SendRequest{
		To:       []string{"user@test.com"},
		Subject:  "Hi",
		HTMLBody: "<p>hi</p>",
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindPersistence))
	assert.Empty(t, logID)
	assert.Zero(t, transport.calls)
	assert.Zero(t, store.updateCalls)
}

func TestSendFinalUpdateFailureDoesNotFailCaller(t *testing.T) {
	store := newMemStore()
	store.updateErrs = 100
	transport := &stubTransport{}
	d := newTestDispatcher(store, transport)

	logID, err := d.Send(context.Background(), &SendRequest{
		To:       []string{"user@test.com"},
		Subject:  "Hi",
		HTMLBody: "<p>hi</p>",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, logID)
	assert.Equal(t, updateAttempts, store.updateCalls)
}

func TestSendNormalizesRecipients(t *testing.T) {
	store := newMemStore()
	transport := &stubTransport{}
	d := newTestDispatcher(store, transport)

	logID, err := d.Send(context.Background(), &SendRequest{
		To:       []string{"  a@x.com  ", "", "b@x.com"},
		CC:       []string{" c@x.com"},
		Subject:  "Hi",
		HTMLBody: "<p>hi</p>",
	})

	require.NoError(t, err)
	entry := store.records[logID]
	require.Len(t, entry.To, 2)
	assert.Equal(t, "a@x.com", entry.To[0].Email)
	assert.Equal(t, "b@x.com", entry.To[1].Email)
	require.Len(t, entry.CC, 1)
	assert.Equal(t, "c@x.com", entry.CC[0].Email)

	assert.Equal(t, []string{"a@x.com", "b@x.com"}, transport.lastMsg.To)
	assert.Equal(t, []string{"c@x.com"}, transport.lastMsg.CC)
}

func TestSendPassesAttachmentsThrough(t *testing.T) {
	store := newMemStore()
	transport := &stubTransport{}
	d := newTestDispatcher(store, transport)

	attachments := []models.AttachmentRef{
		{Filename: "a.pdf", Kind: models.AttachmentLocal, Path: "/tmp/a.pdf", ContentType: "application/pdf", Size: 42},
		{Filename: "b.png", Kind: models.AttachmentRemote, URL: "https://cdn.test/b.png", RemoteID: "gallery/b"},
	}

	logID, err := d.Send(context.Background(), &SendRequest{
		To:          []string{"user@test.com"},
		Subject:     "Hi",
		HTMLBody:    "<p>hi</p>",
		Attachments: attachments,
	})

	require.NoError(t, err)
	assert.Equal(t, attachments, transport.lastMsg.Attachments)
	assert.Equal(t, attachments, store.records[logID].Attachments)
}
