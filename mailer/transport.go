package mailer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"studio-admin/models"
)

// Message is the payload handed to a Transport.
type Message struct {
	From        string
	To          []string
	CC          []string
	BCC         []string
	Subject     string
	HTMLBody    string
	Attachments []models.AttachmentRef
}

// Result reports a transport outcome. A transport that cannot attribute
// outcomes per address may leave Accepted and Rejected empty; unlisted
// addresses are reconciled optimistically by the dispatcher.
type Result struct {
	MessageID string
	Accepted  []string
	Rejected  []string
}

// Transport performs the actual network send.
type Transport interface {
	SendMail(ctx context.Context, msg *Message) (*Result, error)
}

// SMTPTransport sends through an authenticated SMTP relay.
type SMTPTransport struct {
	dialer *gomail.Dialer
	domain string
	client *http.Client
}

func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	return &SMTPTransport{
		dialer: gomail.NewDialer(host, port, username, password),
		domain: host,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *SMTPTransport) SendMail(ctx context.Context, msg *Message) (*Result, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	if len(msg.CC) > 0 {
		m.SetHeader("Cc", msg.CC...)
	}
	if len(msg.BCC) > 0 {
		m.SetHeader("Bcc", msg.BCC...)
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), t.domain)
	m.SetHeader("Message-ID", messageID)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	for _, ref := range msg.Attachments {
		switch ref.Kind {
		case models.AttachmentRemote:
			body, err := t.fetch(ctx, ref.URL)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch attachment %s: %w", ref.Filename, err)
			}
			m.Attach(ref.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(body)
				return err
			}))
		case models.AttachmentLocal:
			m.Attach(ref.Path, gomail.Rename(ref.Filename))
		default:
			return nil, fmt.Errorf("attachment %s has unknown source kind %q", ref.Filename, ref.Kind)
		}
	}

	// gomail has no context support; run the send in a goroutine so a hung
	// relay cannot stall the request past the caller's deadline.
	done := make(chan error, 1)
	go func() { done <- t.dialer.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, err
		}
	}

	// The relay accepted the whole envelope. It reports no per-address
	// breakdown, so every recipient counts as accepted.
	accepted := make([]string, 0, len(msg.To)+len(msg.CC)+len(msg.BCC))
	accepted = append(accepted, msg.To...)
	accepted = append(accepted, msg.CC...)
	accepted = append(accepted, msg.BCC...)

	return &Result{MessageID: messageID, Accepted: accepted}, nil
}

func (t *SMTPTransport) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
