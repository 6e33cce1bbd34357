package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

var ErrInvalidEmail = errors.New("notify: email needs a recipient, subject and body")

// Email is one outgoing message.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (e Email) validate() error {
	if strings.TrimSpace(e.To) == "" || strings.TrimSpace(e.Subject) == "" || e.HTML == "" {
		return ErrInvalidEmail
	}
	return nil
}

type Mailer interface {
	Send(ctx context.Context, e Email) error
}

// ResendMailer delivers mail through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (m *ResendMailer) Send(ctx context.Context, e Email) error {
	if err := e.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{e.To},
		Subject: e.Subject,
		Html:    e.HTML,
	})
	if err != nil {
		return fmt.Errorf("notify: resend: %w", err)
	}
	return nil
}
