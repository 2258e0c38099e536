// Package mailer renders and delivers the account mails requested by the
// API: OTP codes and password reset tokens.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/event"
)

// Message is a rendered plain text mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered message.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

var (
	otpTemplate = template.Must(template.New("otp").Parse(`Hi {{.Username}},

Your SONIX verification code is {{.Code}}.
It expires in {{.ExpiresInMinutes}} minutes.

If you did not create a SONIX account you can ignore this mail.
`))

	resetTemplate = template.Must(template.New("reset").Parse(`Hi {{.Username}},

Use this token to reset your SONIX password:

{{.Token}}

It expires in {{.ExpiresInMinutes}} minutes and can be used once.
If you did not ask for a reset you can ignore this mail.
`))
)

// Render turns a mail request into a message.
func Render(req event.MailRequest) (Message, error) {
	if req.To == "" {
		return Message{}, fmt.Errorf("mail request has no recipient")
	}
	if req.Username == "" {
		req.Username = "runner"
	}

	var (
		tmpl    *template.Template
		subject string
	)
	switch req.EventType() {
	case event.EventTypeMailPasswordReset:
		if req.Token == "" {
			return Message{}, fmt.Errorf("password reset mail has no token")
		}
		tmpl, subject = resetTemplate, "Reset your SONIX password"
	default:
		if req.Code == "" {
			return Message{}, fmt.Errorf("otp mail has no code")
		}
		tmpl, subject = otpTemplate, "Your SONIX verification code"
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, req); err != nil {
		return Message{}, fmt.Errorf("render %s mail: %w", req.EventType(), err)
	}
	return Message{To: req.To, Subject: subject, Body: body.String()}, nil
}

// Direct renders and sends mail requests in-process. The API uses it when
// Kafka is disabled.
type Direct struct {
	sender Sender
	logger *slog.Logger
}

// NewDirect creates a Direct mailer.
func NewDirect(sender Sender, logger *slog.Logger) *Direct {
	return &Direct{sender: sender, logger: logger}
}

// RequestMail renders req and sends it immediately.
func (d *Direct) RequestMail(ctx context.Context, req event.MailRequest) error {
	msg, err := Render(req)
	if err != nil {
		return err
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", d.sender.Name(), err)
	}
	d.logger.InfoContext(ctx, "mail sent",
		slog.String("kind", req.EventType()),
		slog.Int64("user_id", req.UserID),
		slog.String("sender", d.sender.Name()),
	)
	return nil
}
