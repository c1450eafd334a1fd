// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail renders and sends the account emails.

[Mailer] implements [notify.Handler]: the worker hands it a job, it builds the
message for the job kind and passes it to a [Sender].

Links in the emails point back at the API:

	{APP_URL}/api/v1/auth/verify/email?token=...
	{APP_URL}/api/v1/auth/verify/forgot-password?token=...
*/
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/taibuivan/accounts/internal/notify"
)

const (
	verifyEmailPath    = "/api/v1/auth/verify/email"
	forgotPasswordPath = "/api/v1/auth/verify/forgot-password"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a rendered [Message].
type Sender interface {
	Send(ctx context.Context, message Message) error
}

type templateData struct {
	Email string
	URL   string
}

var templates = template.Must(template.New("mail").Parse(`
{{define "email-verification"}}<p>Hello {{.Email}},</p>
<p>Please confirm your email address by opening the link below.</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>{{end}}
{{define "forgot-password"}}<p>Hello {{.Email}},</p>
<p>We received a request to reset your password. The link below is valid for a limited time.</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p>If you did not ask for a reset, you can ignore this email.</p>{{end}}
{{define "password-changed"}}<p>Hello {{.Email}},</p>
<p>Your password has been changed. If this was not you, reset your password right away.</p>{{end}}
`))

// Mailer turns notification jobs into emails.
type Mailer struct {
	appURL string
	sender Sender
}

// NewMailer returns a Mailer that builds links from appURL.
func NewMailer(appURL string, sender Sender) *Mailer {
	return &Mailer{
		appURL: strings.TrimRight(appURL, "/"),
		sender: sender,
	}
}

// Handle renders the email for job and sends it.
func (mailer *Mailer) Handle(ctx context.Context, job notify.Job) error {
	message, err := mailer.Render(job)
	if err != nil {
		return err
	}
	return mailer.sender.Send(ctx, message)
}

// Render builds the message for a job without sending it.
func (mailer *Mailer) Render(job notify.Job) (Message, error) {
	var (
		subject string
		name    string
		link    string
	)

	switch job.Kind {
	case notify.KindEmailVerification:
		subject, name = "Email Verification", "email-verification"
		link = mailer.link(verifyEmailPath, job.Payload.Token)
	case notify.KindPasswordReset:
		subject, name = "Reset Password", "forgot-password"
		link = mailer.link(forgotPasswordPath, job.Payload.Token)
	case notify.KindPasswordChanged:
		subject, name = "Password has been Reset", "password-changed"
	default:
		return Message{}, fmt.Errorf("mail: no template for job kind %q", job.Kind)
	}

	if job.Payload.Email == "" {
		return Message{}, fmt.Errorf("mail: job %s has no recipient", job.ID)
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, templateData{Email: job.Payload.Email, URL: link}); err != nil {
		return Message{}, fmt.Errorf("mail: render %s failed: %w", name, err)
	}

	return Message{
		To:      job.Payload.Email,
		Subject: subject,
		HTML:    body.String(),
	}, nil
}

func (mailer *Mailer) link(path, token string) string {
	return mailer.appURL + path + "?token=" + url.QueryEscape(token)
}
