// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// # SMTP

// defaultSendTimeout bounds a whole SMTP exchange when the caller's context
// has no earlier deadline.
const defaultSendTimeout = 30 * time.Second

// SMTPSender delivers messages through an SMTP relay with optional PLAIN auth.
type SMTPSender struct {
	addr    string
	host    string
	from    string
	auth    smtp.Auth
	timeout time.Duration
}

// NewSMTPSender returns a sender for addr ("host:port"). Credentials are
// optional; when set, PLAIN auth is used. STARTTLS is negotiated whenever the
// server offers it.
func NewSMTPSender(addr, from, username, password string) (*SMTPSender, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("mail: invalid SMTP address %q: %w", addr, err)
	}

	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPSender{addr: addr, host: host, from: from, auth: auth, timeout: defaultSendTimeout}, nil
}

/*
Send delivers message over a fresh connection.

Description: The connection is dialed with ctx and closed as soon as ctx ends,
which fails any pending read or write. No part of the exchange outlives the
call. The exchange is bounded by defaultSendTimeout even without a deadline.

Parameters:
  - ctx: context.Context
  - message: Message

Returns:
  - error: Dial, protocol or context errors
*/
func (sender *SMTPSender) Send(ctx context.Context, message Message) error {
	ctx, cancel := context.WithTimeout(ctx, sender.timeout)
	defer cancel()

	if err := sender.deliver(ctx, message); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("mail: smtp send to %s: %w", message.To, ctxErr)
		}
		return fmt.Errorf("mail: smtp send to %s failed: %w", message.To, err)
	}
	return nil
}

func (sender *SMTPSender) deliver(ctx context.Context, message Message) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", sender.addr)
	if err != nil {
		return err
	}

	// Unblocks any pending read or write once ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, sender.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: sender.host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}

	if sender.auth != nil {
		if ok, _ := client.Extension("AUTH"); !ok {
			return errors.New("server does not support AUTH")
		}
		if err := client.Auth(sender.auth); err != nil {
			return err
		}
	}

	if err := client.Mail(sender.from); err != nil {
		return err
	}
	if err := client.Rcpt(message.To); err != nil {
		return err
	}

	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(buildMIME(sender.from, message, time.Now())); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	return client.Quit()
}

func buildMIME(from string, message Message, now time.Time) []byte {
	var builder strings.Builder
	builder.WriteString("From: " + from + "\r\n")
	builder.WriteString("To: " + message.To + "\r\n")
	builder.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", message.Subject) + "\r\n")
	builder.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	builder.WriteString("MIME-Version: 1.0\r\n")
	builder.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(message.HTML)
	return []byte(builder.String())
}

// # Logging

// LogSender writes messages to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a [LogSender].
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the envelope at info level. The body carries live tokens and is
// only logged at debug level.
func (sender *LogSender) Send(ctx context.Context, message Message) error {
	sender.logger.InfoContext(ctx, "mail_logged",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
	)
	sender.logger.DebugContext(ctx, "mail_logged_body",
		slog.String("to", message.To),
		slog.String("body", message.HTML),
	)
	return nil
}
