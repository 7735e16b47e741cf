// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

// Package mail delivers one-time codes over SMTP.
package mail

import (
	"context"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"

	"github.com/samber/oops"

	"github.com/fatecmeets/fatecmeets/internal/auth"
)

// Message templates. Plain text; codes are short-lived so no links.
var (
	verificationTemplate = template.Must(template.New("verification").Parse(
		"Seu código de ativação FatecMeets é {{.Code}}.\r\n" +
			"Informe este código para ativar sua conta.\r\n"))

	loginTemplate = template.Must(template.New("login").Parse(
		"Seu código de acesso FatecMeets é {{.Code}}.\r\n" +
			"O código expira em {{.ExpiryMinutes}} minutos.\r\n"))
)

// Options configures an SMTPMailer.
type Options struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SMTPMailer implements auth.CodeMailer over plain SMTP with optional
// PLAIN auth.
type SMTPMailer struct {
	opts Options
}

// NewSMTPMailer creates a mailer for the given SMTP endpoint.
func NewSMTPMailer(opts Options) (*SMTPMailer, error) {
	if opts.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if opts.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("from address is required")
	}
	return &SMTPMailer{opts: opts}, nil
}

// SendVerificationCode mails an account-activation code.
func (m *SMTPMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	body, err := render(verificationTemplate, map[string]any{"Code": code})
	if err != nil {
		return err
	}
	return m.send(ctx, email, "Ativação de conta FatecMeets", body)
}

// SendLoginCode mails a login code.
func (m *SMTPMailer) SendLoginCode(ctx context.Context, email, code string) error {
	body, err := render(loginTemplate, map[string]any{
		"Code":          code,
		"ExpiryMinutes": int(auth.LoginCodeExpiry.Minutes()),
	})
	if err != nil {
		return err
	}
	return m.send(ctx, email, "Código de acesso FatecMeets", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("recipient", to).Wrap(err)
	}

	addr := net.JoinHostPort(m.opts.Host, strconv.Itoa(m.opts.Port))
	var authn smtp.Auth
	if m.opts.Username != "" {
		authn = smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.Host)
	}

	msg := buildMessage(m.opts.From, to, subject, body)
	if err := smtp.SendMail(addr, authn, m.opts.From, []string{to}, []byte(msg)); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("recipient", to).
			With("smtp_addr", addr).
			Wrap(err)
	}
	return nil
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", oops.Code("MAIL_TEMPLATE_FAILED").
			With("template", tmpl.Name()).
			Wrap(err)
	}
	return sb.String(), nil
}

func buildMessage(from, to, subject, body string) string {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	return sb.String()
}

// Compile-time interface check.
var _ auth.CodeMailer = (*SMTPMailer)(nil)

// LogMailer implements auth.CodeMailer by logging codes instead of sending
// mail. Used in development and when no SMTP host is configured.
type LogMailer struct {
	logf func(format string, args ...any)
}

// NewLogMailer creates a LogMailer writing through logf.
func NewLogMailer(logf func(format string, args ...any)) *LogMailer {
	return &LogMailer{logf: logf}
}

// SendVerificationCode logs an activation code.
func (m *LogMailer) SendVerificationCode(_ context.Context, email, code string) error {
	m.logf("verification code for %s: %s", email, code)
	return nil
}

// SendLoginCode logs a login code.
func (m *LogMailer) SendLoginCode(_ context.Context, email, code string) error {
	m.logf("login code for %s: %s", email, code)
	return nil
}

// Compile-time interface check.
var _ auth.CodeMailer = (*LogMailer)(nil)
