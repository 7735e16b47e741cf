// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package mail

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatecmeets/fatecmeets/pkg/errutil"
)

func TestNewSMTPMailer_Validation(t *testing.T) {
	t.Run("requires host", func(t *testing.T) {
		_, err := NewSMTPMailer(Options{From: "noreply@fatec.sp.gov.br"})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
	})

	t.Run("requires from address", func(t *testing.T) {
		_, err := NewSMTPMailer(Options{Host: "smtp.example.com"})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
	})

	t.Run("accepts minimal options", func(t *testing.T) {
		m, err := NewSMTPMailer(Options{
			Host: "smtp.example.com",
			Port: 587,
			From: "noreply@fatec.sp.gov.br",
		})
		require.NoError(t, err)
		assert.NotNil(t, m)
	})
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m, err := NewSMTPMailer(Options{
		Host: "smtp.example.com",
		Port: 587,
		From: "noreply@fatec.sp.gov.br",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.SendVerificationCode(ctx, "ana@fatec.sp.gov.br", "ABCDEF")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
}

func TestTemplates(t *testing.T) {
	t.Run("verification body carries the code", func(t *testing.T) {
		body, err := render(verificationTemplate, map[string]any{"Code": "K7MPX2"})
		require.NoError(t, err)
		assert.Contains(t, body, "K7MPX2")
	})

	t.Run("login body carries code and expiry", func(t *testing.T) {
		body, err := render(loginTemplate, map[string]any{
			"Code":          "K7MPX2",
			"ExpiryMinutes": 10,
		})
		require.NoError(t, err)
		assert.Contains(t, body, "K7MPX2")
		assert.Contains(t, body, "10 minutos")
	})
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("noreply@fatec.sp.gov.br", "ana@fatec.sp.gov.br", "Teste", "corpo\r\n")
	assert.Contains(t, msg, "From: noreply@fatec.sp.gov.br\r\n")
	assert.Contains(t, msg, "To: ana@fatec.sp.gov.br\r\n")
	assert.Contains(t, msg, "Subject: Teste\r\n")
	assert.Contains(t, msg, "\r\n\r\ncorpo")
}

func TestLogMailer(t *testing.T) {
	var lines []string
	m := NewLogMailer(func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	})

	require.NoError(t, m.SendVerificationCode(context.Background(), "ana@fatec.sp.gov.br", "ABCDEF"))
	require.NoError(t, m.SendLoginCode(context.Background(), "ana@fatec.sp.gov.br", "K7MPX2"))

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ABCDEF")
	assert.Contains(t, lines[1], "K7MPX2")
}
