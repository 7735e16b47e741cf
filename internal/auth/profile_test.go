// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fatecmeets/fatecmeets/internal/auth"
)

func TestNicknameBase(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		email    string
		want     string
	}{
		{"simple name", "Ana Souza", "ana@example.com", "ana-souza"},
		{"accents and punctuation stripped", "José D'Ávila", "jose@example.com", "jos-d-vila"},
		{"collapses repeated separators", "Ana   Clara", "ana@example.com", "ana-clara"},
		{"empty name falls back to email local part", "", "ana.souza@example.com", "anasouza"},
		{"symbol-only name falls back", "!!!", "bruno@example.com", "bruno"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.NicknameBase(tt.fullName, tt.email))
		})
	}
}

func TestValidateNickname(t *testing.T) {
	tests := []struct {
		name    string
		nick    string
		want    string
		wantErr bool
	}{
		{"valid", "@bruno", "@bruno", false},
		{"uppercase is folded", "@Bruno", "@bruno", false},
		{"surrounding whitespace trimmed", "  @bruno  ", "@bruno", false},
		{"minimum length", "@ab", "@ab", false},
		{"empty", "", "", true},
		{"missing at prefix", "bruno", "", true},
		{"embedded space", "@bru no", "", true},
		{"too short", "@b", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.ValidateNickname(tt.nick)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, auth.CodeInvalidInput, auth.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
