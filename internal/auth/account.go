// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AccountStatus is the verification state of an account.
type AccountStatus string

// Account lifecycle states. The inactive -> active transition happens
// exactly once and is irreversible.
const (
	StatusInactive AccountStatus = "inactive"
	StatusActive   AccountStatus = "active"
)

// Account is a user identity record. The email verification code lives on
// the account row (single outstanding code per account); login challenge
// state lives in its own table, see LoginChallenge.
type Account struct {
	ID               ulid.ULID
	Email            string
	PasswordHash     string
	Status           AccountStatus
	VerificationCode *string
	VerifiedAt       *time.Time
	ImageJSON        *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether the account finished email verification.
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// Activate marks the account verified, clearing the outstanding code.
func (a *Account) Activate(at time.Time) {
	a.Status = StatusActive
	a.VerificationCode = nil
	a.VerifiedAt = &at
	a.UpdatedAt = at
}

// NormalizeEmail lowercases and trims an address. All lookups and
// uniqueness checks operate on the normalized form.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateEmail checks the minimal address shape: a non-empty local part
// and at least a plausible domain after the @.
func ValidateEmail(email string) error {
	at := strings.IndexByte(email, '@')
	if email == "" || at <= 0 || at >= len(email)-3 {
		return oops.Code(CodeInvalidInput).Errorf("a valid email address is required")
	}
	return nil
}

// EmailLocalPart returns the part of a normalized address before the @.
func EmailLocalPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. Returns ErrDuplicate (wrapped) when the
	// email is already registered.
	Create(ctx context.Context, account *Account) error

	// GetByEmail retrieves an account by normalized email.
	// Returns ErrNotFound (wrapped) when absent.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByID retrieves an account by id.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// Update persists mutated account fields.
	Update(ctx context.Context, account *Account) error
}
