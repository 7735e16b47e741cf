// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// TokenKind distinguishes the two credentials of a session pair.
type TokenKind string

// Token kinds.
const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Token lifetimes.
const (
	AccessTokenExpiry      = 15 * time.Minute
	RefreshTokenExpiry     = 7 * 24 * time.Hour
	RefreshTokenExpiryLong = 30 * 24 * time.Hour
)

// IssuedToken is one opaque credential row. Access and refresh tokens are
// independent rows with independent lifetimes; revocation is a logical
// flag, never a delete.
type IssuedToken struct {
	ID        ulid.ULID
	Token     string
	Kind      TokenKind
	AccountID ulid.ULID
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// IsExpired reports whether the token's lifetime has elapsed at the given time.
func (t *IssuedToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenPair is the result of a successful login: a fresh access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenRepository manages issued token persistence.
type TokenRepository interface {
	// Create stores a new token row. Returns ErrDuplicate (wrapped) on a
	// token-string collision.
	Create(ctx context.Context, token *IssuedToken) error

	// GetActive retrieves a non-revoked token by exact string and kind.
	// Returns ErrNotFound (wrapped) when absent or revoked. Expiry is the
	// caller's concern.
	GetActive(ctx context.Context, token string, kind TokenKind) (*IssuedToken, error)

	// Revoke flags a single token row.
	Revoke(ctx context.Context, id ulid.ULID) error

	// RevokeAllForAccount flags every non-revoked token of the account,
	// both kinds, and returns the number of rows flagged. Idempotent.
	RevokeAllForAccount(ctx context.Context, accountID ulid.ULID) (int64, error)
}
