// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fatecmeets/fatecmeets/internal/observability"
)

// bearerPrefix is the accepted Authorization scheme.
const bearerPrefix = "Bearer "

// TokenService is the session token engine: issuing, rotating and revoking
// the opaque access/refresh pairs that authorize API calls.
type TokenService struct {
	tokens TokenRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(tokens TokenRepository) (*TokenService, error) {
	return NewTokenServiceWithLogger(tokens, slog.Default())
}

// NewTokenServiceWithLogger creates a TokenService with an explicit logger.
func NewTokenServiceWithLogger(tokens TokenRepository, logger *slog.Logger) (*TokenService, error) {
	if tokens == nil {
		return nil, oops.Errorf("tokens repository is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &TokenService{tokens: tokens, logger: logger, now: time.Now}, nil
}

// IssuePair mints and persists a fresh access/refresh pair for the account.
// The refresh token lives RefreshTokenExpiry, or RefreshTokenExpiryLong
// when longLived is requested.
func (s *TokenService) IssuePair(ctx context.Context, accountID ulid.ULID, longLived bool) (*TokenPair, error) {
	now := s.now()

	access, err := s.mint(ctx, accountID, TokenAccess, AccessTokenBytes, now.Add(AccessTokenExpiry), now)
	if err != nil {
		return nil, err
	}

	refreshExpiry := RefreshTokenExpiry
	if longLived {
		refreshExpiry = RefreshTokenExpiryLong
	}
	refresh, err := s.mint(ctx, accountID, TokenRefresh, RefreshTokenBytes, now.Add(refreshExpiry), now)
	if err != nil {
		return nil, err
	}

	observability.RecordTokensIssued(string(TokenAccess))
	observability.RecordTokensIssued(string(TokenRefresh))
	s.logger.Debug("token pair issued",
		"account_id", accountID.String(),
		"long_lived", longLived,
	)
	return &TokenPair{AccessToken: access.Token, RefreshToken: refresh.Token}, nil
}

// RevokeAllSessionTokens flags every live access and refresh token of the
// account. Idempotent; used when a completed login replaces the session.
func (s *TokenService) RevokeAllSessionTokens(ctx context.Context, accountID ulid.ULID) error {
	n, err := s.tokens.RevokeAllForAccount(ctx, accountID)
	if err != nil {
		return oops.Code("REVOKE_ALL_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	if n > 0 {
		observability.RecordTokenRevocations(n)
	}
	return nil
}

// RotateAccess mints a new access token from a live refresh token. The
// refresh token itself is left untouched and keeps minting until it expires
// or is revoked; an expired one is revoked on sight so later rotation
// attempts with the same string fail fast.
func (s *TokenService) RotateAccess(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", oops.Code(CodeUnauthorized).Errorf("refresh token is required")
	}

	row, err := s.tokens.GetActive(ctx, refreshToken, TokenRefresh)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code(CodeUnauthorized).Errorf("refresh token invalid or expired")
		}
		return "", oops.Code("ROTATE_ACCESS_FAILED").With("operation", "GetActive").Wrap(err)
	}

	now := s.now()
	if row.IsExpired(now) {
		if err := s.tokens.Revoke(ctx, row.ID); err != nil {
			return "", oops.Code("ROTATE_ACCESS_FAILED").With("operation", "Revoke").Wrap(err)
		}
		observability.RecordTokenRevocations(1)
		return "", oops.Code(CodeUnauthorized).Errorf("refresh token invalid or expired")
	}

	access, err := s.mint(ctx, row.AccountID, TokenAccess, AccessTokenBytes, now.Add(AccessTokenExpiry), now)
	if err != nil {
		return "", err
	}

	observability.RecordTokensIssued(string(TokenAccess))
	return access.Token, nil
}

// RevokeRefresh flags the matching live refresh token. Unknown or already
// revoked tokens are a no-op, so logout never fails.
func (s *TokenService) RevokeRefresh(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	row, err := s.tokens.GetActive(ctx, refreshToken, TokenRefresh)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("REVOKE_REFRESH_FAILED").With("operation", "GetActive").Wrap(err)
	}
	if err := s.tokens.Revoke(ctx, row.ID); err != nil {
		return oops.Code("REVOKE_REFRESH_FAILED").With("operation", "Revoke").Wrap(err)
	}
	observability.RecordTokenRevocations(1)
	return nil
}

// ResolveAccountID resolves an Authorization header to the owning account
// of a live, unexpired access token. The explicit expiry check here closes
// the one lookup path that historically skipped it.
func (s *TokenService) ResolveAccountID(ctx context.Context, bearerHeader string) (ulid.ULID, error) {
	if !strings.HasPrefix(bearerHeader, bearerPrefix) {
		return ulid.ULID{}, oops.Code(CodeUnauthorized).Errorf("malformed authorization header")
	}
	tokenStr := bearerHeader[len(bearerPrefix):]
	if tokenStr == "" {
		return ulid.ULID{}, oops.Code(CodeUnauthorized).Errorf("malformed authorization header")
	}

	row, err := s.tokens.GetActive(ctx, tokenStr, TokenAccess)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code(CodeUnauthorized).Errorf("access token invalid")
		}
		return ulid.ULID{}, oops.Code("RESOLVE_ACCOUNT_FAILED").With("operation", "GetActive").Wrap(err)
	}
	if row.IsExpired(s.now()) {
		return ulid.ULID{}, oops.Code(CodeUnauthorized).Errorf("access token expired")
	}
	return row.AccountID, nil
}

// mint generates, persists and returns one token row.
func (s *TokenService) mint(ctx context.Context, accountID ulid.ULID, kind TokenKind, bytes int, expiresAt, now time.Time) (*IssuedToken, error) {
	value, err := GenerateToken(bytes)
	if err != nil {
		return nil, oops.Code("TOKEN_MINT_FAILED").With("kind", string(kind)).Wrap(err)
	}
	row := &IssuedToken{
		ID:        ulid.Make(),
		Token:     value,
		Kind:      kind,
		AccountID: accountID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.tokens.Create(ctx, row); err != nil {
		return nil, oops.Code("TOKEN_MINT_FAILED").
			With("operation", "Create").
			With("kind", string(kind)).
			Wrap(err)
	}
	return row, nil
}
