// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fatecmeets/fatecmeets/internal/auth"
)

// TokenRepository implements auth.TokenRepository using PostgreSQL.
type TokenRepository struct {
	db DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create stores a new token row.
func (r *TokenRepository) Create(ctx context.Context, token *auth.IssuedToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO tokens (id, token, kind, account_id, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		token.ID.String(),
		token.Token,
		string(token.Kind),
		token.AccountID.String(),
		token.ExpiresAt,
		token.Revoked,
		token.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("TOKEN_DUPLICATE").
				With("kind", string(token.Kind)).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("TOKEN_CREATE_FAILED").
			With("operation", "insert token").
			With("kind", string(token.Kind)).
			Wrap(err)
	}
	return nil
}

// GetActive retrieves a non-revoked token by exact string and kind.
func (r *TokenRepository) GetActive(ctx context.Context, token string, kind auth.TokenKind) (*auth.IssuedToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, token, kind, account_id, expires_at, revoked, created_at
		FROM tokens
		WHERE token = $1 AND kind = $2 AND revoked = FALSE
	`, token, string(kind))

	var (
		idStr        string
		tokenStr     string
		kindStr      string
		accountIDStr string
		issued       auth.IssuedToken
	)
	err := row.Scan(&idStr, &tokenStr, &kindStr, &accountIDStr, &issued.ExpiresAt, &issued.Revoked, &issued.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").
			With("kind", string(kind)).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TOKEN_GET_FAILED").
			With("operation", "get active token").
			With("kind", string(kind)).
			Wrap(err)
	}

	issued.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	issued.AccountID, err = ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_ACCOUNT_ID").
			With("account_id", accountIDStr).
			Wrap(err)
	}
	issued.Token = tokenStr
	issued.Kind = auth.TokenKind(kindStr)
	return &issued, nil
}

// Revoke flags a single token row.
func (r *TokenRepository) Revoke(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `
		UPDATE tokens SET revoked = TRUE WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("TOKEN_REVOKE_FAILED").
			With("operation", "revoke token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("TOKEN_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// RevokeAllForAccount flags every live token of the account and returns
// how many rows were flagged.
func (r *TokenRepository) RevokeAllForAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	result, err := r.db.Exec(ctx, `
		UPDATE tokens SET revoked = TRUE WHERE account_id = $1 AND revoked = FALSE
	`, accountID.String())
	if err != nil {
		return 0, oops.Code("TOKEN_REVOKE_ALL_FAILED").
			With("operation", "revoke account tokens").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.TokenRepository = (*TokenRepository)(nil)
