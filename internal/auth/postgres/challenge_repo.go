// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fatecmeets/fatecmeets/internal/auth"
)

// ChallengeRepository implements auth.ChallengeRepository using PostgreSQL.
// Each account has at most one login_challenges row; the version column
// makes Put a compare-and-swap.
type ChallengeRepository struct {
	db DB
}

// NewChallengeRepository creates a new ChallengeRepository.
func NewChallengeRepository(db DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Get retrieves the challenge row for an account.
func (r *ChallengeRepository) Get(ctx context.Context, accountID ulid.ULID) (*auth.LoginChallenge, error) {
	row := r.db.QueryRow(ctx, `
		SELECT account_id, code, expires_at, attempts, last_sent_at, version
		FROM login_challenges
		WHERE account_id = $1
	`, accountID.String())

	var (
		idStr      string
		code       *string
		expiresAt  *time.Time
		attempts   int
		lastSentAt *time.Time
		version    int64
	)
	err := row.Scan(&idStr, &code, &expiresAt, &attempts, &lastSentAt, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CHALLENGE_NOT_FOUND").
			With("account_id", accountID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CHALLENGE_GET_FAILED").
			With("operation", "get login challenge").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("CHALLENGE_INVALID_ID").
			With("account_id", idStr).
			Wrap(err)
	}

	return &auth.LoginChallenge{
		AccountID:  id,
		Code:       code,
		ExpiresAt:  expiresAt,
		Attempts:   attempts,
		LastSentAt: lastSentAt,
		Version:    version,
	}, nil
}

// Put upserts the challenge row guarded by challenge.Version. The insert
// path covers a first-ever request (Version 0, no row); the update path
// only fires when the stored version still matches.
func (r *ChallengeRepository) Put(ctx context.Context, challenge *auth.LoginChallenge) error {
	result, err := r.db.Exec(ctx, `
		INSERT INTO login_challenges (account_id, code, expires_at, attempts, last_sent_at, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (account_id) DO UPDATE
		SET code = EXCLUDED.code,
		    expires_at = EXCLUDED.expires_at,
		    attempts = EXCLUDED.attempts,
		    last_sent_at = EXCLUDED.last_sent_at,
		    version = login_challenges.version + 1
		WHERE login_challenges.version = $6
	`,
		challenge.AccountID.String(),
		challenge.Code,
		challenge.ExpiresAt,
		challenge.Attempts,
		challenge.LastSentAt,
		challenge.Version,
	)
	if err != nil {
		// A concurrent first-ever Put for the same account hits the
		// primary key before ON CONFLICT can arbitrate the version.
		if isUniqueViolation(err) {
			return oops.Code("CHALLENGE_STALE").
				With("account_id", challenge.AccountID.String()).
				Wrap(auth.ErrStale)
		}
		return oops.Code("CHALLENGE_PUT_FAILED").
			With("operation", "upsert login challenge").
			With("account_id", challenge.AccountID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CHALLENGE_STALE").
			With("account_id", challenge.AccountID.String()).
			With("version", challenge.Version).
			Wrap(auth.ErrStale)
	}
	return nil
}

// IncrementAttempts bumps the attempt counter in a single statement and
// returns the new value.
func (r *ChallengeRepository) IncrementAttempts(ctx context.Context, accountID ulid.ULID) (int, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE login_challenges
		SET attempts = attempts + 1, version = version + 1
		WHERE account_id = $1
		RETURNING attempts
	`, accountID.String())

	var attempts int
	err := row.Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code("CHALLENGE_NOT_FOUND").
			With("account_id", accountID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return 0, oops.Code("CHALLENGE_INCREMENT_FAILED").
			With("operation", "increment login attempts").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return attempts, nil
}

// Clear resets the code slot after a successful verification. The row and
// its last_sent_at survive so the send-interval guard keeps working.
func (r *ChallengeRepository) Clear(ctx context.Context, accountID ulid.ULID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE login_challenges
		SET code = NULL, expires_at = NULL, attempts = 0, version = version + 1
		WHERE account_id = $1
	`, accountID.String())
	if err != nil {
		return oops.Code("CHALLENGE_CLEAR_FAILED").
			With("operation", "clear login challenge").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.ChallengeRepository = (*ChallengeRepository)(nil)
