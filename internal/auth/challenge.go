// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// Login challenge configuration.
const (
	// LoginCodeExpiry is how long a dispatched login code stays valid.
	LoginCodeExpiry = 10 * time.Minute

	// LoginCodeMaxAttempts is the number of verification attempts allowed
	// against one outstanding code.
	LoginCodeMaxAttempts = 5

	// LoginCodeSendInterval is the minimum gap between successive code
	// dispatches for one account.
	LoginCodeSendInterval = 30 * time.Second
)

// LoginChallenge is the single outstanding login code slot for an account.
// One row per account; Version guards the read-decide-write cycle in
// RequestLoginToken against concurrent minting.
//
// Invariant: Code and ExpiresAt are both nil or both set.
type LoginChallenge struct {
	AccountID  ulid.ULID
	Code       *string
	ExpiresAt  *time.Time
	Attempts   int
	LastSentAt *time.Time
	Version    int64
}

// Outstanding reports whether an unexpired code is on file at the given time.
func (c *LoginChallenge) Outstanding(now time.Time) bool {
	return c.Code != nil && c.ExpiresAt != nil && now.Before(*c.ExpiresAt)
}

// Exhausted reports whether the attempt counter reached the cap. Exhaustion
// does not expire the code by itself; RequestLoginToken mints a replacement
// on the next request.
func (c *LoginChallenge) Exhausted() bool {
	return c.Attempts >= LoginCodeMaxAttempts
}

// SentWithin reports whether a code was dispatched less than interval ago.
func (c *LoginChallenge) SentWithin(interval time.Duration, now time.Time) bool {
	return c.LastSentAt != nil && now.Sub(*c.LastSentAt) < interval
}

// ChallengeRepository manages the per-account login challenge row.
type ChallengeRepository interface {
	// Get retrieves the challenge row for an account.
	// Returns ErrNotFound (wrapped) when the account has never requested a
	// login code.
	Get(ctx context.Context, accountID ulid.ULID) (*LoginChallenge, error)

	// Put upserts the challenge row. The stored version must equal
	// challenge.Version (0 for a row that does not exist yet); on mismatch
	// Put returns ErrStale (wrapped) and writes nothing.
	Put(ctx context.Context, challenge *LoginChallenge) error

	// IncrementAttempts atomically bumps the attempt counter and returns
	// the new value. This is the only mutation VerifyLoginToken performs
	// before comparing, so concurrent guesses cannot slip past the cap.
	IncrementAttempts(ctx context.Context, accountID ulid.ULID) (int, error)

	// Clear resets code, expiry and attempts after a successful
	// verification. Idempotent.
	Clear(ctx context.Context, accountID ulid.ULID) error
}
