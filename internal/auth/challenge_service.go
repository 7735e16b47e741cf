// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/fatecmeets/fatecmeets/internal/observability"
)

// Retry policy for the optimistic-version cycle on the challenge row. Two
// requests racing on one account resolve within a hop or two; anything
// beyond that is a persistent conflict worth surfacing.
const (
	challengeRetryAttempts = 3
	challengeRetryBackoff  = 10 * time.Millisecond
)

// ChallengeService is the login challenge engine: password-gated issuing of
// one-time login codes and their verification into session token pairs.
type ChallengeService struct {
	accounts   AccountRepository
	challenges ChallengeRepository
	tokens     *TokenService
	hasher     PasswordHasher
	mailer     CodeMailer
	logger     *slog.Logger
	now        func() time.Time
}

// NewChallengeService creates a ChallengeService.
func NewChallengeService(
	accounts AccountRepository,
	challenges ChallengeRepository,
	tokens *TokenService,
	hasher PasswordHasher,
	mailer CodeMailer,
) (*ChallengeService, error) {
	return NewChallengeServiceWithLogger(accounts, challenges, tokens, hasher, mailer, slog.Default())
}

// NewChallengeServiceWithLogger creates a ChallengeService with an explicit
// logger.
func NewChallengeServiceWithLogger(
	accounts AccountRepository,
	challenges ChallengeRepository,
	tokens *TokenService,
	hasher PasswordHasher,
	mailer CodeMailer,
	logger *slog.Logger,
) (*ChallengeService, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if challenges == nil {
		return nil, oops.Errorf("challenges repository is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("code mailer is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &ChallengeService{
		accounts:   accounts,
		challenges: challenges,
		tokens:     tokens,
		hasher:     hasher,
		mailer:     mailer,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// authenticate resolves email+password to an active account. Unknown email
// and wrong password produce the same UNAUTHORIZED error, and the password
// is verified against a dummy hash for unknown accounts so timing does not
// leak existence. An unverified account yields FORBIDDEN.
func (s *ChallengeService) authenticate(ctx context.Context, email, password string) (*Account, error) {
	if email == "" || password == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("email and password are required")
	}

	account, lookupErr := s.accounts.GetByEmail(ctx, NormalizeEmail(email))

	targetHash := dummyPasswordHash
	exists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTHENTICATE_FAILED").With("operation", "GetByEmail").Wrap(lookupErr)
		}
	} else {
		targetHash = account.PasswordHash
		exists = true
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil && exists {
		return nil, oops.Code("AUTHENTICATE_FAILED").With("operation", "Verify").Wrap(verifyErr)
	}
	if !exists || !valid {
		return nil, oops.Code(CodeUnauthorized).Errorf("invalid credentials")
	}

	if !account.IsActive() {
		return nil, oops.Code(CodeForbidden).Errorf("account not verified")
	}
	return account, nil
}

// RequestLoginToken authenticates the caller and dispatches a one-time
// login code. Within LoginCodeSendInterval of the previous dispatch the
// call fails RATE_LIMITED carrying the remaining wait in whole seconds.
// An outstanding valid code is re-sent rather than replaced, so a slow
// email does not invalidate itself; a missing, expired or exhausted code
// is replaced by a fresh one. Either way the send timestamp is refreshed.
// Returns the instant the (new or reused) code expires.
func (s *ChallengeService) RequestLoginToken(ctx context.Context, email, password string) (time.Time, error) {
	account, err := s.authenticate(ctx, email, password)
	if err != nil {
		return time.Time{}, err
	}

	var expiresAt time.Time
	backoff := retry.WithMaxRetries(challengeRetryAttempts, retry.NewConstant(challengeRetryBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		challenge, err := s.challenges.Get(ctx, account.ID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return oops.Code("REQUEST_LOGIN_TOKEN_FAILED").With("operation", "Get").Wrap(err)
			}
			challenge = &LoginChallenge{AccountID: account.ID}
		}

		now := s.now()
		if challenge.SentWithin(LoginCodeSendInterval, now) {
			remaining := LoginCodeSendInterval - now.Sub(*challenge.LastSentAt)
			secs := int64((remaining + time.Second - 1) / time.Second)
			observability.RecordRateLimitRejection()
			return oops.Code(CodeRateLimited).
				With(retryAfterKey, secs).
				Errorf("wait before requesting a new login code")
		}

		if !challenge.Outstanding(now) || challenge.Exhausted() {
			code, err := GenerateCode()
			if err != nil {
				return oops.Code("REQUEST_LOGIN_TOKEN_FAILED").With("operation", "GenerateCode").Wrap(err)
			}
			expiry := now.Add(LoginCodeExpiry)
			challenge.Code = &code
			challenge.ExpiresAt = &expiry
			challenge.Attempts = 0
		}
		challenge.LastSentAt = &now

		if err := s.challenges.Put(ctx, challenge); err != nil {
			if errors.Is(err, ErrStale) {
				return retry.RetryableError(err)
			}
			return oops.Code("REQUEST_LOGIN_TOKEN_FAILED").With("operation", "Put").Wrap(err)
		}

		expiresAt = *challenge.ExpiresAt
		s.sendLoginCode(account.Email, *challenge.Code)
		observability.RecordCodeDispatched("login")
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStale) {
			return time.Time{}, oops.Code(CodeConflict).
				With("account_id", account.ID.String()).
				Errorf("concurrent login code requests, try again")
		}
		return time.Time{}, err
	}

	return expiresAt, nil
}

// VerifyLoginToken authenticates the caller and consumes the outstanding
// login code. The attempt counter is incremented atomically before the
// comparison, so the attempt that reaches the cap is itself counted and
// concurrent guesses cannot exceed it. On match the challenge is cleared,
// every live session token of the account is revoked, and a fresh
// access/refresh pair is issued.
func (s *ChallengeService) VerifyLoginToken(ctx context.Context, email, password, code string, longLived bool) (*TokenPair, error) {
	if code == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("login code is required")
	}
	account, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	challenge, err := s.challenges.Get(ctx, account.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUnauthorized).Errorf("login code expired or absent")
		}
		return nil, oops.Code("VERIFY_LOGIN_TOKEN_FAILED").With("operation", "Get").Wrap(err)
	}
	if !challenge.Outstanding(s.now()) {
		return nil, oops.Code(CodeUnauthorized).Errorf("login code expired or absent")
	}

	attempts, err := s.challenges.IncrementAttempts(ctx, account.ID)
	if err != nil {
		return nil, oops.Code("VERIFY_LOGIN_TOKEN_FAILED").With("operation", "IncrementAttempts").Wrap(err)
	}

	// Attempts past the cap fail before the comparison, so a correct guess
	// on a burned code buys nothing.
	if attempts > LoginCodeMaxAttempts {
		return nil, oops.Code(CodeUnauthorized).
			With("attempts", attempts).
			Errorf("login code invalid: attempt limit reached")
	}

	if !CodesEqual(*challenge.Code, code) {
		if attempts >= LoginCodeMaxAttempts {
			return nil, oops.Code(CodeUnauthorized).
				With("attempts", attempts).
				Errorf("login code invalid: attempt limit reached")
		}
		return nil, oops.Code(CodeUnauthorized).Errorf("login code invalid")
	}

	if err := s.challenges.Clear(ctx, account.ID); err != nil {
		return nil, oops.Code("VERIFY_LOGIN_TOKEN_FAILED").With("operation", "Clear").Wrap(err)
	}

	// Old session dies before the new one is born: the fresh pair is issued
	// strictly after revocation completes.
	if err := s.tokens.RevokeAllSessionTokens(ctx, account.ID); err != nil {
		return nil, err
	}
	pair, err := s.tokens.IssuePair(ctx, account.ID, longLived)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login completed", "account_id", account.ID.String())
	return pair, nil
}

func (s *ChallengeService) sendLoginCode(email, code string) {
	dispatch(s.logger, email, "login", func(ctx context.Context) error {
		return s.mailer.SendLoginCode(ctx, email, code)
	})
}
