// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth_test

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/fatecmeets/fatecmeets/internal/auth"
)

// txSpy is an auth.Transactor that runs fn directly, recording how many
// transactions were opened.
type txSpy struct {
	calls int
}

func (s *txSpy) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.calls++
	return fn(ctx)
}

// mockAccountRepository is a mock for auth.AccountRepository.
type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *mockAccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *mockAccountRepository) Update(ctx context.Context, account *auth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// mockChallengeRepository is a mock for auth.ChallengeRepository.
type mockChallengeRepository struct {
	mock.Mock
}

func (m *mockChallengeRepository) Get(ctx context.Context, accountID ulid.ULID) (*auth.LoginChallenge, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.LoginChallenge), args.Error(1)
}

func (m *mockChallengeRepository) Put(ctx context.Context, challenge *auth.LoginChallenge) error {
	args := m.Called(ctx, challenge)
	return args.Error(0)
}

func (m *mockChallengeRepository) IncrementAttempts(ctx context.Context, accountID ulid.ULID) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *mockChallengeRepository) Clear(ctx context.Context, accountID ulid.ULID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

// mockTokenRepository is a mock for auth.TokenRepository.
type mockTokenRepository struct {
	mock.Mock
}

func (m *mockTokenRepository) Create(ctx context.Context, token *auth.IssuedToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockTokenRepository) GetActive(ctx context.Context, token string, kind auth.TokenKind) (*auth.IssuedToken, error) {
	args := m.Called(ctx, token, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.IssuedToken), args.Error(1)
}

func (m *mockTokenRepository) Revoke(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockTokenRepository) RevokeAllForAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

// mockProfileRepository is a mock for auth.ProfileRepository.
type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) CreateStudent(ctx context.Context, accountID ulid.ULID, name, ra string) error {
	args := m.Called(ctx, accountID, name, ra)
	return args.Error(0)
}

func (m *mockProfileRepository) CreateAcademic(ctx context.Context, accountID ulid.ULID, name, ra string) error {
	args := m.Called(ctx, accountID, name, ra)
	return args.Error(0)
}

func (m *mockProfileRepository) RAExists(ctx context.Context, ra string) (bool, error) {
	args := m.Called(ctx, ra)
	return args.Bool(0), args.Error(1)
}

func (m *mockProfileRepository) HasRole(ctx context.Context, accountID ulid.ULID, role string) (bool, error) {
	args := m.Called(ctx, accountID, role)
	return args.Bool(0), args.Error(1)
}

// mockNicknameRepository is a mock for auth.NicknameRepository.
type mockNicknameRepository struct {
	mock.Mock
}

func (m *mockNicknameRepository) Create(ctx context.Context, accountID ulid.ULID, nickname string) error {
	args := m.Called(ctx, accountID, nickname)
	return args.Error(0)
}

// mockPasswordHasher is a mock for auth.PasswordHasher.
type mockPasswordHasher struct {
	mock.Mock
}

func (m *mockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockPasswordHasher) Verify(password, encoded string) (bool, error) {
	args := m.Called(password, encoded)
	return args.Bool(0), args.Error(1)
}

// mockCodeMailer is a mock for auth.CodeMailer. Deliveries happen on their
// own goroutines, so expectations on it are usually Maybe().
type mockCodeMailer struct {
	mock.Mock
}

func (m *mockCodeMailer) SendVerificationCode(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

func (m *mockCodeMailer) SendLoginCode(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}
