// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fatecmeets/fatecmeets/internal/auth"
	"github.com/fatecmeets/fatecmeets/pkg/errutil"
)

func newTokenService(t *testing.T) (*auth.TokenService, *mockTokenRepository) {
	t.Helper()
	repo := new(mockTokenRepository)
	svc, err := auth.NewTokenService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestTokenService_IssuePair(t *testing.T) {
	ctx := context.Background()
	accountID := ulid.Make()

	t.Run("mints an access and a refresh row", func(t *testing.T) {
		svc, repo := newTokenService(t)

		var rows []*auth.IssuedToken
		repo.On("Create", mock.Anything, mock.AnythingOfType("*auth.IssuedToken")).
			Run(func(args mock.Arguments) { rows = append(rows, args.Get(1).(*auth.IssuedToken)) }).
			Return(nil)

		pair, err := svc.IssuePair(ctx, accountID, false)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		access, refresh := rows[0], rows[1]
		assert.Equal(t, auth.TokenAccess, access.Kind)
		assert.Equal(t, auth.TokenRefresh, refresh.Kind)
		assert.Equal(t, accountID, access.AccountID)
		assert.Equal(t, accountID, refresh.AccountID)

		// Opaque uppercase hex: 16 random bytes for access, 32 for refresh.
		assert.Len(t, pair.AccessToken, auth.AccessTokenBytes*2)
		assert.Len(t, pair.RefreshToken, auth.RefreshTokenBytes*2)
		assert.Equal(t, pair.AccessToken, access.Token)
		assert.Equal(t, pair.RefreshToken, refresh.Token)
		for _, r := range pair.AccessToken + pair.RefreshToken {
			assert.Contains(t, "0123456789ABCDEF", string(r))
		}

		assert.Equal(t, auth.AccessTokenExpiry, access.ExpiresAt.Sub(access.CreatedAt))
		assert.Equal(t, auth.RefreshTokenExpiry, refresh.ExpiresAt.Sub(refresh.CreatedAt))
	})

	t.Run("long-lived pair stretches only the refresh token", func(t *testing.T) {
		svc, repo := newTokenService(t)

		var rows []*auth.IssuedToken
		repo.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { rows = append(rows, args.Get(1).(*auth.IssuedToken)) }).
			Return(nil)

		_, err := svc.IssuePair(ctx, accountID, true)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, auth.AccessTokenExpiry, rows[0].ExpiresAt.Sub(rows[0].CreatedAt))
		assert.Equal(t, auth.RefreshTokenExpiryLong, rows[1].ExpiresAt.Sub(rows[1].CreatedAt))
	})

	t.Run("persistence failure surfaces", func(t *testing.T) {
		svc, repo := newTokenService(t)
		repo.On("Create", mock.Anything, mock.Anything).Return(auth.ErrDuplicate)

		_, err := svc.IssuePair(ctx, accountID, false)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "TOKEN_MINT_FAILED")
	})
}

func TestTokenService_RotateAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("empty refresh token is unauthorized", func(t *testing.T) {
		svc, _ := newTokenService(t)
		_, err := svc.RotateAccess(ctx, "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("unknown refresh token is unauthorized", func(t *testing.T) {
		svc, repo := newTokenService(t)
		repo.On("GetActive", mock.Anything, "DEADBEEF", auth.TokenRefresh).Return(nil, auth.ErrNotFound)

		_, err := svc.RotateAccess(ctx, "DEADBEEF")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("expired refresh token is revoked on sight", func(t *testing.T) {
		svc, repo := newTokenService(t)
		row := &auth.IssuedToken{
			ID:        ulid.Make(),
			Token:     "DEADBEEF",
			Kind:      auth.TokenRefresh,
			AccountID: ulid.Make(),
			ExpiresAt: time.Now().Add(-time.Minute),
			CreatedAt: time.Now().Add(-8 * 24 * time.Hour),
		}
		repo.On("GetActive", mock.Anything, "DEADBEEF", auth.TokenRefresh).Return(row, nil)
		repo.On("Revoke", mock.Anything, row.ID).Return(nil)

		_, err := svc.RotateAccess(ctx, "DEADBEEF")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
		repo.AssertCalled(t, "Revoke", mock.Anything, row.ID)
	})

	t.Run("live refresh token mints a fresh access token", func(t *testing.T) {
		svc, repo := newTokenService(t)
		accountID := ulid.Make()
		row := &auth.IssuedToken{
			ID:        ulid.Make(),
			Token:     "DEADBEEF",
			Kind:      auth.TokenRefresh,
			AccountID: accountID,
			ExpiresAt: time.Now().Add(24 * time.Hour),
			CreatedAt: time.Now().Add(-24 * time.Hour),
		}
		repo.On("GetActive", mock.Anything, "DEADBEEF", auth.TokenRefresh).Return(row, nil)

		var minted *auth.IssuedToken
		repo.On("Create", mock.Anything, mock.AnythingOfType("*auth.IssuedToken")).
			Run(func(args mock.Arguments) { minted = args.Get(1).(*auth.IssuedToken) }).
			Return(nil)

		access, err := svc.RotateAccess(ctx, "DEADBEEF")
		require.NoError(t, err)
		require.NotNil(t, minted)
		assert.Equal(t, auth.TokenAccess, minted.Kind)
		assert.Equal(t, accountID, minted.AccountID)
		assert.Equal(t, minted.Token, access)
		assert.Len(t, access, auth.AccessTokenBytes*2)
	})
}

func TestTokenService_RevokeRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token is a no-op", func(t *testing.T) {
		svc, repo := newTokenService(t)
		require.NoError(t, svc.RevokeRefresh(ctx, ""))
		repo.AssertNotCalled(t, "GetActive", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown token is a no-op", func(t *testing.T) {
		svc, repo := newTokenService(t)
		repo.On("GetActive", mock.Anything, "DEADBEEF", auth.TokenRefresh).Return(nil, auth.ErrNotFound)

		require.NoError(t, svc.RevokeRefresh(ctx, "DEADBEEF"))
		repo.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})

	t.Run("live token is flagged", func(t *testing.T) {
		svc, repo := newTokenService(t)
		row := &auth.IssuedToken{
			ID:        ulid.Make(),
			Token:     "DEADBEEF",
			Kind:      auth.TokenRefresh,
			AccountID: ulid.Make(),
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}
		repo.On("GetActive", mock.Anything, "DEADBEEF", auth.TokenRefresh).Return(row, nil)
		repo.On("Revoke", mock.Anything, row.ID).Return(nil)

		require.NoError(t, svc.RevokeRefresh(ctx, "DEADBEEF"))
		repo.AssertExpectations(t)
	})
}

func TestTokenService_ResolveAccountID(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-bearer headers", func(t *testing.T) {
		svc, _ := newTokenService(t)
		for _, header := range []string{"", "Basic abc", "bearer lowercase", "Bearer "} {
			_, err := svc.ResolveAccountID(ctx, header)
			require.Error(t, err, "header %q", header)
			errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
		}
	})

	t.Run("unknown token is unauthorized", func(t *testing.T) {
		svc, repo := newTokenService(t)
		repo.On("GetActive", mock.Anything, "DEADBEEF", auth.TokenAccess).Return(nil, auth.ErrNotFound)

		_, err := svc.ResolveAccountID(ctx, "Bearer DEADBEEF")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		svc, repo := newTokenService(t)
		row := &auth.IssuedToken{
			ID:        ulid.Make(),
			Token:     "DEADBEEF",
			Kind:      auth.TokenAccess,
			AccountID: ulid.Make(),
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		repo.On("GetActive", mock.Anything, "DEADBEEF", auth.TokenAccess).Return(row, nil)

		_, err := svc.ResolveAccountID(ctx, "Bearer DEADBEEF")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeUnauthorized)
	})

	t.Run("live token resolves to its account", func(t *testing.T) {
		svc, repo := newTokenService(t)
		accountID := ulid.Make()
		row := &auth.IssuedToken{
			ID:        ulid.Make(),
			Token:     "DEADBEEF",
			Kind:      auth.TokenAccess,
			AccountID: accountID,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		}
		repo.On("GetActive", mock.Anything, "DEADBEEF", auth.TokenAccess).Return(row, nil)

		got, err := svc.ResolveAccountID(ctx, "Bearer DEADBEEF")
		require.NoError(t, err)
		assert.Equal(t, accountID, got)
	})
}
