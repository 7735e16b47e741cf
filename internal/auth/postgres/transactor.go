// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/fatecmeets/fatecmeets/internal/auth"
)

// TxDB adds transaction start to DB. pgxpool.Pool satisfies it, and so
// does pgxmock in the unit tests.
type TxDB interface {
	DB
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Transactor implements auth.Transactor. It stores the active pgx.Tx in
// context so that transaction-aware repository writes participate in the
// same transaction.
type Transactor struct {
	db TxDB
}

// NewTransactor creates a Transactor backed by the given connection pool.
func NewTransactor(db TxDB) *Transactor {
	return &Transactor{db: db}
}

// InTransaction begins a transaction, stores it in context, and calls fn.
// If fn returns nil, the transaction is committed. Otherwise it is rolled back.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

type txKey struct{}

// dbFrom returns the transaction stored by InTransaction, or fallback when
// none is active.
func dbFrom(ctx context.Context, fallback DB) DB {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}

// Compile-time interface check.
var _ auth.Transactor = (*Transactor)(nil)
