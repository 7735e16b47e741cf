// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth

import (
	"context"
	"log/slog"
	"time"
)

// mailDispatchTimeout bounds one outbound delivery attempt.
const mailDispatchTimeout = 30 * time.Second

// CodeMailer delivers one-time codes to an address. Implementations live
// outside this package (SMTP in internal/mail); the engine only ever
// dispatches fire-and-forget.
type CodeMailer interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendLoginCode(ctx context.Context, email, code string) error
}

// dispatch runs one delivery on its own goroutine with a fresh context, so
// mail-provider latency or failure never blocks or fails the calling
// operation. Failures are logged and dropped.
func dispatch(logger *slog.Logger, email, kind string, send func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailDispatchTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logger.Error("code delivery failed",
				"email", email,
				"kind", kind,
				"error", err,
			)
		}
	}()
}
