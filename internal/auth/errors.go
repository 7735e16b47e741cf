// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Error taxonomy codes. Every failure leaving this package carries exactly
// one of these as its oops code.
const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimited  = "RATE_LIMITED"
)

// ErrNotFound is returned by repositories when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by repositories when an insert violates a
// uniqueness constraint (email, RA, nickname, token string).
var ErrDuplicate = errors.New("duplicate key")

// ErrStale is returned by ChallengeRepository.Put when the stored row's
// version no longer matches the one the caller read.
var ErrStale = errors.New("stale challenge version")

// retryAfterKey is the oops context key carrying the rate-limit wait.
const retryAfterKey = "retry_after_seconds"

// RetryAfterSeconds extracts the remaining rate-limit wait from a
// RATE_LIMITED error. Returns (0, false) for any other error.
func RetryAfterSeconds(err error) (int64, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok || oopsErr.Code() != CodeRateLimited {
		return 0, false
	}
	secs, ok := oopsErr.Context()[retryAfterKey].(int64)
	if !ok {
		return 0, false
	}
	return secs, true
}

// ErrorCode returns the taxonomy code of an error produced by this package,
// or "" if the error carries none.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}
