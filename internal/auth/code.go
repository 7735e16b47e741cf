// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/samber/oops"
)

// One-time code configuration. The alphabet drops I, O, 0 and 1 so codes
// survive being read over the phone or typed from a small screen.
const (
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6
)

// Opaque token sizes in bytes. Hex-encoded, so the access token is 32
// characters and the refresh token 64.
const (
	AccessTokenBytes  = 16
	RefreshTokenBytes = 32
)

// GenerateCode produces a CodeLength-character one-time code drawn
// uniformly from CodeAlphabet. Codes are compared case-insensitively.
func GenerateCode() (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)
	max := big.NewInt(int64(len(CodeAlphabet)))
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", oops.Code("CODE_GENERATE_FAILED").Wrap(err)
		}
		b.WriteByte(CodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// GenerateToken produces an uppercase hex token from n random bytes.
func GenerateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("TOKEN_GENERATE_FAILED").
			With("requested_bytes", n).
			Wrap(err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// CodesEqual compares two one-time codes case-insensitively.
func CodesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}
