// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth

import (
	"context"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ProfileKind selects the registration variant.
type ProfileKind string

// Registration variants. Student and Academic carry a name and an RA
// (institutional registration number); Academic additionally carries an
// explicit nickname.
const (
	ProfileNone     ProfileKind = "none"
	ProfileStudent  ProfileKind = "student"
	ProfileAcademic ProfileKind = "academic"
)

// Role names reported by Roles, matching the role tables.
const (
	RoleAdministrator = "administrador"
	RoleStudent       = "aluno"
	RoleAcademic      = "academico"
)

// maxNicknameAttempts bounds the suffix probe so adversarial concurrency
// cannot spin the loop forever.
const maxNicknameAttempts = 50

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// NicknameBase derives the suffixable gamification nickname base for a
// registration: the account holder's name slugged to hyphenated lowercase,
// falling back to the email local part when the name yields nothing.
func NicknameBase(name, email string) string {
	base := strings.TrimSpace(nonAlnum.ReplaceAllString(name, " "))
	base = strings.ToLower(strings.ReplaceAll(base, " ", "-"))
	if base == "" {
		base = strings.ToLower(nonAlnum.ReplaceAllString(EmailLocalPart(email), ""))
	}
	return base
}

// ValidateNickname checks an explicitly chosen nickname: it must start
// with @, contain no spaces and be at least 3 characters. Returns the
// lowercased form.
func ValidateNickname(nick string) (string, error) {
	nick = strings.TrimSpace(nick)
	if nick == "" {
		return "", oops.Code(CodeInvalidInput).Errorf("nickname is required")
	}
	if !strings.HasPrefix(nick, "@") {
		return "", oops.Code(CodeInvalidInput).Errorf("nickname must start with @")
	}
	if strings.Contains(nick, " ") {
		return "", oops.Code(CodeInvalidInput).Errorf("nickname cannot contain spaces")
	}
	if len(nick) < 3 {
		return "", oops.Code(CodeInvalidInput).Errorf("nickname must be at least 3 characters")
	}
	return strings.ToLower(nick), nil
}

// ProfileRepository manages the role records attached to accounts.
type ProfileRepository interface {
	// CreateStudent stores an aluno record. Returns ErrDuplicate (wrapped)
	// when the RA is taken.
	CreateStudent(ctx context.Context, accountID ulid.ULID, name, ra string) error

	// CreateAcademic stores an academico record. Returns ErrDuplicate
	// (wrapped) when the RA is taken.
	CreateAcademic(ctx context.Context, accountID ulid.ULID, name, ra string) error

	// RAExists reports whether the RA has been reserved by any role.
	RAExists(ctx context.Context, ra string) (bool, error)

	// HasRole reports whether the account appears in the named role table.
	HasRole(ctx context.Context, accountID ulid.ULID, role string) (bool, error)
}

// NicknameRepository reserves gamification nicknames. Uniqueness is
// enforced by the store; callers retry with the next candidate on
// ErrDuplicate rather than pre-checking.
type NicknameRepository interface {
	Create(ctx context.Context, accountID ulid.ULID, nickname string) error
}
