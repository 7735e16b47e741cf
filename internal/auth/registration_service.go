// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fatecmeets/fatecmeets/internal/observability"
)

// Registration carries the input of one Register call. Kind selects the
// variant; Name and RA are required for Student and Academic, Nickname for
// Academic only. ImageBase64 is optional profile image data.
type Registration struct {
	Email           string
	Password        string
	ConfirmPassword string
	Kind            ProfileKind
	Name            string
	RA              string
	Nickname        string
	ImageBase64     string
}

// Transactor runs a function inside a single storage transaction.
// Repository writes made through the callback's context commit or roll
// back together.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RegistrationService drives the account verification state machine:
// account creation, email verification and verification resend.
type RegistrationService struct {
	tx        Transactor
	accounts  AccountRepository
	profiles  ProfileRepository
	nicknames NicknameRepository
	hasher    PasswordHasher
	mailer    CodeMailer
	logger    *slog.Logger
	now       func() time.Time
}

// NewRegistrationService creates a RegistrationService.
func NewRegistrationService(
	tx Transactor,
	accounts AccountRepository,
	profiles ProfileRepository,
	nicknames NicknameRepository,
	hasher PasswordHasher,
	mailer CodeMailer,
) (*RegistrationService, error) {
	return NewRegistrationServiceWithLogger(tx, accounts, profiles, nicknames, hasher, mailer, slog.Default())
}

// NewRegistrationServiceWithLogger creates a RegistrationService with an
// explicit logger.
func NewRegistrationServiceWithLogger(
	tx Transactor,
	accounts AccountRepository,
	profiles ProfileRepository,
	nicknames NicknameRepository,
	hasher PasswordHasher,
	mailer CodeMailer,
	logger *slog.Logger,
) (*RegistrationService, error) {
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if profiles == nil {
		return nil, oops.Errorf("profiles repository is required")
	}
	if nicknames == nil {
		return nil, oops.Errorf("nicknames repository is required")
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
	return &RegistrationService{
		tx:        tx,
		accounts:  accounts,
		profiles:  profiles,
		nicknames: nicknames,
		hasher:    hasher,
		mailer:    mailer,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Register creates an inactive account with a fresh verification code,
// provisions role and nickname records per the variant, and dispatches the
// code. The writes happen in one transaction: a failed step leaves no
// partial rows behind. The account becomes usable only after VerifyEmail.
func (s *RegistrationService) Register(ctx context.Context, reg Registration) (*Account, error) {
	email := NormalizeEmail(reg.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if reg.Password == "" {
		return nil, oops.Code(CodeInvalidInput).Errorf("a password is required")
	}
	if reg.Password != reg.ConfirmPassword {
		return nil, oops.Code(CodeInvalidInput).Errorf("passwords do not match")
	}

	var nickname string
	switch reg.Kind {
	case ProfileNone, "":
		nickname = NicknameBase("", email)
	case ProfileStudent:
		if strings.TrimSpace(reg.Name) == "" || strings.TrimSpace(reg.RA) == "" {
			return nil, oops.Code(CodeInvalidInput).Errorf("name and RA are required")
		}
		nickname = NicknameBase(reg.Name, email)
	case ProfileAcademic:
		if strings.TrimSpace(reg.Name) == "" || strings.TrimSpace(reg.RA) == "" {
			return nil, oops.Code(CodeInvalidInput).Errorf("name and RA are required")
		}
		var err error
		nickname, err = ValidateNickname(reg.Nickname)
		if err != nil {
			return nil, err
		}
	default:
		return nil, oops.Code(CodeInvalidInput).
			With("kind", string(reg.Kind)).
			Errorf("unknown profile kind")
	}

	if reg.Kind == ProfileStudent || reg.Kind == ProfileAcademic {
		taken, err := s.profiles.RAExists(ctx, reg.RA)
		if err != nil {
			return nil, oops.Code("REGISTER_FAILED").With("operation", "RAExists").Wrap(err)
		}
		if taken {
			return nil, oops.Code(CodeConflict).Errorf("RA already registered")
		}
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "Hash").Wrap(err)
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "GenerateCode").Wrap(err)
	}

	now := s.now()
	account := &Account{
		ID:               ulid.Make(),
		Email:            email,
		PasswordHash:     hash,
		Status:           StatusInactive,
		VerificationCode: &code,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if strings.TrimSpace(reg.ImageBase64) != "" {
		img := fmt.Sprintf(`{"base64":%q}`, strings.ReplaceAll(reg.ImageBase64, `"`, ""))
		account.ImageJSON = &img
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, account); err != nil {
			if errors.Is(err, ErrDuplicate) {
				return oops.Code(CodeConflict).Errorf("email already registered")
			}
			return oops.Code("REGISTER_FAILED").With("operation", "Create").Wrap(err)
		}

		var err error
		switch reg.Kind {
		case ProfileStudent:
			err = s.profiles.CreateStudent(ctx, account.ID, reg.Name, reg.RA)
		case ProfileAcademic:
			err = s.profiles.CreateAcademic(ctx, account.ID, reg.Name, reg.RA)
		}
		if err != nil {
			if errors.Is(err, ErrDuplicate) {
				return oops.Code(CodeConflict).Errorf("RA already registered")
			}
			return oops.Code("REGISTER_FAILED").With("operation", "create profile").Wrap(err)
		}

		if reg.Kind == ProfileAcademic {
			// Explicit nicknames are not suffixed; a collision is the caller's
			// problem to resolve.
			if err := s.nicknames.Create(ctx, account.ID, nickname); err != nil {
				if errors.Is(err, ErrDuplicate) {
					return oops.Code(CodeConflict).Errorf("nickname already in use")
				}
				return oops.Code("REGISTER_FAILED").With("operation", "create nickname").Wrap(err)
			}
			return nil
		}
		return s.reserveNickname(ctx, account.ID, nickname)
	})
	if err != nil {
		return nil, err
	}

	s.sendVerification(account.Email, code)
	observability.RecordCodeDispatched("verification")

	s.logger.Info("account registered",
		"account_id", account.ID.String(),
		"kind", string(reg.Kind),
	)
	return account, nil
}

// reserveNickname inserts base, base1, base2, ... until the store accepts
// one, relying on the uniqueness constraint rather than a pre-check. The
// probe is bounded.
func (s *RegistrationService) reserveNickname(ctx context.Context, accountID ulid.ULID, base string) error {
	for i := 0; i < maxNicknameAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s%d", base, i)
		}
		err := s.nicknames.Create(ctx, accountID, candidate)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return oops.Code("REGISTER_FAILED").With("operation", "create nickname").Wrap(err)
		}
	}
	return oops.Code(CodeConflict).
		With("base", base).
		Errorf("could not reserve a nickname")
}

// VerifyEmail transitions an inactive account to active when the submitted
// code matches the one issued at registration. Verifying an already-active
// account is a no-op success.
func (s *RegistrationService) VerifyEmail(ctx context.Context, email, code string) error {
	account, err := s.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotFound).Errorf("account not found")
		}
		return oops.Code("VERIFY_EMAIL_FAILED").With("operation", "GetByEmail").Wrap(err)
	}

	if account.IsActive() {
		return nil
	}
	if account.VerificationCode == nil || !CodesEqual(*account.VerificationCode, code) {
		return oops.Code(CodeInvalidInput).Errorf("verification code invalid")
	}

	account.Activate(s.now())
	if err := s.accounts.Update(ctx, account); err != nil {
		return oops.Code("VERIFY_EMAIL_FAILED").With("operation", "Update").Wrap(err)
	}

	s.logger.Info("account activated", "account_id", account.ID.String())
	return nil
}

// ResendVerification replaces the outstanding verification code with a new
// one and redispatches it. No-op success when the account is already active.
func (s *RegistrationService) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotFound).Errorf("account not found")
		}
		return oops.Code("RESEND_VERIFICATION_FAILED").With("operation", "GetByEmail").Wrap(err)
	}

	if account.IsActive() {
		return nil
	}

	code, err := GenerateCode()
	if err != nil {
		return oops.Code("RESEND_VERIFICATION_FAILED").With("operation", "GenerateCode").Wrap(err)
	}
	account.VerificationCode = &code
	account.UpdatedAt = s.now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return oops.Code("RESEND_VERIFICATION_FAILED").With("operation", "Update").Wrap(err)
	}

	s.sendVerification(account.Email, code)
	observability.RecordCodeDispatched("verification")
	return nil
}

// Me returns the account behind an id. It backs profile display once a
// bearer token has been resolved to an account id.
func (s *RegistrationService) Me(ctx context.Context, accountID ulid.ULID) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeNotFound).Errorf("account not found")
		}
		return nil, oops.Code("ME_FAILED").With("operation", "GetByID").Wrap(err)
	}
	return account, nil
}

// Roles returns the role names whose tables contain the account.
func (s *RegistrationService) Roles(ctx context.Context, accountID ulid.ULID) ([]string, error) {
	var roles []string
	for _, role := range []string{RoleAdministrator, RoleStudent, RoleAcademic} {
		ok, err := s.profiles.HasRole(ctx, accountID, role)
		if err != nil {
			return nil, oops.Code("ROLES_FAILED").With("role", role).Wrap(err)
		}
		if ok {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (s *RegistrationService) sendVerification(email, code string) {
	dispatch(s.logger, email, "verification", func(ctx context.Context) error {
		return s.mailer.SendVerificationCode(ctx, email, code)
	})
}
