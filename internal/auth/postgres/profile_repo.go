// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FatecMeets Contributors

package postgres

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/fatecmeets/fatecmeets/internal/auth"
)

// roleTables maps role names to the tables backing them. Membership in a
// table is what grants the role.
var roleTables = map[string]string{
	auth.RoleAdministrator: "administrators",
	auth.RoleStudent:       "students",
	auth.RoleAcademic:      "academics",
}

// ProfileRepository implements auth.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	db DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// reserveRA claims the RA in the shared reservation table. Its single
// unique index arbitrates across students and academics; the per-table
// indexes cannot see each other.
func reserveRA(ctx context.Context, db DB, accountID ulid.ULID, ra string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO ras (ra, account_id) VALUES ($1, $2)
	`, ra, accountID.String())
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("RA_DUPLICATE").
				With("ra", ra).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("RA_RESERVE_FAILED").
			With("operation", "insert ra").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

// CreateStudent claims the RA and stores an aluno record. Participates in
// an active transaction.
func (r *ProfileRepository) CreateStudent(ctx context.Context, accountID ulid.ULID, name, ra string) error {
	db := dbFrom(ctx, r.db)
	if err := reserveRA(ctx, db, accountID, ra); err != nil {
		return err
	}
	_, err := db.Exec(ctx, `
		INSERT INTO students (account_id, name, ra) VALUES ($1, $2, $3)
	`, accountID.String(), name, ra)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("STUDENT_DUPLICATE").
				With("ra", ra).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("STUDENT_CREATE_FAILED").
			With("operation", "insert student").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

// CreateAcademic claims the RA and stores an academico record.
// Participates in an active transaction.
func (r *ProfileRepository) CreateAcademic(ctx context.Context, accountID ulid.ULID, name, ra string) error {
	db := dbFrom(ctx, r.db)
	if err := reserveRA(ctx, db, accountID, ra); err != nil {
		return err
	}
	_, err := db.Exec(ctx, `
		INSERT INTO academics (account_id, name, ra) VALUES ($1, $2, $3)
	`, accountID.String(), name, ra)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("ACADEMIC_DUPLICATE").
				With("ra", ra).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("ACADEMIC_CREATE_FAILED").
			With("operation", "insert academic").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

// RAExists reports whether the RA has been reserved by any role.
func (r *ProfileRepository) RAExists(ctx context.Context, ra string) (bool, error) {
	row := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM ras WHERE ra = $1)
	`, ra)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, oops.Code("RA_LOOKUP_FAILED").
			With("operation", "check ra exists").
			Wrap(err)
	}
	return exists, nil
}

// HasRole reports whether the account appears in the named role table.
func (r *ProfileRepository) HasRole(ctx context.Context, accountID ulid.ULID, role string) (bool, error) {
	table, ok := roleTables[role]
	if !ok {
		return false, oops.Code("ROLE_UNKNOWN").
			With("role", role).
			Errorf("unknown role %q", role)
	}

	// Table name comes from the fixed roleTables map, never from input.
	row := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM `+table+` WHERE account_id = $1)
	`, accountID.String())

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, oops.Code("ROLE_LOOKUP_FAILED").
			With("operation", "check role membership").
			With("role", role).
			Wrap(err)
	}
	return exists, nil
}

// Compile-time interface check.
var _ auth.ProfileRepository = (*ProfileRepository)(nil)

// NicknameRepository implements auth.NicknameRepository using PostgreSQL.
type NicknameRepository struct {
	db DB
}

// NewNicknameRepository creates a new NicknameRepository.
func NewNicknameRepository(db DB) *NicknameRepository {
	return &NicknameRepository{db: db}
}

// Create reserves a nickname. The unique index on nickname arbitrates
// concurrent claims; losers get ErrDuplicate and try the next candidate.
// Participates in an active transaction.
func (r *NicknameRepository) Create(ctx context.Context, accountID ulid.ULID, nickname string) error {
	_, err := dbFrom(ctx, r.db).Exec(ctx, `
		INSERT INTO nicknames (account_id, nickname) VALUES ($1, $2)
	`, accountID.String(), nickname)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("NICKNAME_DUPLICATE").
				With("nickname", nickname).
				Wrap(auth.ErrDuplicate)
		}
		return oops.Code("NICKNAME_CREATE_FAILED").
			With("operation", "insert nickname").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.NicknameRepository = (*NicknameRepository)(nil)
