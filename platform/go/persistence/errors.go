package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors shared by the stores. Domain repositories translate these
// into their own service-level sentinels.
var (
	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a uniqueness violation (duplicate slug, code, membership pair).
	ErrConflict = errors.New("record conflict")

	// Invite code redemption outcomes.
	ErrInviteInactive  = errors.New("invite code inactive")
	ErrInviteExpired   = errors.New("invite code expired")
	ErrInviteExhausted = errors.New("invite code exhausted")
)

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally restricted to a specific constraint name.
func isUniqueViolation(err error, constraints ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, c := range constraints {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}

// isForeignKeyViolation reports whether err is a Postgres foreign-key
// violation, meaning a referenced entity does not exist.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
