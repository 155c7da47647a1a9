package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const InviteCodesTable = "invite_codes"

// InviteCodeRecord represents a row in the invite_codes table.
type InviteCodeRecord struct {
	ID              uuid.UUID  `db:"id"`
	TenantID        uuid.UUID  `db:"tenant_id"`
	Code            string     `db:"code"`
	RoleDefault     string     `db:"role_default"`
	ExpiresAt       *time.Time `db:"expires_at"`
	MaxUses         *int       `db:"max_uses"`
	UsesCount       int        `db:"uses_count"`
	IsActive        bool       `db:"is_active"`
	CreatedByUserID *uuid.UUID `db:"created_by_user_id"`
	CreatedAt       time.Time  `db:"created_at"`
}

// InviteCodeStore exposes persistence helpers for the invite_codes table.
type InviteCodeStore struct {
	pool *pgxpool.Pool
}

// NewInviteCodeStore returns a store instance; assumes Bootstrap already ran.
func NewInviteCodeStore(pool *pgxpool.Pool) (*InviteCodeStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &InviteCodeStore{pool: pool}, nil
}

// Create inserts a new invite code. A duplicate code yields ErrConflict so the
// caller can regenerate and retry.
func (s *InviteCodeStore) Create(ctx context.Context, rec InviteCodeRecord) (InviteCodeRecord, error) {
	if rec.ID == uuid.Nil {
		return InviteCodeRecord{}, errors.New("invite code id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, tenant_id, code, role_default, expires_at, max_uses, created_by_user_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, tenant_id, code, role_default, expires_at, max_uses, uses_count,
            is_active, created_by_user_id, created_at
    `, InviteCodesTable),
		rec.ID, rec.TenantID, rec.Code, rec.RoleDefault, rec.ExpiresAt, rec.MaxUses, rec.CreatedByUserID,
	)

	out, err := scanInviteCode(row)
	if err != nil {
		if isUniqueViolation(err, "invite_codes_code_unique") {
			return InviteCodeRecord{}, ErrConflict
		}
		return InviteCodeRecord{}, err
	}
	return out, nil
}

// Get returns an invite code by id.
func (s *InviteCodeStore) Get(ctx context.Context, id uuid.UUID) (InviteCodeRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, tenant_id, code, role_default, expires_at, max_uses, uses_count,
            is_active, created_by_user_id, created_at
        FROM %s WHERE id = $1
    `, InviteCodesTable), id)

	rec, err := scanInviteCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InviteCodeRecord{}, ErrNotFound
		}
		return InviteCodeRecord{}, err
	}
	return rec, nil
}

// ListByTenant returns the tenant's invite codes, newest first.
func (s *InviteCodeStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]InviteCodeRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT id, tenant_id, code, role_default, expires_at, max_uses, uses_count,
            is_active, created_by_user_id, created_at
        FROM %s WHERE tenant_id = $1
        ORDER BY created_at DESC
    `, InviteCodesTable), tenantID)
	if err != nil {
		return nil, fmt.Errorf("list invite codes: %w", err)
	}
	defer rows.Close()

	codes := make([]InviteCodeRecord, 0)
	for rows.Next() {
		rec, scanErr := scanInviteCode(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan invite code: %w", scanErr)
		}
		codes = append(codes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invite codes: %w", err)
	}
	return codes, nil
}

// Deactivate flips is_active off. Terminal; there is no reactivation statement.
func (s *InviteCodeStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET is_active = FALSE WHERE id = $1", InviteCodesTable), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Redeem consumes one use of the code and upserts the user's membership, all
// inside a single transaction. The code row is locked FOR UPDATE so two
// concurrent redemptions cannot both pass the max_uses boundary. The user's
// profile is upserted first: joining may be their very first call.
func (s *InviteCodeStore) Redeem(ctx context.Context, code string, user ProfileRecord, now time.Time) (MembershipRecord, error) {
	if user.ID == uuid.Nil {
		return MembershipRecord{}, errors.New("user id is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return MembershipRecord{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = upsertProfile(ctx, tx, user); err != nil {
		return MembershipRecord{}, fmt.Errorf("upsert joining profile: %w", err)
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, tenant_id, code, role_default, expires_at, max_uses, uses_count,
            is_active, created_by_user_id, created_at
        FROM %s WHERE code = $1
        FOR UPDATE
    `, InviteCodesTable), code)

	rec, err := scanInviteCode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MembershipRecord{}, ErrNotFound
		}
		return MembershipRecord{}, err
	}

	if !rec.IsActive {
		return MembershipRecord{}, ErrInviteInactive
	}
	if rec.ExpiresAt != nil && now.After(*rec.ExpiresAt) {
		return MembershipRecord{}, ErrInviteExpired
	}
	if rec.MaxUses != nil && rec.UsesCount >= *rec.MaxUses {
		return MembershipRecord{}, ErrInviteExhausted
	}

	if _, err = tx.Exec(ctx, fmt.Sprintf(
		"UPDATE %s SET uses_count = uses_count + 1 WHERE id = $1", InviteCodesTable), rec.ID); err != nil {
		return MembershipRecord{}, fmt.Errorf("increment uses: %w", err)
	}

	// Create the membership, or reactivate an existing one with the code's
	// default role. joined_at keeps its original value on rejoin.
	membershipRow := tx.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, tenant_id, user_id, role, status, joined_at)
        VALUES ($1, $2, $3, $4, 'active', $5)
        ON CONFLICT (tenant_id, user_id) DO UPDATE SET
            role       = EXCLUDED.role,
            status     = 'active',
            joined_at  = COALESCE(%s.joined_at, EXCLUDED.joined_at),
            updated_at = now()
        RETURNING id, tenant_id, user_id, role, status, joined_at, created_at, updated_at
    `, MembershipsTable, MembershipsTable),
		uuid.New(), rec.TenantID, user.ID, rec.RoleDefault, now,
	)

	membership, err := scanMembership(membershipRow)
	if err != nil {
		return MembershipRecord{}, fmt.Errorf("upsert membership: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return MembershipRecord{}, err
	}

	return membership, nil
}

func scanInviteCode(row pgx.Row) (InviteCodeRecord, error) {
	var rec InviteCodeRecord
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.Code, &rec.RoleDefault, &rec.ExpiresAt,
		&rec.MaxUses, &rec.UsesCount, &rec.IsActive, &rec.CreatedByUserID, &rec.CreatedAt,
	)
	return rec, err
}
