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

const MembershipsTable = "memberships"

// MembershipRecord represents a row in the memberships table. Role and status
// are stored as validated strings; the roles package owns the enumerations.
type MembershipRecord struct {
	ID        uuid.UUID  `db:"id"`
	TenantID  uuid.UUID  `db:"tenant_id"`
	UserID    uuid.UUID  `db:"user_id"`
	Role      string     `db:"role"`
	Status    string     `db:"status"`
	JoinedAt  *time.Time `db:"joined_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// MembershipWithProfile pairs a membership with the member's profile for
// admin member listings.
type MembershipWithProfile struct {
	Membership MembershipRecord
	Profile    ProfileRecord
}

// MembershipWithTenant pairs a membership with its tenant for the tenant
// switcher listing.
type MembershipWithTenant struct {
	Membership MembershipRecord
	Tenant     TenantRecord
}

// MembershipStore exposes persistence helpers for the memberships table.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore returns a store instance; assumes Bootstrap already ran.
func NewMembershipStore(pool *pgxpool.Pool) (*MembershipStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &MembershipStore{pool: pool}, nil
}

// Get returns a membership by id.
func (s *MembershipStore) Get(ctx context.Context, id uuid.UUID) (MembershipRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, tenant_id, user_id, role, status, joined_at, created_at, updated_at
        FROM %s WHERE id = $1
    `, MembershipsTable), id)

	rec, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MembershipRecord{}, ErrNotFound
		}
		return MembershipRecord{}, err
	}
	return rec, nil
}

// ResolveActiveRole returns the role of the user's active membership in the
// tenant. Missing or non-active memberships yield ErrNotFound.
func (s *MembershipStore) ResolveActiveRole(ctx context.Context, tenantID, userID uuid.UUID) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT role FROM %s
        WHERE tenant_id = $1 AND user_id = $2 AND status = 'active'
    `, MembershipsTable), tenantID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return role, nil
}

// ListByTenant returns the tenant's memberships with joined profiles, newest first.
func (s *MembershipStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]MembershipWithProfile, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT m.id, m.tenant_id, m.user_id, m.role, m.status, m.joined_at, m.created_at, m.updated_at,
            p.id, p.display_name, p.avatar_url, p.created_at, p.updated_at
        FROM %s m
        JOIN %s p ON p.id = m.user_id
        WHERE m.tenant_id = $1
        ORDER BY m.created_at DESC
    `, MembershipsTable, ProfilesTable), tenantID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	members := make([]MembershipWithProfile, 0)
	for rows.Next() {
		var item MembershipWithProfile
		if err := rows.Scan(
			&item.Membership.ID, &item.Membership.TenantID, &item.Membership.UserID,
			&item.Membership.Role, &item.Membership.Status, &item.Membership.JoinedAt,
			&item.Membership.CreatedAt, &item.Membership.UpdatedAt,
			&item.Profile.ID, &item.Profile.DisplayName, &item.Profile.AvatarURL,
			&item.Profile.CreatedAt, &item.Profile.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		members = append(members, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return members, nil
}

// ListActiveByUser returns the user's active memberships with joined tenants,
// newest first.
func (s *MembershipStore) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]MembershipWithTenant, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT m.id, m.tenant_id, m.user_id, m.role, m.status, m.joined_at, m.created_at, m.updated_at,
            t.id, t.name, t.slug, t.logo_url, t.stripe_customer_id, t.stripe_subscription_id,
            t.stripe_subscription_status, t.created_at, t.updated_at
        FROM %s m
        JOIN %s t ON t.id = m.tenant_id
        WHERE m.user_id = $1 AND m.status = 'active'
        ORDER BY m.created_at DESC
    `, MembershipsTable, TenantsTable), userID)
	if err != nil {
		return nil, fmt.Errorf("list user memberships: %w", err)
	}
	defer rows.Close()

	memberships := make([]MembershipWithTenant, 0)
	for rows.Next() {
		var item MembershipWithTenant
		if err := rows.Scan(
			&item.Membership.ID, &item.Membership.TenantID, &item.Membership.UserID,
			&item.Membership.Role, &item.Membership.Status, &item.Membership.JoinedAt,
			&item.Membership.CreatedAt, &item.Membership.UpdatedAt,
			&item.Tenant.ID, &item.Tenant.Name, &item.Tenant.Slug, &item.Tenant.LogoURL,
			&item.Tenant.StripeCustomerID, &item.Tenant.StripeSubscriptionID,
			&item.Tenant.StripeSubscriptionStatus, &item.Tenant.CreatedAt, &item.Tenant.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user membership: %w", err)
		}
		memberships = append(memberships, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user memberships: %w", err)
	}
	return memberships, nil
}

// UpdateRoleStatus overwrites role and status in one statement.
func (s *MembershipStore) UpdateRoleStatus(ctx context.Context, id uuid.UUID, role, status string) (MembershipRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET role = $2, status = $3, updated_at = now()
        WHERE id = $1
        RETURNING id, tenant_id, user_id, role, status, joined_at, created_at, updated_at
    `, MembershipsTable), id, role, status)

	rec, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MembershipRecord{}, ErrNotFound
		}
		return MembershipRecord{}, err
	}
	return rec, nil
}

// Delete removes a membership. Deleting an absent membership is ErrNotFound,
// never a silent no-op.
func (s *MembershipStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", MembershipsTable), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMembership(row pgx.Row) (MembershipRecord, error) {
	var rec MembershipRecord
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.UserID, &rec.Role, &rec.Status,
		&rec.JoinedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}
