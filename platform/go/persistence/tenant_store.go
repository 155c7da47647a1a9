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

const TenantsTable = "tenants"

// TenantRecord represents a row in the tenants table. The billing fields are
// written only by Stripe tooling outside this API; the webhook acknowledges
// events without mutating them.
type TenantRecord struct {
	ID                       uuid.UUID `db:"id"`
	Name                     string    `db:"name"`
	Slug                     string    `db:"slug"`
	LogoURL                  *string   `db:"logo_url"`
	StripeCustomerID         *string   `db:"stripe_customer_id"`
	StripeSubscriptionID     *string   `db:"stripe_subscription_id"`
	StripeSubscriptionStatus *string   `db:"stripe_subscription_status"`
	CreatedAt                time.Time `db:"created_at"`
	UpdatedAt                time.Time `db:"updated_at"`
}

// TenantStore provides access to the tenants table.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore creates a store; assumes Bootstrap already created the tables.
func NewTenantStore(pool *pgxpool.Pool) (*TenantStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TenantStore{pool: pool}, nil
}

// CreateWithOwner inserts the tenant and its owner membership in one
// transaction so a tenant never exists without exactly one owner. The owner
// profile is upserted first: club creation may be the user's very first call,
// before anything else provisioned their profile row.
func (s *TenantStore) CreateWithOwner(ctx context.Context, rec TenantRecord, owner ProfileRecord) (TenantRecord, MembershipRecord, error) {
	if rec.ID == uuid.Nil {
		return TenantRecord{}, MembershipRecord{}, errors.New("tenant id is required")
	}
	if owner.ID == uuid.Nil {
		return TenantRecord{}, MembershipRecord{}, errors.New("owner user id is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TenantRecord{}, MembershipRecord{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = upsertProfile(ctx, tx, owner); err != nil {
		return TenantRecord{}, MembershipRecord{}, fmt.Errorf("upsert owner profile: %w", err)
	}

	insertTenant := fmt.Sprintf(`
        INSERT INTO %s (id, name, slug, logo_url)
        VALUES ($1, $2, $3, $4)
        RETURNING id, name, slug, logo_url, stripe_customer_id, stripe_subscription_id,
            stripe_subscription_status, created_at, updated_at
    `, TenantsTable)

	tenant, err := scanTenant(tx.QueryRow(ctx, insertTenant, rec.ID, rec.Name, rec.Slug, rec.LogoURL))
	if err != nil {
		if isUniqueViolation(err, "tenants_slug_unique") {
			return TenantRecord{}, MembershipRecord{}, ErrConflict
		}
		return TenantRecord{}, MembershipRecord{}, err
	}

	insertOwner := fmt.Sprintf(`
        INSERT INTO %s (id, tenant_id, user_id, role, status, joined_at)
        VALUES ($1, $2, $3, 'owner', 'active', now())
        RETURNING id, tenant_id, user_id, role, status, joined_at, created_at, updated_at
    `, MembershipsTable)

	ownership, err := scanMembership(tx.QueryRow(ctx, insertOwner, uuid.New(), tenant.ID, owner.ID))
	if err != nil {
		return TenantRecord{}, MembershipRecord{}, fmt.Errorf("insert owner membership: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return TenantRecord{}, MembershipRecord{}, err
	}

	return tenant, ownership, nil
}

// Get returns a tenant by id.
func (s *TenantStore) Get(ctx context.Context, id uuid.UUID) (TenantRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, name, slug, logo_url, stripe_customer_id, stripe_subscription_id,
            stripe_subscription_status, created_at, updated_at
        FROM %s WHERE id = $1
    `, TenantsTable), id)

	rec, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrNotFound
		}
		return TenantRecord{}, err
	}
	return rec, nil
}

// GetBySlug returns a tenant by its public slug.
func (s *TenantStore) GetBySlug(ctx context.Context, slug string) (TenantRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, name, slug, logo_url, stripe_customer_id, stripe_subscription_id,
            stripe_subscription_status, created_at, updated_at
        FROM %s WHERE slug = $1
    `, TenantsTable), slug)

	rec, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrNotFound
		}
		return TenantRecord{}, err
	}
	return rec, nil
}

// UpdateTenantParams captures the mutable tenant fields.
type UpdateTenantParams struct {
	Name    *string
	LogoURL *string
}

// Update overwrites the provided fields and bumps updated_at.
func (s *TenantStore) Update(ctx context.Context, id uuid.UUID, params UpdateTenantParams) (TenantRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET
            name       = COALESCE($2, name),
            logo_url   = COALESCE($3, logo_url),
            updated_at = now()
        WHERE id = $1
        RETURNING id, name, slug, logo_url, stripe_customer_id, stripe_subscription_id,
            stripe_subscription_status, created_at, updated_at
    `, TenantsTable), id, params.Name, params.LogoURL)

	rec, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TenantRecord{}, ErrNotFound
		}
		return TenantRecord{}, err
	}
	return rec, nil
}

func scanTenant(row pgx.Row) (TenantRecord, error) {
	var rec TenantRecord
	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Slug, &rec.LogoURL,
		&rec.StripeCustomerID, &rec.StripeSubscriptionID, &rec.StripeSubscriptionStatus,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}
