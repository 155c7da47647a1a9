package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
)

// Repository exposes persistence operations required by the tenants service.
type Repository interface {
	CreateWithOwner(ctx context.Context, rec persistence.TenantRecord, owner persistence.ProfileRecord) (persistence.TenantRecord, persistence.MembershipRecord, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.TenantRecord, error)
	GetBySlug(ctx context.Context, slug string) (persistence.TenantRecord, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.TenantRecord, error)
}

type postgresRepository struct {
	store *persistence.TenantStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.TenantStore) Repository {
	if store == nil {
		panic("tenant store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) CreateWithOwner(ctx context.Context, rec persistence.TenantRecord, owner persistence.ProfileRecord) (persistence.TenantRecord, persistence.MembershipRecord, error) {
	return r.store.CreateWithOwner(ctx, rec, owner)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.TenantRecord, error) {
	return r.store.Get(ctx, id)
}

func (r *postgresRepository) GetBySlug(ctx context.Context, slug string) (persistence.TenantRecord, error) {
	return r.store.GetBySlug(ctx, slug)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.TenantRecord, error) {
	return r.store.Update(ctx, id, params)
}
