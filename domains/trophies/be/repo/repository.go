package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
)

// Repository exposes persistence operations required by the trophies service.
type Repository interface {
	Create(ctx context.Context, rec persistence.TrophyTemplateRecord) (persistence.TrophyTemplateRecord, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.TrophyTemplateRecord, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]persistence.TrophyTemplateRecord, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTrophyTemplateParams) (persistence.TrophyTemplateRecord, error)
	DeleteCascade(ctx context.Context, id uuid.UUID) (int64, error)
}

type postgresRepository struct {
	store *persistence.TrophyStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.TrophyStore) Repository {
	if store == nil {
		panic("trophy store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, rec persistence.TrophyTemplateRecord) (persistence.TrophyTemplateRecord, error) {
	return r.store.Create(ctx, rec)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.TrophyTemplateRecord, error) {
	return r.store.Get(ctx, id)
}

func (r *postgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]persistence.TrophyTemplateRecord, error) {
	return r.store.ListByTenant(ctx, tenantID)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTrophyTemplateParams) (persistence.TrophyTemplateRecord, error) {
	return r.store.Update(ctx, id, params)
}

func (r *postgresRepository) DeleteCascade(ctx context.Context, id uuid.UUID) (int64, error) {
	return r.store.DeleteCascade(ctx, id)
}
