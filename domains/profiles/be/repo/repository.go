package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
)

// Repository exposes persistence operations required by the profiles service.
type Repository interface {
	Upsert(ctx context.Context, rec persistence.ProfileRecord) (persistence.ProfileRecord, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.ProfileRecord, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.ProfileRecord, error)
}

type postgresRepository struct {
	store *persistence.ProfileStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.ProfileStore) Repository {
	if store == nil {
		panic("profile store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Upsert(ctx context.Context, rec persistence.ProfileRecord) (persistence.ProfileRecord, error) {
	return r.store.Upsert(ctx, rec)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.ProfileRecord, error) {
	return r.store.Get(ctx, id)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.ProfileRecord, error) {
	return r.store.Update(ctx, id, params)
}
