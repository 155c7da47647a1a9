package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
)

// Repository covers award rows plus the season and team catalogs they
// reference.
type Repository interface {
	CreateAward(ctx context.Context, rec persistence.AwardRecord) (persistence.AwardRecord, error)
	DeleteAward(ctx context.Context, id uuid.UUID) error
	GetAwardDetails(ctx context.Context, id uuid.UUID) (persistence.AwardDetailsRecord, error)
	ListAwardDetails(ctx context.Context, tenantID uuid.UUID, recipient *uuid.UUID) ([]persistence.AwardDetailsRecord, error)

	CreateSeason(ctx context.Context, rec persistence.SeasonRecord) (persistence.SeasonRecord, error)
	ListSeasons(ctx context.Context, tenantID uuid.UUID) ([]persistence.SeasonRecord, error)
	GetSeason(ctx context.Context, id uuid.UUID) (persistence.SeasonRecord, error)
	CreateTeam(ctx context.Context, rec persistence.TeamRecord) (persistence.TeamRecord, error)
	ListTeams(ctx context.Context, tenantID uuid.UUID) ([]persistence.TeamRecord, error)
	GetTeam(ctx context.Context, id uuid.UUID) (persistence.TeamRecord, error)

	GetTemplate(ctx context.Context, id uuid.UUID) (persistence.TrophyTemplateRecord, error)
}

type postgresRepository struct {
	awards    *persistence.AwardStore
	catalog   *persistence.SeasonTeamStore
	templates *persistence.TrophyStore
}

// NewPostgresRepository builds the production Repository over the
// persistence stores.
func NewPostgresRepository(awards *persistence.AwardStore, catalog *persistence.SeasonTeamStore, templates *persistence.TrophyStore) Repository {
	if awards == nil {
		panic("award store is required")
	}
	if catalog == nil {
		panic("season team store is required")
	}
	if templates == nil {
		panic("trophy store is required")
	}
	return &postgresRepository{awards: awards, catalog: catalog, templates: templates}
}

func (r *postgresRepository) CreateAward(ctx context.Context, rec persistence.AwardRecord) (persistence.AwardRecord, error) {
	return r.awards.Create(ctx, rec)
}

func (r *postgresRepository) DeleteAward(ctx context.Context, id uuid.UUID) error {
	return r.awards.Delete(ctx, id)
}

func (r *postgresRepository) GetAwardDetails(ctx context.Context, id uuid.UUID) (persistence.AwardDetailsRecord, error) {
	return r.awards.GetDetails(ctx, id)
}

func (r *postgresRepository) ListAwardDetails(ctx context.Context, tenantID uuid.UUID, recipient *uuid.UUID) ([]persistence.AwardDetailsRecord, error) {
	return r.awards.ListDetails(ctx, tenantID, recipient)
}

func (r *postgresRepository) CreateSeason(ctx context.Context, rec persistence.SeasonRecord) (persistence.SeasonRecord, error) {
	return r.catalog.CreateSeason(ctx, rec)
}

func (r *postgresRepository) ListSeasons(ctx context.Context, tenantID uuid.UUID) ([]persistence.SeasonRecord, error) {
	return r.catalog.ListSeasons(ctx, tenantID)
}

func (r *postgresRepository) CreateTeam(ctx context.Context, rec persistence.TeamRecord) (persistence.TeamRecord, error) {
	return r.catalog.CreateTeam(ctx, rec)
}

func (r *postgresRepository) ListTeams(ctx context.Context, tenantID uuid.UUID) ([]persistence.TeamRecord, error) {
	return r.catalog.ListTeams(ctx, tenantID)
}

func (r *postgresRepository) GetSeason(ctx context.Context, id uuid.UUID) (persistence.SeasonRecord, error) {
	return r.catalog.GetSeason(ctx, id)
}

func (r *postgresRepository) GetTeam(ctx context.Context, id uuid.UUID) (persistence.TeamRecord, error) {
	return r.catalog.GetTeam(ctx, id)
}

func (r *postgresRepository) GetTemplate(ctx context.Context, id uuid.UUID) (persistence.TrophyTemplateRecord, error) {
	return r.templates.Get(ctx, id)
}
