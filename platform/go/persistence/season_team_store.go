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

const (
	SeasonsTable = "seasons"
	TeamsTable   = "teams"
)

type SeasonRecord struct {
	ID        uuid.UUID  `db:"id"`
	TenantID  uuid.UUID  `db:"tenant_id"`
	Name      string     `db:"name"`
	StartDate *time.Time `db:"start_date"`
	EndDate   *time.Time `db:"end_date"`
	IsActive  bool       `db:"is_active"`
	CreatedAt time.Time  `db:"created_at"`
}

type TeamRecord struct {
	ID        uuid.UUID  `db:"id"`
	TenantID  uuid.UUID  `db:"tenant_id"`
	SeasonID  *uuid.UUID `db:"season_id"`
	Name      string     `db:"name"`
	CreatedAt time.Time  `db:"created_at"`
}

// SeasonTeamStore covers the two small catalog tables awards hang off.
type SeasonTeamStore struct {
	pool *pgxpool.Pool
}

func NewSeasonTeamStore(pool *pgxpool.Pool) (*SeasonTeamStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &SeasonTeamStore{pool: pool}, nil
}

func (s *SeasonTeamStore) CreateSeason(ctx context.Context, rec SeasonRecord) (SeasonRecord, error) {
	if rec.ID == uuid.Nil {
		return SeasonRecord{}, errors.New("season id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, tenant_id, name, start_date, end_date, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, tenant_id, name, start_date, end_date, is_active, created_at
    `, SeasonsTable), rec.ID, rec.TenantID, rec.Name, rec.StartDate, rec.EndDate, rec.IsActive)

	out, err := scanSeason(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return SeasonRecord{}, ErrNotFound
		}
		return SeasonRecord{}, err
	}
	return out, nil
}

// ListSeasons returns a tenant's seasons, newest start date first. Seasons
// without a start date sort last.
func (s *SeasonTeamStore) ListSeasons(ctx context.Context, tenantID uuid.UUID) ([]SeasonRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT id, tenant_id, name, start_date, end_date, is_active, created_at
        FROM %s
        WHERE tenant_id = $1
        ORDER BY start_date DESC NULLS LAST, created_at DESC
    `, SeasonsTable), tenantID)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer rows.Close()

	seasons := make([]SeasonRecord, 0)
	for rows.Next() {
		rec, scanErr := scanSeason(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan season: %w", scanErr)
		}
		seasons = append(seasons, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seasons: %w", err)
	}
	return seasons, nil
}

func (s *SeasonTeamStore) GetSeason(ctx context.Context, id uuid.UUID) (SeasonRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, tenant_id, name, start_date, end_date, is_active, created_at
        FROM %s WHERE id = $1
    `, SeasonsTable), id)

	rec, err := scanSeason(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SeasonRecord{}, ErrNotFound
		}
		return SeasonRecord{}, err
	}
	return rec, nil
}

func (s *SeasonTeamStore) CreateTeam(ctx context.Context, rec TeamRecord) (TeamRecord, error) {
	if rec.ID == uuid.Nil {
		return TeamRecord{}, errors.New("team id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, tenant_id, season_id, name)
        VALUES ($1, $2, $3, $4)
        RETURNING id, tenant_id, season_id, name, created_at
    `, TeamsTable), rec.ID, rec.TenantID, rec.SeasonID, rec.Name)

	out, err := scanTeam(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return TeamRecord{}, ErrNotFound
		}
		return TeamRecord{}, err
	}
	return out, nil
}

func (s *SeasonTeamStore) ListTeams(ctx context.Context, tenantID uuid.UUID) ([]TeamRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT id, tenant_id, season_id, name, created_at
        FROM %s
        WHERE tenant_id = $1
        ORDER BY name ASC
    `, TeamsTable), tenantID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]TeamRecord, 0)
	for rows.Next() {
		rec, scanErr := scanTeam(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan team: %w", scanErr)
		}
		teams = append(teams, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	return teams, nil
}

func (s *SeasonTeamStore) GetTeam(ctx context.Context, id uuid.UUID) (TeamRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, tenant_id, season_id, name, created_at
        FROM %s WHERE id = $1
    `, TeamsTable), id)

	rec, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TeamRecord{}, ErrNotFound
		}
		return TeamRecord{}, err
	}
	return rec, nil
}

func scanSeason(row pgx.Row) (SeasonRecord, error) {
	var rec SeasonRecord
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.Name, &rec.StartDate, &rec.EndDate,
		&rec.IsActive, &rec.CreatedAt)
	return rec, err
}

func scanTeam(row pgx.Row) (TeamRecord, error) {
	var rec TeamRecord
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.SeasonID, &rec.Name, &rec.CreatedAt)
	return rec, err
}
