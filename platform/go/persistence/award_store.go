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

const AwardsTable = "awards"

// AwardRecord represents a row in the awards table. Awards are never updated
// in place; the only mutations are insert and delete.
type AwardRecord struct {
	ID               uuid.UUID  `db:"id"`
	TenantID         uuid.UUID  `db:"tenant_id"`
	TrophyTemplateID uuid.UUID  `db:"trophy_template_id"`
	SeasonID         *uuid.UUID `db:"season_id"`
	TeamID           *uuid.UUID `db:"team_id"`
	RecipientUserID  uuid.UUID  `db:"recipient_user_id"`
	AwardedByUserID  uuid.UUID  `db:"awarded_by_user_id"`
	AwardedAt        time.Time  `db:"awarded_at"`
	Notes            *string    `db:"notes"`
	IsPublic         bool       `db:"is_public"`
	CreatedAt        time.Time  `db:"created_at"`
}

// AwardDetailsRecord is an award with its join-fetched related entities.
type AwardDetailsRecord struct {
	Award     AwardRecord
	Template  TrophyTemplateRecord
	Recipient ProfileRecord
	AwardedBy ProfileRecord
	Season    *SeasonRecord
	Team      *TeamRecord
}

// AwardStore exposes persistence helpers for the awards table.
type AwardStore struct {
	pool *pgxpool.Pool
}

// NewAwardStore returns a store instance; assumes Bootstrap already ran.
func NewAwardStore(pool *pgxpool.Pool) (*AwardStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &AwardStore{pool: pool}, nil
}

// Create inserts a new award. Referential validity (template, recipient,
// season, team belonging to the tenant) is enforced by foreign keys; a
// violation surfaces as ErrNotFound.
func (s *AwardStore) Create(ctx context.Context, rec AwardRecord) (AwardRecord, error) {
	if rec.ID == uuid.Nil {
		return AwardRecord{}, errors.New("award id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, tenant_id, trophy_template_id, season_id, team_id,
            recipient_user_id, awarded_by_user_id, awarded_at, notes, is_public)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, tenant_id, trophy_template_id, season_id, team_id,
            recipient_user_id, awarded_by_user_id, awarded_at, notes, is_public, created_at
    `, AwardsTable),
		rec.ID, rec.TenantID, rec.TrophyTemplateID, rec.SeasonID, rec.TeamID,
		rec.RecipientUserID, rec.AwardedByUserID, rec.AwardedAt, rec.Notes, rec.IsPublic,
	)

	out, err := scanAward(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return AwardRecord{}, ErrNotFound
		}
		return AwardRecord{}, err
	}
	return out, nil
}

// Delete removes an award. No cascade.
func (s *AwardStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", AwardsTable), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const awardDetailsColumns = `
    a.id, a.tenant_id, a.trophy_template_id, a.season_id, a.team_id,
    a.recipient_user_id, a.awarded_by_user_id, a.awarded_at, a.notes, a.is_public, a.created_at,
    tt.id, tt.tenant_id, tt.name, tt.description, tt.icon_url, tt.tier, tt.points, tt.created_at, tt.updated_at,
    rp.id, rp.display_name, rp.avatar_url, rp.created_at, rp.updated_at,
    bp.id, bp.display_name, bp.avatar_url, bp.created_at, bp.updated_at,
    s.id, s.tenant_id, s.name, s.start_date, s.end_date, s.is_active, s.created_at,
    tm.id, tm.tenant_id, tm.season_id, tm.name, tm.created_at`

func (s *AwardStore) detailsQuery(where string) string {
	return fmt.Sprintf(`
        SELECT %s
        FROM %s a
        JOIN %s tt ON tt.id = a.trophy_template_id
        JOIN %s rp ON rp.id = a.recipient_user_id
        JOIN %s bp ON bp.id = a.awarded_by_user_id
        LEFT JOIN %s s ON s.id = a.season_id
        LEFT JOIN %s tm ON tm.id = a.team_id
        %s
    `, awardDetailsColumns, AwardsTable, TrophyTemplatesTable, ProfilesTable,
		ProfilesTable, SeasonsTable, TeamsTable, where)
}

// GetDetails returns one award with join-fetched related entities.
func (s *AwardStore) GetDetails(ctx context.Context, id uuid.UUID) (AwardDetailsRecord, error) {
	row := s.pool.QueryRow(ctx, s.detailsQuery("WHERE a.id = $1"), id)

	rec, err := scanAwardDetails(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AwardDetailsRecord{}, ErrNotFound
		}
		return AwardDetailsRecord{}, err
	}
	return rec, nil
}

// ListDetails returns a tenant's awards with join-fetched related entities,
// most recent first. When recipient is non-nil only that user's awards return.
func (s *AwardStore) ListDetails(ctx context.Context, tenantID uuid.UUID, recipient *uuid.UUID) ([]AwardDetailsRecord, error) {
	where := "WHERE a.tenant_id = $1"
	args := []any{tenantID}
	if recipient != nil {
		where += " AND a.recipient_user_id = $2"
		args = append(args, *recipient)
	}

	rows, err := s.pool.Query(ctx, s.detailsQuery(where+" ORDER BY a.awarded_at DESC"), args...)
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	defer rows.Close()

	awards := make([]AwardDetailsRecord, 0)
	for rows.Next() {
		rec, scanErr := scanAwardDetails(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan award: %w", scanErr)
		}
		awards = append(awards, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate awards: %w", err)
	}
	return awards, nil
}

func scanAward(row pgx.Row) (AwardRecord, error) {
	var rec AwardRecord
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.TrophyTemplateID, &rec.SeasonID, &rec.TeamID,
		&rec.RecipientUserID, &rec.AwardedByUserID, &rec.AwardedAt, &rec.Notes,
		&rec.IsPublic, &rec.CreatedAt,
	)
	return rec, err
}

func scanAwardDetails(row pgx.Row) (AwardDetailsRecord, error) {
	var (
		rec AwardDetailsRecord

		seasonID        *uuid.UUID
		seasonTenantID  *uuid.UUID
		seasonName      *string
		seasonStart     *time.Time
		seasonEnd       *time.Time
		seasonIsActive  *bool
		seasonCreatedAt *time.Time

		teamID        *uuid.UUID
		teamTenantID  *uuid.UUID
		teamSeasonID  *uuid.UUID
		teamName      *string
		teamCreatedAt *time.Time
	)

	err := row.Scan(
		&rec.Award.ID, &rec.Award.TenantID, &rec.Award.TrophyTemplateID,
		&rec.Award.SeasonID, &rec.Award.TeamID, &rec.Award.RecipientUserID,
		&rec.Award.AwardedByUserID, &rec.Award.AwardedAt, &rec.Award.Notes,
		&rec.Award.IsPublic, &rec.Award.CreatedAt,
		&rec.Template.ID, &rec.Template.TenantID, &rec.Template.Name,
		&rec.Template.Description, &rec.Template.IconURL, &rec.Template.Tier,
		&rec.Template.Points, &rec.Template.CreatedAt, &rec.Template.UpdatedAt,
		&rec.Recipient.ID, &rec.Recipient.DisplayName, &rec.Recipient.AvatarURL,
		&rec.Recipient.CreatedAt, &rec.Recipient.UpdatedAt,
		&rec.AwardedBy.ID, &rec.AwardedBy.DisplayName, &rec.AwardedBy.AvatarURL,
		&rec.AwardedBy.CreatedAt, &rec.AwardedBy.UpdatedAt,
		&seasonID, &seasonTenantID, &seasonName, &seasonStart, &seasonEnd,
		&seasonIsActive, &seasonCreatedAt,
		&teamID, &teamTenantID, &teamSeasonID, &teamName, &teamCreatedAt,
	)
	if err != nil {
		return AwardDetailsRecord{}, err
	}

	if seasonID != nil {
		rec.Season = &SeasonRecord{
			ID:        *seasonID,
			TenantID:  *seasonTenantID,
			Name:      *seasonName,
			StartDate: seasonStart,
			EndDate:   seasonEnd,
			IsActive:  *seasonIsActive,
			CreatedAt: *seasonCreatedAt,
		}
	}
	if teamID != nil {
		rec.Team = &TeamRecord{
			ID:        *teamID,
			TenantID:  *teamTenantID,
			SeasonID:  teamSeasonID,
			Name:      *teamName,
			CreatedAt: *teamCreatedAt,
		}
	}

	return rec, nil
}
