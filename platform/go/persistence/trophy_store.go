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

const TrophyTemplatesTable = "trophy_templates"

// TrophyTemplateRecord represents a row in the trophy_templates table.
type TrophyTemplateRecord struct {
	ID          uuid.UUID `db:"id"`
	TenantID    uuid.UUID `db:"tenant_id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	IconURL     *string   `db:"icon_url"`
	Tier        *string   `db:"tier"`
	Points      int       `db:"points"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// TrophyStore exposes persistence helpers for the trophy_templates table.
type TrophyStore struct {
	pool *pgxpool.Pool
}

// NewTrophyStore returns a store instance; assumes Bootstrap already ran.
func NewTrophyStore(pool *pgxpool.Pool) (*TrophyStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TrophyStore{pool: pool}, nil
}

// Create inserts a new trophy template.
func (s *TrophyStore) Create(ctx context.Context, rec TrophyTemplateRecord) (TrophyTemplateRecord, error) {
	if rec.ID == uuid.Nil {
		return TrophyTemplateRecord{}, errors.New("trophy template id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, tenant_id, name, description, icon_url, tier, points)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, tenant_id, name, description, icon_url, tier, points, created_at, updated_at
    `, TrophyTemplatesTable),
		rec.ID, rec.TenantID, rec.Name, rec.Description, rec.IconURL, rec.Tier, rec.Points,
	)

	out, err := scanTrophyTemplate(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return TrophyTemplateRecord{}, ErrNotFound
		}
		return TrophyTemplateRecord{}, err
	}
	return out, nil
}

// Get returns a template by id.
func (s *TrophyStore) Get(ctx context.Context, id uuid.UUID) (TrophyTemplateRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, tenant_id, name, description, icon_url, tier, points, created_at, updated_at
        FROM %s WHERE id = $1
    `, TrophyTemplatesTable), id)

	rec, err := scanTrophyTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TrophyTemplateRecord{}, ErrNotFound
		}
		return TrophyTemplateRecord{}, err
	}
	return rec, nil
}

// ListByTenant returns the tenant's templates, newest first.
func (s *TrophyStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]TrophyTemplateRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT id, tenant_id, name, description, icon_url, tier, points, created_at, updated_at
        FROM %s WHERE tenant_id = $1
        ORDER BY created_at DESC
    `, TrophyTemplatesTable), tenantID)
	if err != nil {
		return nil, fmt.Errorf("list trophy templates: %w", err)
	}
	defer rows.Close()

	templates := make([]TrophyTemplateRecord, 0)
	for rows.Next() {
		rec, scanErr := scanTrophyTemplate(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan trophy template: %w", scanErr)
		}
		templates = append(templates, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trophy templates: %w", err)
	}
	return templates, nil
}

// UpdateTrophyTemplateParams captures the mutable template fields.
type UpdateTrophyTemplateParams struct {
	Name        *string
	Description *string
	IconURL     *string
	Tier        *string
	Points      *int
}

// Update overwrites the provided fields and bumps updated_at.
func (s *TrophyStore) Update(ctx context.Context, id uuid.UUID, params UpdateTrophyTemplateParams) (TrophyTemplateRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET
            name        = COALESCE($2, name),
            description = COALESCE($3, description),
            icon_url    = COALESCE($4, icon_url),
            tier        = COALESCE($5, tier),
            points      = COALESCE($6, points),
            updated_at  = now()
        WHERE id = $1
        RETURNING id, tenant_id, name, description, icon_url, tier, points, created_at, updated_at
    `, TrophyTemplatesTable),
		id, params.Name, params.Description, params.IconURL, params.Tier, params.Points,
	)

	rec, err := scanTrophyTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TrophyTemplateRecord{}, ErrNotFound
		}
		return TrophyTemplateRecord{}, err
	}
	return rec, nil
}

// DeleteCascade removes the template and every award referencing it inside one
// transaction. Returns the number of awards deleted alongside the template.
func (s *TrophyStore) DeleteCascade(ctx context.Context, id uuid.UUID) (int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	awardsTag, err := tx.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE trophy_template_id = $1", AwardsTable), id)
	if err != nil {
		return 0, fmt.Errorf("delete dependent awards: %w", err)
	}

	templateTag, err := tx.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE id = $1", TrophyTemplatesTable), id)
	if err != nil {
		return 0, fmt.Errorf("delete trophy template: %w", err)
	}
	if templateTag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}

	return awardsTag.RowsAffected(), nil
}

func scanTrophyTemplate(row pgx.Row) (TrophyTemplateRecord, error) {
	var rec TrophyTemplateRecord
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.Name, &rec.Description, &rec.IconURL,
		&rec.Tier, &rec.Points, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}
