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

const ProfilesTable = "profiles"

// ProfileRecord represents a row in the profiles table. The id equals the
// internal user id derived from the identity provider.
type ProfileRecord struct {
	ID          uuid.UUID  `db:"id"`
	DisplayName *string    `db:"display_name"`
	AvatarURL   *string    `db:"avatar_url"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// ProfileStore exposes persistence helpers for the profiles table.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore returns a store instance; assumes Bootstrap already ran.
func NewProfileStore(pool *pgxpool.Pool) (*ProfileStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ProfileStore{pool: pool}, nil
}

// Upsert inserts the profile or refreshes its claims-sourced fields. Existing
// non-null values win so a user edit is not clobbered by stale token claims.
func (s *ProfileStore) Upsert(ctx context.Context, rec ProfileRecord) (ProfileRecord, error) {
	if rec.ID == uuid.Nil {
		return ProfileRecord{}, errors.New("profile id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, display_name, avatar_url)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET
            display_name = COALESCE(%s.display_name, EXCLUDED.display_name),
            avatar_url   = COALESCE(%s.avatar_url, EXCLUDED.avatar_url),
            updated_at   = now()
        RETURNING id, display_name, avatar_url, created_at, updated_at
    `, ProfilesTable, ProfilesTable, ProfilesTable),
		rec.ID, rec.DisplayName, rec.AvatarURL,
	)

	return scanProfile(row)
}

// upsertProfile runs the claims upsert inside the caller's transaction, for
// flows that must guarantee the profile row before referencing it.
func upsertProfile(ctx context.Context, tx pgx.Tx, rec ProfileRecord) error {
	if rec.ID == uuid.Nil {
		return errors.New("profile id is required")
	}
	_, err := tx.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, display_name, avatar_url)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET
            display_name = COALESCE(%s.display_name, EXCLUDED.display_name),
            avatar_url   = COALESCE(%s.avatar_url, EXCLUDED.avatar_url),
            updated_at   = now()
    `, ProfilesTable, ProfilesTable, ProfilesTable),
		rec.ID, rec.DisplayName, rec.AvatarURL,
	)
	return err
}

// Get returns the profile by id.
func (s *ProfileStore) Get(ctx context.Context, id uuid.UUID) (ProfileRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, display_name, avatar_url, created_at, updated_at
        FROM %s WHERE id = $1
    `, ProfilesTable), id)

	rec, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrNotFound
		}
		return ProfileRecord{}, err
	}
	return rec, nil
}

// UpdateProfileParams captures the fields a user may change on their own profile.
type UpdateProfileParams struct {
	DisplayName *string
	AvatarURL   *string
}

// Update overwrites the provided fields and bumps updated_at.
func (s *ProfileStore) Update(ctx context.Context, id uuid.UUID, params UpdateProfileParams) (ProfileRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET
            display_name = COALESCE($2, display_name),
            avatar_url   = COALESCE($3, avatar_url),
            updated_at   = now()
        WHERE id = $1
        RETURNING id, display_name, avatar_url, created_at, updated_at
    `, ProfilesTable), id, params.DisplayName, params.AvatarURL)

	rec, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrNotFound
		}
		return ProfileRecord{}, err
	}
	return rec, nil
}

func scanProfile(row pgx.Row) (ProfileRecord, error) {
	var rec ProfileRecord
	err := row.Scan(&rec.ID, &rec.DisplayName, &rec.AvatarURL, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
