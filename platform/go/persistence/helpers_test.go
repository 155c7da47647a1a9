package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jackc/pgx/v5/pgxpool"
)

// startTestDatabase brings up a disposable Postgres container, applies the
// embedded schema and returns a ready pool. Callers should skip in short mode
// before calling this.
func startTestDatabase(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("trophycabinet"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() { ClosePool(pool) })

	require.NoError(t, Bootstrap(ctx, pool))

	return pool
}

// seedTenantWithOwner inserts a tenant with its owner membership, returning
// the tenant and owner ids. The owner profile comes from the create itself.
func seedTenantWithOwner(t *testing.T, ctx context.Context, pool *pgxpool.Pool, slug string) (uuid.UUID, uuid.UUID) {
	t.Helper()

	tenants, err := NewTenantStore(pool)
	require.NoError(t, err)

	ownerID := uuid.New()
	tenantRec, _, err := tenants.CreateWithOwner(ctx, TenantRecord{
		ID:   uuid.New(),
		Name: "Club " + slug,
		Slug: slug,
	}, ProfileRecord{ID: ownerID, DisplayName: strPtr("Owner " + slug)})
	require.NoError(t, err)

	return tenantRec.ID, ownerID
}

func seedProfile(t *testing.T, ctx context.Context, pool *pgxpool.Pool, name string) uuid.UUID {
	t.Helper()

	profiles, err := NewProfileStore(pool)
	require.NoError(t, err)

	id := uuid.New()
	_, err = profiles.Upsert(ctx, ProfileRecord{ID: id, DisplayName: strPtr(name)})
	require.NoError(t, err)
	return id
}

func strPtr(s string) *string       { return &s }
func intPtr(i int) *int             { return &i }
func timePtr(ts time.Time) *time.Time { return &ts }
