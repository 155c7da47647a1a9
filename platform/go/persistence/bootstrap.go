package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/sidelinehq/trophy-cabinet/database"
)

// Bootstrap applies the embedded schema DDL. Statements are idempotent
// (CREATE ... IF NOT EXISTS) so re-running against an existing database is safe.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("pool is required")
	}

	for _, asset := range sqlassets.All() {
		for _, raw := range strings.Split(asset, ";") {
			stmt := strings.TrimSpace(raw)
			if stmt == "" {
				continue
			}
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema ddl: %w", err)
			}
		}
	}

	return nil
}
