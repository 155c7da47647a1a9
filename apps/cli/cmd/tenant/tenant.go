package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	membershipsrepo "github.com/sidelinehq/trophy-cabinet/domains/memberships/be/repo"
	membershipsservice "github.com/sidelinehq/trophy-cabinet/domains/memberships/be/service"
	tenantsrepo "github.com/sidelinehq/trophy-cabinet/domains/tenants/be/repo"
	tenantsservice "github.com/sidelinehq/trophy-cabinet/domains/tenants/be/service"
	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
)

// Command groups club helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Club utilities (create)",
	}

	cmd.AddCommand(createCommand())
	return cmd
}

func createCommand() *cobra.Command {
	var (
		databaseURL string
		clubName    string
		clubSlug    string
		ownerID     string
		ownerName   string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a club with its owner membership",
		Long:  "Creates a club, the owner membership, and the owner profile when missing, all in one transaction.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			owner, err := uuid.Parse(ownerID)
			if err != nil {
				return fmt.Errorf("invalid owner-id uuid: %w", err)
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			tenantStore, err := persistence.NewTenantStore(pool)
			if err != nil {
				return fmt.Errorf("init tenant store: %w", err)
			}
			membershipStore, err := persistence.NewMembershipStore(pool)
			if err != nil {
				return fmt.Errorf("init membership store: %w", err)
			}
			inviteCodeStore, err := persistence.NewInviteCodeStore(pool)
			if err != nil {
				return fmt.Errorf("init invite code store: %w", err)
			}

			membershipService := membershipsservice.New(
				membershipsrepo.NewPostgresRepository(membershipStore, inviteCodeStore),
			)
			svc := tenantsservice.New(tenantsrepo.NewPostgresRepository(tenantStore), membershipService)

			slug := clubSlug
			if slug == "" {
				slug = strings.ToLower(strings.Join(strings.Fields(clubName), "-"))
			}

			// The owner profile is provisioned inside the same transaction
			// as the club and its membership.
			identity := auth.Identity{Subject: owner.String()}
			if ownerName != "" {
				identity.Name = &ownerName
			}
			club, err := svc.Create(ctx, identity, tenantsservice.CreateInput{
				Name: clubName,
				Slug: slug,
			})
			if err != nil {
				return fmt.Errorf("create club: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Club created. ID: %s | Slug: %s | Owner: %s\n", club.ID, club.Slug, owner)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&clubName, "name", "", "Club display name")
	c.Flags().StringVar(&clubSlug, "slug", "", "URL slug (derived from name when empty)")
	c.Flags().StringVar(&ownerID, "owner-id", "", "UUID of the owning user")
	c.Flags().StringVar(&ownerName, "owner-name", "", "Display name for the owner profile (optional)")

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("owner-id")

	return c
}
