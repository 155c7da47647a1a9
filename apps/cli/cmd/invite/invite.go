package invite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	membershipsrepo "github.com/sidelinehq/trophy-cabinet/domains/memberships/be/repo"
	membershipsservice "github.com/sidelinehq/trophy-cabinet/domains/memberships/be/service"
	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
)

// Command groups invite code helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invite code utilities (issue)",
	}

	cmd.AddCommand(issueCommand())
	return cmd
}

func issueCommand() *cobra.Command {
	var (
		databaseURL string
		tenantID    string
		actorID     string
		roleDefault string
		maxUses     int
		expiresIn   time.Duration
	)

	c := &cobra.Command{
		Use:   "issue",
		Short: "Issue an invite code for a club",
		Long:  "Issues a new invite code. The acting user must hold an admin-area role in the club.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			tenant, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid tenant-id uuid: %w", err)
			}
			actor, err := uuid.Parse(actorID)
			if err != nil {
				return fmt.Errorf("invalid actor-id uuid: %w", err)
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			membershipStore, err := persistence.NewMembershipStore(pool)
			if err != nil {
				return fmt.Errorf("init membership store: %w", err)
			}
			inviteCodeStore, err := persistence.NewInviteCodeStore(pool)
			if err != nil {
				return fmt.Errorf("init invite code store: %w", err)
			}

			svc := membershipsservice.New(
				membershipsrepo.NewPostgresRepository(membershipStore, inviteCodeStore),
			)

			input := membershipsservice.IssueInput{RoleDefault: roleDefault}
			if maxUses > 0 {
				input.MaxUses = &maxUses
			}
			if expiresIn > 0 {
				expiresAt := time.Now().UTC().Add(expiresIn)
				input.ExpiresAt = &expiresAt
			}

			code, err := svc.IssueInviteCode(ctx, actor, tenant, input)
			if err != nil {
				return fmt.Errorf("issue invite code: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Invite code: %s | Role: %s | ID: %s\n", code.Code, code.RoleDefault, code.ID)
			if code.ExpiresAt != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Expires at: %s\n", code.ExpiresAt.Format(time.RFC3339))
			}
			if code.MaxUses != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Max uses: %d\n", *code.MaxUses)
			}
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&tenantID, "tenant-id", "", "UUID of the club")
	c.Flags().StringVar(&actorID, "actor-id", "", "UUID of the issuing user")
	c.Flags().StringVar(&roleDefault, "role", "player", "Role granted on redemption (admin, staff, player)")
	c.Flags().IntVar(&maxUses, "max-uses", 0, "Redemption cap (0 = unlimited)")
	c.Flags().DurationVar(&expiresIn, "expires-in", 0, "Code lifetime, e.g. 168h (0 = never expires)")

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("tenant-id")
	_ = c.MarkFlagRequired("actor-id")

	return c
}
