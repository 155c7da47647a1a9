package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestInviteCodeRedeemLifecycle(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping invite code integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pool := startTestDatabase(t, ctx)

	tenantID, ownerID := seedTenantWithOwner(t, ctx, pool, "valley-vikings")

	invites, err := NewInviteCodeStore(pool)
	require.NoError(t, err)

	now := time.Now()

	code, err := invites.Create(ctx, InviteCodeRecord{
		ID:              uuid.New(),
		TenantID:        tenantID,
		Code:            "VIKINGS2",
		RoleDefault:     "player",
		MaxUses:         intPtr(2),
		IsActive:        true,
		CreatedByUserID: &ownerID,
	})
	require.NoError(t, err)
	require.Equal(t, 0, code.UsesCount)

	// Duplicate code text is rejected.
	_, err = invites.Create(ctx, InviteCodeRecord{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Code:        "VIKINGS2",
		RoleDefault: "player",
		IsActive:    true,
	})
	require.ErrorIs(t, err, ErrConflict)

	// Redeeming is often a brand-new user's first call, so no profile rows
	// are seeded here. The redeem transaction provisions them.
	playerA := ProfileRecord{ID: uuid.New(), DisplayName: strPtr("Avery First")}
	playerB := ProfileRecord{ID: uuid.New(), DisplayName: strPtr("Blake Second")}
	playerC := ProfileRecord{ID: uuid.New(), DisplayName: strPtr("Casey Third")}

	joinedA, err := invites.Redeem(ctx, "VIKINGS2", playerA, now)
	require.NoError(t, err)
	require.Equal(t, tenantID, joinedA.TenantID)
	require.Equal(t, "player", joinedA.Role)
	require.Equal(t, "active", joinedA.Status)
	require.NotNil(t, joinedA.JoinedAt)

	profiles, err := NewProfileStore(pool)
	require.NoError(t, err)
	provisioned, err := profiles.Get(ctx, playerA.ID)
	require.NoError(t, err)
	require.Equal(t, "Avery First", *provisioned.DisplayName)

	// Redeeming again with the same user keeps a single membership and does
	// not burn an extra use beyond the increment per call.
	joinedAgain, err := invites.Redeem(ctx, "VIKINGS2", playerA, now)
	require.NoError(t, err)
	require.Equal(t, joinedA.ID, joinedAgain.ID)

	// Second distinct user exhausts the code only after this call fails:
	// uses_count is already 2, so playerB hits the ceiling.
	_, err = invites.Redeem(ctx, "VIKINGS2", playerB, now)
	require.ErrorIs(t, err, ErrInviteExhausted)

	_, err = invites.Redeem(ctx, "NOPE0000", playerB, now)
	require.ErrorIs(t, err, ErrNotFound)

	expired, err := invites.Create(ctx, InviteCodeRecord{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Code:        "OLDNEWS7",
		RoleDefault: "staff",
		ExpiresAt:   timePtr(now.Add(-time.Hour)),
		IsActive:    true,
	})
	require.NoError(t, err)
	_, err = invites.Redeem(ctx, expired.Code, playerB, now)
	require.ErrorIs(t, err, ErrInviteExpired)

	fresh, err := invites.Create(ctx, InviteCodeRecord{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Code:        "STAFF456",
		RoleDefault: "staff",
		IsActive:    true,
	})
	require.NoError(t, err)

	joinedB, err := invites.Redeem(ctx, fresh.Code, playerB, now)
	require.NoError(t, err)
	require.Equal(t, "staff", joinedB.Role)

	require.NoError(t, invites.Deactivate(ctx, fresh.ID))
	_, err = invites.Redeem(ctx, fresh.Code, playerC, now)
	require.ErrorIs(t, err, ErrInviteInactive)

	require.ErrorIs(t, invites.Deactivate(ctx, uuid.New()), ErrNotFound)

	listed, err := invites.ListByTenant(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for _, rec := range listed {
		if rec.ID == code.ID {
			require.Equal(t, 2, rec.UsesCount)
		}
	}
}

func TestInviteCodeRedeemReactivatesMembership(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping invite code integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pool := startTestDatabase(t, ctx)

	tenantID, _ := seedTenantWithOwner(t, ctx, pool, "bay-bears")

	invites, err := NewInviteCodeStore(pool)
	require.NoError(t, err)
	memberships, err := NewMembershipStore(pool)
	require.NoError(t, err)

	playerID := uuid.New()
	player := ProfileRecord{ID: playerID, DisplayName: strPtr("Dana Returner")}

	_, err = invites.Create(ctx, InviteCodeRecord{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Code:        "BEARS567",
		RoleDefault: "player",
		IsActive:    true,
	})
	require.NoError(t, err)

	joined, err := invites.Redeem(ctx, "BEARS567", player, time.Now())
	require.NoError(t, err)

	_, err = memberships.UpdateRoleStatus(ctx, joined.ID, "player", "suspended")
	require.NoError(t, err)
	_, err = memberships.ResolveActiveRole(ctx, tenantID, playerID)
	require.ErrorIs(t, err, ErrNotFound)

	rejoined, err := invites.Redeem(ctx, "BEARS567", player, time.Now())
	require.NoError(t, err)
	require.Equal(t, joined.ID, rejoined.ID)
	require.Equal(t, "active", rejoined.Status)

	role, err := memberships.ResolveActiveRole(ctx, tenantID, playerID)
	require.NoError(t, err)
	require.Equal(t, "player", role)
}
