package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
)

// Repository exposes persistence operations required by the memberships
// service: the membership roster plus the invite code ledger.
type Repository interface {
	GetMembership(ctx context.Context, id uuid.UUID) (persistence.MembershipRecord, error)
	ResolveActiveRole(ctx context.Context, tenantID, userID uuid.UUID) (string, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]persistence.MembershipWithProfile, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]persistence.MembershipWithTenant, error)
	UpdateRoleStatus(ctx context.Context, id uuid.UUID, role, status string) (persistence.MembershipRecord, error)
	DeleteMembership(ctx context.Context, id uuid.UUID) error

	CreateInviteCode(ctx context.Context, rec persistence.InviteCodeRecord) (persistence.InviteCodeRecord, error)
	GetInviteCode(ctx context.Context, id uuid.UUID) (persistence.InviteCodeRecord, error)
	ListInviteCodes(ctx context.Context, tenantID uuid.UUID) ([]persistence.InviteCodeRecord, error)
	DeactivateInviteCode(ctx context.Context, id uuid.UUID) error
	RedeemInviteCode(ctx context.Context, code string, user persistence.ProfileRecord, now time.Time) (persistence.MembershipRecord, error)
}

type postgresRepository struct {
	memberships *persistence.MembershipStore
	invites     *persistence.InviteCodeStore
}

// NewPostgresRepository builds a Repository backed by the shared persistence layer.
func NewPostgresRepository(memberships *persistence.MembershipStore, invites *persistence.InviteCodeStore) Repository {
	if memberships == nil {
		panic("membership store is required")
	}
	if invites == nil {
		panic("invite code store is required")
	}
	return &postgresRepository{memberships: memberships, invites: invites}
}

func (r *postgresRepository) GetMembership(ctx context.Context, id uuid.UUID) (persistence.MembershipRecord, error) {
	return r.memberships.Get(ctx, id)
}

func (r *postgresRepository) ResolveActiveRole(ctx context.Context, tenantID, userID uuid.UUID) (string, error) {
	return r.memberships.ResolveActiveRole(ctx, tenantID, userID)
}

func (r *postgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]persistence.MembershipWithProfile, error) {
	return r.memberships.ListByTenant(ctx, tenantID)
}

func (r *postgresRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]persistence.MembershipWithTenant, error) {
	return r.memberships.ListActiveByUser(ctx, userID)
}

func (r *postgresRepository) UpdateRoleStatus(ctx context.Context, id uuid.UUID, role, status string) (persistence.MembershipRecord, error) {
	return r.memberships.UpdateRoleStatus(ctx, id, role, status)
}

func (r *postgresRepository) DeleteMembership(ctx context.Context, id uuid.UUID) error {
	return r.memberships.Delete(ctx, id)
}

func (r *postgresRepository) CreateInviteCode(ctx context.Context, rec persistence.InviteCodeRecord) (persistence.InviteCodeRecord, error) {
	return r.invites.Create(ctx, rec)
}

func (r *postgresRepository) GetInviteCode(ctx context.Context, id uuid.UUID) (persistence.InviteCodeRecord, error) {
	return r.invites.Get(ctx, id)
}

func (r *postgresRepository) ListInviteCodes(ctx context.Context, tenantID uuid.UUID) ([]persistence.InviteCodeRecord, error) {
	return r.invites.ListByTenant(ctx, tenantID)
}

func (r *postgresRepository) DeactivateInviteCode(ctx context.Context, id uuid.UUID) error {
	return r.invites.Deactivate(ctx, id)
}

func (r *postgresRepository) RedeemInviteCode(ctx context.Context, code string, user persistence.ProfileRecord, now time.Time) (persistence.MembershipRecord, error) {
	return r.invites.Redeem(ctx, code, user, now)
}
