package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/sidelinehq/trophy-cabinet/domains/memberships/be/repo"
	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
	"github.com/sidelinehq/trophy-cabinet/platform/go/roles"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

// Domain-level error sentinel values.
var (
	ErrNotFound      = errors.New("membership not found")
	ErrForbidden     = errors.New("operation not allowed for this member")
	ErrCodeInvalid   = errors.New("invite code invalid")
	ErrCodeExpired   = errors.New("invite code expired")
	ErrCodeExhausted = errors.New("invite code exhausted")
)

// Invite codes avoid 0/O and 1/I so they survive being read aloud.
const (
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength      = 8
	codeMaxAttempts = 5
	minCodeLength   = 6
	maxCodeLength   = 20
)

// Member is a membership joined with the member's profile.
type Member struct {
	MembershipID uuid.UUID
	TenantID     uuid.UUID
	UserID       uuid.UUID
	Role         roles.Role
	Status       roles.Status
	JoinedAt     *time.Time
	DisplayName  *string
	AvatarURL    *string
}

// ClubMembership is a membership joined with its club, for the "my clubs" view.
type ClubMembership struct {
	MembershipID uuid.UUID
	Role         roles.Role
	Status       roles.Status
	JoinedAt     *time.Time
	TenantID     uuid.UUID
	TenantName   string
	TenantSlug   string
	TenantLogo   *string
}

// InviteCode is an invite code with its derived usability. Usable is computed
// on every read and never stored.
type InviteCode struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Code        string
	RoleDefault roles.Role
	ExpiresAt   *time.Time
	MaxUses     *int
	UsesCount   int
	IsActive    bool
	Usable      bool
	CreatedAt   time.Time
}

// IssueInput defines the payload for issuing an invite code.
type IssueInput struct {
	RoleDefault string
	MaxUses     *int
	ExpiresAt   *time.Time
}

// JoinResult describes the membership granted by a redeemed invite code.
type JoinResult struct {
	MembershipID uuid.UUID
	TenantID     uuid.UUID
	Role         roles.Role
	Status       roles.Status
	JoinedAt     *time.Time
}

// Service exposes the memberships domain operations: the member roster, role
// management and the invite code lifecycle. It also acts as the role
// directory the other domains authorize through.
type Service interface {
	ResolveRole(ctx context.Context, tenantID, userID uuid.UUID) (roles.Role, error)
	ListMembers(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]Member, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]ClubMembership, error)
	ChangeRole(ctx context.Context, actor uuid.UUID, membershipID uuid.UUID, role string) (Member, error)
	Remove(ctx context.Context, actor uuid.UUID, membershipID uuid.UUID) error
	IssueInviteCode(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input IssueInput) (InviteCode, error)
	ListInviteCodes(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]InviteCode, error)
	DeactivateInviteCode(ctx context.Context, actor uuid.UUID, codeID uuid.UUID) error
	Redeem(ctx context.Context, identity auth.Identity, code string) (JoinResult, error)
}

type service struct {
	repo domainrepo.Repository
	now  func() time.Time
}

// New builds a memberships Service backed by the provided repository.
func New(repo domainrepo.Repository) Service {
	if repo == nil {
		panic("memberships repository is required")
	}
	return &service{repo: repo, now: time.Now}
}

func (s *service) ResolveRole(ctx context.Context, tenantID, userID uuid.UUID) (roles.Role, error) {
	if tenantID == uuid.Nil || userID == uuid.Nil {
		return "", roles.ErrNoMembership
	}

	raw, err := s.repo.ResolveActiveRole(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return "", roles.ErrNoMembership
		}
		return "", err
	}

	role, err := roles.ParseRole(raw)
	if err != nil {
		return "", err
	}
	return role, nil
}

func (s *service) ListMembers(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]Member, error) {
	if err := s.requireAdminArea(ctx, tenantID, actor); err != nil {
		return nil, err
	}

	records, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(records))
	for _, record := range records {
		members = append(members, Member{
			MembershipID: record.Membership.ID,
			TenantID:     record.Membership.TenantID,
			UserID:       record.Membership.UserID,
			Role:         roles.Role(record.Membership.Role),
			Status:       roles.Status(record.Membership.Status),
			JoinedAt:     record.Membership.JoinedAt,
			DisplayName:  record.Profile.DisplayName,
			AvatarURL:    record.Profile.AvatarURL,
		})
	}
	return members, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]ClubMembership, error) {
	if userID == uuid.Nil {
		return nil, ErrForbidden
	}

	records, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	memberships := make([]ClubMembership, 0, len(records))
	for _, record := range records {
		memberships = append(memberships, ClubMembership{
			MembershipID: record.Membership.ID,
			Role:         roles.Role(record.Membership.Role),
			Status:       roles.Status(record.Membership.Status),
			JoinedAt:     record.Membership.JoinedAt,
			TenantID:     record.Tenant.ID,
			TenantName:   record.Tenant.Name,
			TenantSlug:   record.Tenant.Slug,
			TenantLogo:   record.Tenant.LogoURL,
		})
	}
	return memberships, nil
}

// ChangeRole overwrites the target's role and forces the membership active.
// Owner memberships are immutable through role management.
func (s *service) ChangeRole(ctx context.Context, actor uuid.UUID, membershipID uuid.UUID, role string) (Member, error) {
	parsed, err := roles.ParseRole(role)
	if err != nil {
		return Member{}, validation.NewError("role", err.Error())
	}
	if !parsed.Assignable() {
		return Member{}, validation.NewError("role", "role owner cannot be assigned")
	}

	target, err := s.targetMembership(ctx, actor, membershipID)
	if err != nil {
		return Member{}, err
	}
	if target.Role == roles.RoleOwner.String() {
		return Member{}, ErrForbidden
	}

	updated, err := s.repo.UpdateRoleStatus(ctx, membershipID, parsed.String(), roles.StatusActive.String())
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Member{}, ErrNotFound
		}
		return Member{}, err
	}

	return Member{
		MembershipID: updated.ID,
		TenantID:     updated.TenantID,
		UserID:       updated.UserID,
		Role:         roles.Role(updated.Role),
		Status:       roles.Status(updated.Status),
		JoinedAt:     updated.JoinedAt,
	}, nil
}

// Remove deletes a membership. The owner cannot be removed.
func (s *service) Remove(ctx context.Context, actor uuid.UUID, membershipID uuid.UUID) error {
	target, err := s.targetMembership(ctx, actor, membershipID)
	if err != nil {
		return err
	}
	if target.Role == roles.RoleOwner.String() {
		return ErrForbidden
	}

	if err := s.repo.DeleteMembership(ctx, membershipID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *service) IssueInviteCode(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input IssueInput) (InviteCode, error) {
	if err := s.requireAdminArea(ctx, tenantID, actor); err != nil {
		return InviteCode{}, err
	}

	roleDefault, validationErr := s.validateIssueInput(input)
	if validationErr != nil {
		return InviteCode{}, validationErr
	}

	// The code space is large enough that collisions are rare; retry a few
	// times on the unique constraint rather than checking first.
	for attempt := 0; attempt < codeMaxAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return InviteCode{}, err
		}

		rec, err := s.repo.CreateInviteCode(ctx, persistence.InviteCodeRecord{
			ID:              uuid.New(),
			TenantID:        tenantID,
			Code:            code,
			RoleDefault:     roleDefault.String(),
			ExpiresAt:       input.ExpiresAt,
			MaxUses:         input.MaxUses,
			IsActive:        true,
			CreatedByUserID: &actor,
		})
		if err != nil {
			if errors.Is(err, persistence.ErrConflict) {
				continue
			}
			return InviteCode{}, err
		}
		return s.mapInviteCode(rec), nil
	}

	return InviteCode{}, errors.New("exhausted invite code generation attempts")
}

func (s *service) ListInviteCodes(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]InviteCode, error) {
	if err := s.requireAdminArea(ctx, tenantID, actor); err != nil {
		return nil, err
	}

	records, err := s.repo.ListInviteCodes(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	codes := make([]InviteCode, 0, len(records))
	for _, record := range records {
		codes = append(codes, s.mapInviteCode(record))
	}
	return codes, nil
}

// DeactivateInviteCode retires a code. Terminal, no reactivation path.
func (s *service) DeactivateInviteCode(ctx context.Context, actor uuid.UUID, codeID uuid.UUID) error {
	rec, err := s.repo.GetInviteCode(ctx, codeID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.requireAdminArea(ctx, rec.TenantID, actor); err != nil {
		return err
	}

	if err := s.repo.DeactivateInviteCode(ctx, codeID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Redeem joins the caller to the code's club. Codes compare
// case-insensitively; the stored form is uppercase. The caller's profile is
// provisioned from the token claims alongside the membership, so joining can
// be a brand-new user's first call.
func (s *service) Redeem(ctx context.Context, identity auth.Identity, code string) (JoinResult, error) {
	userID := identity.UserID()
	if userID == uuid.Nil {
		return JoinResult{}, ErrForbidden
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) < minCodeLength || len(normalized) > maxCodeLength {
		return JoinResult{}, ErrCodeInvalid
	}

	membership, err := s.repo.RedeemInviteCode(ctx, normalized, persistence.ProfileRecord{
		ID:          userID,
		DisplayName: identity.DisplayName(),
		AvatarURL:   identity.Picture(),
	}, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrNotFound), errors.Is(err, persistence.ErrInviteInactive):
			return JoinResult{}, ErrCodeInvalid
		case errors.Is(err, persistence.ErrInviteExpired):
			return JoinResult{}, ErrCodeExpired
		case errors.Is(err, persistence.ErrInviteExhausted):
			return JoinResult{}, ErrCodeExhausted
		default:
			return JoinResult{}, err
		}
	}

	return JoinResult{
		MembershipID: membership.ID,
		TenantID:     membership.TenantID,
		Role:         roles.Role(membership.Role),
		Status:       roles.Status(membership.Status),
		JoinedAt:     membership.JoinedAt,
	}, nil
}

func (s *service) requireAdminArea(ctx context.Context, tenantID, actor uuid.UUID) error {
	role, err := s.ResolveRole(ctx, tenantID, actor)
	if err != nil {
		if errors.Is(err, roles.ErrNoMembership) {
			return ErrForbidden
		}
		return err
	}
	if !role.AdminArea() {
		return ErrForbidden
	}
	return nil
}

// targetMembership loads the membership being managed and checks the actor
// holds an admin-area role in the same club.
func (s *service) targetMembership(ctx context.Context, actor uuid.UUID, membershipID uuid.UUID) (persistence.MembershipRecord, error) {
	target, err := s.repo.GetMembership(ctx, membershipID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.MembershipRecord{}, ErrNotFound
		}
		return persistence.MembershipRecord{}, err
	}

	if err := s.requireAdminArea(ctx, target.TenantID, actor); err != nil {
		return persistence.MembershipRecord{}, err
	}
	return target, nil
}

func (s *service) validateIssueInput(input IssueInput) (roles.Role, error) {
	errs := validation.FieldErrors{}

	roleDefault := roles.RolePlayer
	if strings.TrimSpace(input.RoleDefault) != "" {
		parsed, err := roles.ParseRole(input.RoleDefault)
		switch {
		case err != nil:
			errs.Add("roleDefault", err.Error())
		case !parsed.Assignable():
			errs.Add("roleDefault", "role owner cannot be granted by invite")
		default:
			roleDefault = parsed
		}
	}

	if input.MaxUses != nil && *input.MaxUses < 1 {
		errs.Add("maxUses", "maxUses must be at least 1")
	}

	if input.ExpiresAt != nil && !input.ExpiresAt.After(s.now()) {
		errs.Add("expiresAt", "expiresAt must be in the future")
	}

	if len(errs) > 0 {
		return "", &validation.Error{Fields: errs}
	}
	return roleDefault, nil
}

func (s *service) mapInviteCode(rec persistence.InviteCodeRecord) InviteCode {
	return InviteCode{
		ID:          rec.ID,
		TenantID:    rec.TenantID,
		Code:        rec.Code,
		RoleDefault: roles.Role(rec.RoleDefault),
		ExpiresAt:   rec.ExpiresAt,
		MaxUses:     rec.MaxUses,
		UsesCount:   rec.UsesCount,
		IsActive:    rec.IsActive,
		Usable:      s.usable(rec),
		CreatedAt:   rec.CreatedAt,
	}
}

func (s *service) usable(rec persistence.InviteCodeRecord) bool {
	if !rec.IsActive {
		return false
	}
	if rec.ExpiresAt != nil && !rec.ExpiresAt.After(s.now()) {
		return false
	}
	if rec.MaxUses != nil && rec.UsesCount >= *rec.MaxUses {
		return false
	}
	return true
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
