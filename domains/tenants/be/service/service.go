package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/sidelinehq/trophy-cabinet/domains/tenants/be/repo"
	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
	"github.com/sidelinehq/trophy-cabinet/platform/go/roles"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

// Domain-level error sentinel values.
var (
	ErrNotFound     = errors.New("club not found")
	ErrSlugConflict = errors.New("club slug already taken")
	ErrForbidden    = errors.New("operation not allowed for this member")
)

const (
	maxSlugLength = 100
	minNameLength = 2
	maxNameLength = 255
)

// Club represents a tenant as exposed by the domain service.
type Club struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	LogoURL   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput defines the payload required to create a club.
type CreateInput struct {
	Name string
	Slug string
}

// UpdateInput defines the fields that can be modified for an existing club.
type UpdateInput struct {
	Name    *string
	LogoURL *string
}

// Directory resolves the caller's active role inside a club.
type Directory interface {
	ResolveRole(ctx context.Context, tenantID, userID uuid.UUID) (roles.Role, error)
}

// Service exposes the clubs domain operations. Every mutating operation
// takes the acting user's id explicitly.
type Service interface {
	Create(ctx context.Context, identity auth.Identity, input CreateInput) (Club, error)
	Get(ctx context.Context, actor uuid.UUID, id uuid.UUID) (Club, error)
	GetBySlug(ctx context.Context, slug string) (Club, error)
	Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, input UpdateInput) (Club, error)
}

type service struct {
	repo      domainrepo.Repository
	directory Directory
}

// New builds a clubs Service backed by the provided repository.
func New(repo domainrepo.Repository, directory Directory) Service {
	if repo == nil {
		panic("tenants repository is required")
	}
	if directory == nil {
		panic("membership directory is required")
	}
	return &service{repo: repo, directory: directory}
}

// Create provisions a club and makes the caller its owner in one step. A club
// never exists without an owner membership, and the owner's profile row is
// provisioned from the token claims in the same transaction, so club creation
// can be a brand-new user's first call.
func (s *service) Create(ctx context.Context, identity auth.Identity, input CreateInput) (Club, error) {
	actor := identity.UserID()
	if actor == uuid.Nil {
		return Club{}, ErrForbidden
	}

	normalized, validationErr := validateCreateInput(input)
	if validationErr != nil {
		return Club{}, validationErr
	}

	rec, _, err := s.repo.CreateWithOwner(ctx, persistence.TenantRecord{
		ID:   uuid.New(),
		Name: normalized.name,
		Slug: normalized.slug,
	}, persistence.ProfileRecord{
		ID:          actor,
		DisplayName: identity.DisplayName(),
		AvatarURL:   identity.Picture(),
	})
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			return Club{}, ErrSlugConflict
		}
		return Club{}, err
	}

	return mapClub(rec), nil
}

func (s *service) Get(ctx context.Context, actor uuid.UUID, id uuid.UUID) (Club, error) {
	if _, err := s.requireRole(ctx, id, actor, roles.RolePlayer); err != nil {
		return Club{}, err
	}

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Club{}, ErrNotFound
		}
		return Club{}, err
	}

	return mapClub(rec), nil
}

// GetBySlug serves the public club lookup used by join and showcase pages.
func (s *service) GetBySlug(ctx context.Context, slug string) (Club, error) {
	normalized, err := persistence.NormalizeSlug(slug)
	if err != nil {
		return Club{}, ErrNotFound
	}

	rec, err := s.repo.GetBySlug(ctx, normalized)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Club{}, ErrNotFound
		}
		return Club{}, err
	}

	return mapClub(rec), nil
}

func (s *service) Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, input UpdateInput) (Club, error) {
	if _, err := s.requireRole(ctx, id, actor, roles.RoleAdmin); err != nil {
		return Club{}, err
	}

	params, validationErr := validateUpdateInput(input)
	if validationErr != nil {
		return Club{}, validationErr
	}

	rec, err := s.repo.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Club{}, ErrNotFound
		}
		return Club{}, err
	}

	return mapClub(rec), nil
}

func (s *service) requireRole(ctx context.Context, tenantID, actor uuid.UUID, minimum roles.Role) (roles.Role, error) {
	if actor == uuid.Nil {
		return "", ErrForbidden
	}

	role, err := s.directory.ResolveRole(ctx, tenantID, actor)
	if err != nil {
		if errors.Is(err, roles.ErrNoMembership) {
			return "", ErrForbidden
		}
		return "", err
	}

	if !role.AtLeast(minimum) {
		return "", ErrForbidden
	}
	return role, nil
}

type normalizedCreateInput struct {
	name string
	slug string
}

func validateCreateInput(input CreateInput) (normalizedCreateInput, error) {
	errs := validation.FieldErrors{}

	name := strings.TrimSpace(input.Name)
	if len(name) < minNameLength || len(name) > maxNameLength {
		errs.Add("name", "name must be between 2 and 255 characters")
	}

	slug, err := persistence.NormalizeSlug(input.Slug)
	if err != nil {
		errs.Add("slug", err.Error())
	} else if len(slug) < 2 || len(slug) > maxSlugLength {
		errs.Add("slug", "slug must be between 2 and 100 characters")
	}

	if len(errs) > 0 {
		return normalizedCreateInput{}, &validation.Error{Fields: errs}
	}

	return normalizedCreateInput{name: name, slug: slug}, nil
}

func validateUpdateInput(input UpdateInput) (persistence.UpdateTenantParams, error) {
	errs := validation.FieldErrors{}
	var params persistence.UpdateTenantParams

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) < minNameLength || len(name) > maxNameLength {
			errs.Add("name", "name must be between 2 and 255 characters")
		} else {
			params.Name = &name
		}
	}

	if input.LogoURL != nil {
		logo := strings.TrimSpace(*input.LogoURL)
		if logo == "" {
			errs.Add("logoUrl", "logoUrl must not be empty")
		} else {
			params.LogoURL = &logo
		}
	}

	if input.Name == nil && input.LogoURL == nil {
		errs.Add("body", "at least one field must be provided")
	}

	if len(errs) > 0 {
		return persistence.UpdateTenantParams{}, &validation.Error{Fields: errs}
	}

	return params, nil
}

func mapClub(rec persistence.TenantRecord) Club {
	return Club{
		ID:        rec.ID,
		Name:      rec.Name,
		Slug:      rec.Slug,
		LogoURL:   rec.LogoURL,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
