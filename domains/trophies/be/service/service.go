package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/sidelinehq/trophy-cabinet/domains/trophies/be/repo"
	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
	"github.com/sidelinehq/trophy-cabinet/platform/go/roles"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

// Domain-level error sentinel values.
var (
	ErrNotFound  = errors.New("trophy template not found")
	ErrForbidden = errors.New("operation not allowed for this member")
)

// Tier grades a trophy template. The zero value means ungraded.
type Tier string

const (
	TierGold    Tier = "gold"
	TierSilver  Tier = "silver"
	TierBronze  Tier = "bronze"
	TierSpecial Tier = "special"
)

// ParseTier validates a submitted tier string.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TierGold, TierSilver, TierBronze, TierSpecial:
		return t, nil
	}
	return "", errors.New("tier must be one of gold, silver, bronze, special")
}

const (
	minNameLength        = 2
	maxNameLength        = 255
	maxDescriptionLength = 1000
)

// Template represents a trophy template as exposed by the domain service.
type Template struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description *string
	IconURL     *string
	Tier        *Tier
	Points      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput defines the payload required to create a trophy template.
type CreateInput struct {
	Name        string
	Description *string
	IconURL     *string
	Tier        *string
	Points      int
}

// UpdateInput defines the fields that can be modified on a template.
type UpdateInput struct {
	Name        *string
	Description *string
	IconURL     *string
	Tier        *string
	Points      *int
}

// Directory resolves the caller's active role inside a club.
type Directory interface {
	ResolveRole(ctx context.Context, tenantID, userID uuid.UUID) (roles.Role, error)
}

// Service exposes the trophy catalog operations. Catalog management needs an
// admin-area role; viewing needs any active membership.
type Service interface {
	Create(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input CreateInput) (Template, error)
	Get(ctx context.Context, actor uuid.UUID, templateID uuid.UUID) (Template, error)
	List(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]Template, error)
	Update(ctx context.Context, actor uuid.UUID, templateID uuid.UUID, input UpdateInput) (Template, error)
	// Delete removes the template and every award that references it,
	// returning how many awards went with it.
	Delete(ctx context.Context, actor uuid.UUID, templateID uuid.UUID) (int64, error)
}

type service struct {
	repo      domainrepo.Repository
	directory Directory
}

// New builds a trophies Service backed by the provided repository.
func New(repo domainrepo.Repository, directory Directory) Service {
	if repo == nil {
		panic("trophies repository is required")
	}
	if directory == nil {
		panic("membership directory is required")
	}
	return &service{repo: repo, directory: directory}
}

func (s *service) Create(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input CreateInput) (Template, error) {
	if err := s.requireAdminArea(ctx, tenantID, actor); err != nil {
		return Template{}, err
	}

	normalized, validationErr := validateCreateInput(input)
	if validationErr != nil {
		return Template{}, validationErr
	}

	rec, err := s.repo.Create(ctx, persistence.TrophyTemplateRecord{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        normalized.name,
		Description: input.Description,
		IconURL:     input.IconURL,
		Tier:        normalized.tier,
		Points:      input.Points,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Template{}, ErrNotFound
		}
		return Template{}, err
	}
	return mapTemplate(rec), nil
}

func (s *service) Get(ctx context.Context, actor uuid.UUID, templateID uuid.UUID) (Template, error) {
	rec, err := s.repo.Get(ctx, templateID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Template{}, ErrNotFound
		}
		return Template{}, err
	}

	if err := s.requireMember(ctx, rec.TenantID, actor); err != nil {
		return Template{}, err
	}
	return mapTemplate(rec), nil
}

func (s *service) List(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]Template, error) {
	if err := s.requireMember(ctx, tenantID, actor); err != nil {
		return nil, err
	}

	records, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	templates := make([]Template, 0, len(records))
	for _, record := range records {
		templates = append(templates, mapTemplate(record))
	}
	return templates, nil
}

func (s *service) Update(ctx context.Context, actor uuid.UUID, templateID uuid.UUID, input UpdateInput) (Template, error) {
	existing, err := s.repo.Get(ctx, templateID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Template{}, ErrNotFound
		}
		return Template{}, err
	}

	if err := s.requireAdminArea(ctx, existing.TenantID, actor); err != nil {
		return Template{}, err
	}

	params, validationErr := validateUpdateInput(input)
	if validationErr != nil {
		return Template{}, validationErr
	}

	rec, err := s.repo.Update(ctx, templateID, params)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Template{}, ErrNotFound
		}
		return Template{}, err
	}
	return mapTemplate(rec), nil
}

func (s *service) Delete(ctx context.Context, actor uuid.UUID, templateID uuid.UUID) (int64, error) {
	existing, err := s.repo.Get(ctx, templateID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	if err := s.requireAdminArea(ctx, existing.TenantID, actor); err != nil {
		return 0, err
	}

	removed, err := s.repo.DeleteCascade(ctx, templateID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return removed, nil
}

func (s *service) requireAdminArea(ctx context.Context, tenantID, actor uuid.UUID) error {
	role, err := s.resolveRole(ctx, tenantID, actor)
	if err != nil {
		return err
	}
	if !role.AdminArea() {
		return ErrForbidden
	}
	return nil
}

func (s *service) requireMember(ctx context.Context, tenantID, actor uuid.UUID) error {
	_, err := s.resolveRole(ctx, tenantID, actor)
	return err
}

func (s *service) resolveRole(ctx context.Context, tenantID, actor uuid.UUID) (roles.Role, error) {
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
	return role, nil
}

type normalizedCreateInput struct {
	name string
	tier *string
}

func validateCreateInput(input CreateInput) (normalizedCreateInput, error) {
	errs := validation.FieldErrors{}
	var normalized normalizedCreateInput

	name := strings.TrimSpace(input.Name)
	if len(name) < minNameLength || len(name) > maxNameLength {
		errs.Add("name", "name must be between 2 and 255 characters")
	} else {
		normalized.name = name
	}

	if input.Description != nil && len(*input.Description) > maxDescriptionLength {
		errs.Add("description", "description must be at most 1000 characters")
	}

	if input.Points < 0 {
		errs.Add("points", "points must be zero or positive")
	}

	if input.Tier != nil {
		tier, err := ParseTier(*input.Tier)
		if err != nil {
			errs.Add("tier", err.Error())
		} else {
			value := string(tier)
			normalized.tier = &value
		}
	}

	if len(errs) > 0 {
		return normalizedCreateInput{}, &validation.Error{Fields: errs}
	}
	return normalized, nil
}

func validateUpdateInput(input UpdateInput) (persistence.UpdateTrophyTemplateParams, error) {
	errs := validation.FieldErrors{}
	var params persistence.UpdateTrophyTemplateParams

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) < minNameLength || len(name) > maxNameLength {
			errs.Add("name", "name must be between 2 and 255 characters")
		} else {
			params.Name = &name
		}
	}

	if input.Description != nil {
		if len(*input.Description) > maxDescriptionLength {
			errs.Add("description", "description must be at most 1000 characters")
		} else {
			params.Description = input.Description
		}
	}

	if input.IconURL != nil {
		params.IconURL = input.IconURL
	}

	if input.Tier != nil {
		tier, err := ParseTier(*input.Tier)
		if err != nil {
			errs.Add("tier", err.Error())
		} else {
			value := string(tier)
			params.Tier = &value
		}
	}

	if input.Points != nil {
		if *input.Points < 0 {
			errs.Add("points", "points must be zero or positive")
		} else {
			params.Points = input.Points
		}
	}

	if input.Name == nil && input.Description == nil && input.IconURL == nil &&
		input.Tier == nil && input.Points == nil {
		errs.Add("body", "at least one field must be provided")
	}

	if len(errs) > 0 {
		return persistence.UpdateTrophyTemplateParams{}, &validation.Error{Fields: errs}
	}
	return params, nil
}

func mapTemplate(rec persistence.TrophyTemplateRecord) Template {
	template := Template{
		ID:          rec.ID,
		TenantID:    rec.TenantID,
		Name:        rec.Name,
		Description: rec.Description,
		IconURL:     rec.IconURL,
		Points:      rec.Points,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if rec.Tier != nil {
		tier := Tier(*rec.Tier)
		template.Tier = &tier
	}
	return template
}
