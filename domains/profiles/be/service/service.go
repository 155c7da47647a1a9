package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/sidelinehq/trophy-cabinet/domains/profiles/be/repo"
	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

// ErrNotFound is returned when no profile exists for the user.
var ErrNotFound = errors.New("profile not found")

const (
	minDisplayNameLength = 2
	maxDisplayNameLength = 255
)

// Profile represents a user profile as exposed by the domain service.
type Profile struct {
	UserID      uuid.UUID
	DisplayName *string
	AvatarURL   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpdateInput defines the fields a user may change on their own profile.
type UpdateInput struct {
	DisplayName *string
	AvatarURL   *string
}

// Service exposes the profiles domain operations.
type Service interface {
	// Ensure upserts a profile from verified token claims. It runs on the
	// first authenticated touch of the API, standing in for a registration
	// hook: an existing display name or avatar is never overwritten.
	Ensure(ctx context.Context, identity auth.Identity) (Profile, error)
	Get(ctx context.Context, userID uuid.UUID) (Profile, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (Profile, error)
}

type service struct {
	repo domainrepo.Repository
}

// New builds a profiles Service backed by the provided repository.
func New(repo domainrepo.Repository) Service {
	if repo == nil {
		panic("profiles repository is required")
	}
	return &service{repo: repo}
}

func (s *service) Ensure(ctx context.Context, identity auth.Identity) (Profile, error) {
	rec := persistence.ProfileRecord{ID: identity.UserID()}

	rec.DisplayName = identity.DisplayName()
	rec.AvatarURL = identity.Picture()

	stored, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return Profile{}, err
	}
	return mapProfile(stored), nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (Profile, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return mapProfile(rec), nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input UpdateInput) (Profile, error) {
	params, validationErr := validateUpdateInput(input)
	if validationErr != nil {
		return Profile{}, validationErr
	}

	rec, err := s.repo.Update(ctx, userID, params)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return mapProfile(rec), nil
}

func validateUpdateInput(input UpdateInput) (persistence.UpdateProfileParams, error) {
	errs := validation.FieldErrors{}
	var params persistence.UpdateProfileParams

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if len(name) < minDisplayNameLength || len(name) > maxDisplayNameLength {
			errs.Add("displayName", "displayName must be between 2 and 255 characters")
		} else {
			params.DisplayName = &name
		}
	}

	if input.AvatarURL != nil {
		avatar := strings.TrimSpace(*input.AvatarURL)
		parsed, err := url.Parse(avatar)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errs.Add("avatarUrl", "avatarUrl must be an absolute http(s) URL")
		} else {
			params.AvatarURL = &avatar
		}
	}

	if input.DisplayName == nil && input.AvatarURL == nil {
		errs.Add("body", "at least one field must be provided")
	}

	if len(errs) > 0 {
		return persistence.UpdateProfileParams{}, &validation.Error{Fields: errs}
	}
	return params, nil
}

func mapProfile(rec persistence.ProfileRecord) Profile {
	return Profile{
		UserID:      rec.ID,
		DisplayName: rec.DisplayName,
		AvatarURL:   rec.AvatarURL,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}
