package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sidelinehq/trophy-cabinet/domains/awards/be/repo"
	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
	"github.com/sidelinehq/trophy-cabinet/platform/go/roles"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

var (
	ErrNotFound  = errors.New("award not found")
	ErrForbidden = errors.New("operation not allowed")
)

const maxNotesLength = 2000

// TemplateSummary is the slice of a trophy template an award view needs.
type TemplateSummary struct {
	ID      uuid.UUID
	Name    string
	IconURL *string
	Tier    *string
	Points  int
}

// Person identifies a profile referenced by an award.
type Person struct {
	ID          uuid.UUID
	DisplayName *string
	AvatarURL   *string
}

type Season struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
	IsActive  bool
	CreatedAt time.Time
}

type Team struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	SeasonID  *uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Award is a fully resolved award instance.
type Award struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Template  TemplateSummary
	Recipient Person
	AwardedBy Person
	Season    *Season
	Team      *Team
	AwardedAt time.Time
	Notes     *string
	IsPublic  bool
	CreatedAt time.Time
}

// CreateInput carries the fields accepted when handing out an award.
type CreateInput struct {
	TrophyTemplateID uuid.UUID
	RecipientUserID  uuid.UUID
	SeasonID         *uuid.UUID
	TeamID           *uuid.UUID
	Notes            *string
	IsPublic         bool
}

type SeasonInput struct {
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
	IsActive  bool
}

type TeamInput struct {
	Name     string
	SeasonID *uuid.UUID
}

// Directory resolves the actor's role inside a club.
type Directory interface {
	ResolveRole(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) (roles.Role, error)
}

// Service hands out and reads back awards, plus the season and team
// catalogs the award form is built from.
type Service interface {
	Create(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input CreateInput) (Award, error)
	Delete(ctx context.Context, actor uuid.UUID, awardID uuid.UUID) error
	Get(ctx context.Context, actor uuid.UUID, awardID uuid.UUID) (Award, error)
	ListForTenant(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]Award, error)
	ListForRecipient(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, recipientID uuid.UUID) ([]Award, error)
	CreateSeason(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input SeasonInput) (Season, error)
	ListSeasons(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]Season, error)
	CreateTeam(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input TeamInput) (Team, error)
	ListTeams(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]Team, error)
}

type service struct {
	repo      repo.Repository
	directory Directory
	now       func() time.Time
}

// New builds the awards Service.
func New(repository repo.Repository, directory Directory) Service {
	if repository == nil {
		panic("repository is required")
	}
	if directory == nil {
		panic("directory is required")
	}
	return &service{repo: repository, directory: directory, now: time.Now}
}

func (s *service) Create(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input CreateInput) (Award, error) {
	if err := s.requireAdminArea(ctx, tenantID, actor); err != nil {
		return Award{}, err
	}

	errs := validation.FieldErrors{}
	if input.TrophyTemplateID == uuid.Nil {
		errs.Add("trophyTemplateId", "trophy template is required")
	}
	if input.RecipientUserID == uuid.Nil {
		errs.Add("recipientUserId", "recipient is required")
	}
	if input.Notes != nil && len(strings.TrimSpace(*input.Notes)) > maxNotesLength {
		errs.Add("notes", fmt.Sprintf("notes must be at most %d characters", maxNotesLength))
	}
	if len(errs) > 0 {
		return Award{}, &validation.Error{Fields: errs}
	}

	// Every reference must stay inside the club. A template owned by another
	// club must look like it does not exist.
	template, err := s.repo.GetTemplate(ctx, input.TrophyTemplateID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Award{}, ErrNotFound
		}
		return Award{}, fmt.Errorf("resolving template: %w", err)
	}
	if template.TenantID != tenantID {
		return Award{}, ErrNotFound
	}

	if _, err := s.directory.ResolveRole(ctx, tenantID, input.RecipientUserID); err != nil {
		if errors.Is(err, roles.ErrNoMembership) {
			return Award{}, validation.NewError("recipientUserId", "recipient must be an active member of the club")
		}
		return Award{}, fmt.Errorf("resolving recipient: %w", err)
	}

	if input.SeasonID != nil {
		season, err := s.repo.GetSeason(ctx, *input.SeasonID)
		if err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return Award{}, fmt.Errorf("resolving season: %w", err)
		}
		if err != nil || season.TenantID != tenantID {
			return Award{}, validation.NewError("seasonId", "season does not belong to this club")
		}
	}
	if input.TeamID != nil {
		team, err := s.repo.GetTeam(ctx, *input.TeamID)
		if err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return Award{}, fmt.Errorf("resolving team: %w", err)
		}
		if err != nil || team.TenantID != tenantID {
			return Award{}, validation.NewError("teamId", "team does not belong to this club")
		}
	}

	var notes *string
	if input.Notes != nil {
		trimmed := strings.TrimSpace(*input.Notes)
		if trimmed != "" {
			notes = &trimmed
		}
	}

	created, err := s.repo.CreateAward(ctx, persistence.AwardRecord{
		TenantID:         tenantID,
		TrophyTemplateID: input.TrophyTemplateID,
		SeasonID:         input.SeasonID,
		TeamID:           input.TeamID,
		RecipientUserID:  input.RecipientUserID,
		AwardedByUserID:  actor,
		AwardedAt:        s.now().UTC(),
		Notes:            notes,
		IsPublic:         input.IsPublic,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Award{}, ErrNotFound
		}
		return Award{}, fmt.Errorf("creating award: %w", err)
	}

	details, err := s.repo.GetAwardDetails(ctx, created.ID)
	if err != nil {
		return Award{}, fmt.Errorf("reading back award: %w", err)
	}
	return toAward(details), nil
}

func (s *service) Delete(ctx context.Context, actor uuid.UUID, awardID uuid.UUID) error {
	details, err := s.repo.GetAwardDetails(ctx, awardID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("resolving award: %w", err)
	}
	if err := s.requireAdminArea(ctx, details.Award.TenantID, actor); err != nil {
		return err
	}

	if err := s.repo.DeleteAward(ctx, awardID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting award: %w", err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor uuid.UUID, awardID uuid.UUID) (Award, error) {
	details, err := s.repo.GetAwardDetails(ctx, awardID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Award{}, ErrNotFound
		}
		return Award{}, fmt.Errorf("loading award: %w", err)
	}
	if err := s.requireMember(ctx, details.Award.TenantID, actor); err != nil {
		return Award{}, err
	}
	return toAward(details), nil
}

func (s *service) ListForTenant(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]Award, error) {
	if err := s.requireMember(ctx, tenantID, actor); err != nil {
		return nil, err
	}
	return s.list(ctx, tenantID, nil)
}

func (s *service) ListForRecipient(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, recipientID uuid.UUID) ([]Award, error) {
	role, err := s.resolveRole(ctx, tenantID, actor)
	if err != nil {
		return nil, err
	}
	// Players may only browse their own cabinet.
	if actor != recipientID && !role.AdminArea() {
		return nil, ErrForbidden
	}
	return s.list(ctx, tenantID, &recipientID)
}

func (s *service) list(ctx context.Context, tenantID uuid.UUID, recipient *uuid.UUID) ([]Award, error) {
	records, err := s.repo.ListAwardDetails(ctx, tenantID, recipient)
	if err != nil {
		return nil, fmt.Errorf("listing awards: %w", err)
	}
	awards := make([]Award, 0, len(records))
	for _, rec := range records {
		awards = append(awards, toAward(rec))
	}
	return awards, nil
}

func (s *service) CreateSeason(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input SeasonInput) (Season, error) {
	if err := s.requireAdminArea(ctx, tenantID, actor); err != nil {
		return Season{}, err
	}

	errs := validation.FieldErrors{}
	name := strings.TrimSpace(input.Name)
	if len(name) < 2 || len(name) > 255 {
		errs.Add("name", "name must be between 2 and 255 characters")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		errs.Add("endDate", "end date must not precede start date")
	}
	if len(errs) > 0 {
		return Season{}, &validation.Error{Fields: errs}
	}

	created, err := s.repo.CreateSeason(ctx, persistence.SeasonRecord{
		TenantID:  tenantID,
		Name:      name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		IsActive:  input.IsActive,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Season{}, ErrNotFound
		}
		return Season{}, fmt.Errorf("creating season: %w", err)
	}
	return toSeason(created), nil
}

func (s *service) ListSeasons(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]Season, error) {
	if err := s.requireMember(ctx, tenantID, actor); err != nil {
		return nil, err
	}
	records, err := s.repo.ListSeasons(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing seasons: %w", err)
	}
	seasons := make([]Season, 0, len(records))
	for _, rec := range records {
		seasons = append(seasons, toSeason(rec))
	}
	return seasons, nil
}

func (s *service) CreateTeam(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input TeamInput) (Team, error) {
	if err := s.requireAdminArea(ctx, tenantID, actor); err != nil {
		return Team{}, err
	}

	name := strings.TrimSpace(input.Name)
	if len(name) < 2 || len(name) > 255 {
		return Team{}, validation.NewError("name", "name must be between 2 and 255 characters")
	}

	created, err := s.repo.CreateTeam(ctx, persistence.TeamRecord{
		TenantID: tenantID,
		SeasonID: input.SeasonID,
		Name:     name,
	})
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Team{}, ErrNotFound
		}
		return Team{}, fmt.Errorf("creating team: %w", err)
	}
	return toTeam(created), nil
}

func (s *service) ListTeams(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID) ([]Team, error) {
	if err := s.requireMember(ctx, tenantID, actor); err != nil {
		return nil, err
	}
	records, err := s.repo.ListTeams(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	teams := make([]Team, 0, len(records))
	for _, rec := range records {
		teams = append(teams, toTeam(rec))
	}
	return teams, nil
}

func (s *service) resolveRole(ctx context.Context, tenantID uuid.UUID, actor uuid.UUID) (roles.Role, error) {
	role, err := s.directory.ResolveRole(ctx, tenantID, actor)
	if err != nil {
		if errors.Is(err, roles.ErrNoMembership) {
			return "", ErrForbidden
		}
		return "", fmt.Errorf("resolving role: %w", err)
	}
	return role, nil
}

func (s *service) requireAdminArea(ctx context.Context, tenantID uuid.UUID, actor uuid.UUID) error {
	role, err := s.resolveRole(ctx, tenantID, actor)
	if err != nil {
		return err
	}
	if !role.AdminArea() {
		return ErrForbidden
	}
	return nil
}

func (s *service) requireMember(ctx context.Context, tenantID uuid.UUID, actor uuid.UUID) error {
	_, err := s.resolveRole(ctx, tenantID, actor)
	return err
}

func toAward(rec persistence.AwardDetailsRecord) Award {
	award := Award{
		ID:       rec.Award.ID,
		TenantID: rec.Award.TenantID,
		Template: TemplateSummary{
			ID:      rec.Template.ID,
			Name:    rec.Template.Name,
			IconURL: rec.Template.IconURL,
			Tier:    rec.Template.Tier,
			Points:  rec.Template.Points,
		},
		Recipient: Person{
			ID:          rec.Recipient.ID,
			DisplayName: rec.Recipient.DisplayName,
			AvatarURL:   rec.Recipient.AvatarURL,
		},
		AwardedBy: Person{
			ID:          rec.AwardedBy.ID,
			DisplayName: rec.AwardedBy.DisplayName,
			AvatarURL:   rec.AwardedBy.AvatarURL,
		},
		AwardedAt: rec.Award.AwardedAt,
		Notes:     rec.Award.Notes,
		IsPublic:  rec.Award.IsPublic,
		CreatedAt: rec.Award.CreatedAt,
	}
	if rec.Season != nil {
		season := toSeason(*rec.Season)
		award.Season = &season
	}
	if rec.Team != nil {
		team := toTeam(*rec.Team)
		award.Team = &team
	}
	return award
}

func toSeason(rec persistence.SeasonRecord) Season {
	return Season{
		ID:        rec.ID,
		TenantID:  rec.TenantID,
		Name:      rec.Name,
		StartDate: rec.StartDate,
		EndDate:   rec.EndDate,
		IsActive:  rec.IsActive,
		CreatedAt: rec.CreatedAt,
	}
}

func toTeam(rec persistence.TeamRecord) Team {
	return Team{
		ID:        rec.ID,
		TenantID:  rec.TenantID,
		SeasonID:  rec.SeasonID,
		Name:      rec.Name,
		CreatedAt: rec.CreatedAt,
	}
}
