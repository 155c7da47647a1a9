package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
	"github.com/sidelinehq/trophy-cabinet/platform/go/roles"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

type memoryRepo struct {
	mu        sync.Mutex
	templates map[uuid.UUID]persistence.TrophyTemplateRecord
	profiles  map[uuid.UUID]persistence.ProfileRecord
	seasons   map[uuid.UUID]persistence.SeasonRecord
	teams     map[uuid.UUID]persistence.TeamRecord
	awards    map[uuid.UUID]persistence.AwardRecord
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		templates: map[uuid.UUID]persistence.TrophyTemplateRecord{},
		profiles:  map[uuid.UUID]persistence.ProfileRecord{},
		seasons:   map[uuid.UUID]persistence.SeasonRecord{},
		teams:     map[uuid.UUID]persistence.TeamRecord{},
		awards:    map[uuid.UUID]persistence.AwardRecord{},
	}
}

func (m *memoryRepo) CreateAward(_ context.Context, rec persistence.AwardRecord) (persistence.AwardRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[rec.TrophyTemplateID]; !ok {
		return persistence.AwardRecord{}, persistence.ErrNotFound
	}
	if _, ok := m.profiles[rec.RecipientUserID]; !ok {
		return persistence.AwardRecord{}, persistence.ErrNotFound
	}
	if rec.SeasonID != nil {
		if _, ok := m.seasons[*rec.SeasonID]; !ok {
			return persistence.AwardRecord{}, persistence.ErrNotFound
		}
	}
	if rec.TeamID != nil {
		if _, ok := m.teams[*rec.TeamID]; !ok {
			return persistence.AwardRecord{}, persistence.ErrNotFound
		}
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now().UTC()
	m.awards[rec.ID] = rec
	return rec, nil
}

func (m *memoryRepo) DeleteAward(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.awards[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.awards, id)
	return nil
}

func (m *memoryRepo) GetAwardDetails(_ context.Context, id uuid.UUID) (persistence.AwardDetailsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.awards[id]
	if !ok {
		return persistence.AwardDetailsRecord{}, persistence.ErrNotFound
	}
	return m.assemble(rec), nil
}

func (m *memoryRepo) ListAwardDetails(_ context.Context, tenantID uuid.UUID, recipient *uuid.UUID) ([]persistence.AwardDetailsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.AwardDetailsRecord
	for _, rec := range m.awards {
		if rec.TenantID != tenantID {
			continue
		}
		if recipient != nil && rec.RecipientUserID != *recipient {
			continue
		}
		out = append(out, m.assemble(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Award.AwardedAt.After(out[j].Award.AwardedAt)
	})
	return out, nil
}

func (m *memoryRepo) assemble(rec persistence.AwardRecord) persistence.AwardDetailsRecord {
	details := persistence.AwardDetailsRecord{
		Award:     rec,
		Template:  m.templates[rec.TrophyTemplateID],
		Recipient: m.profiles[rec.RecipientUserID],
		AwardedBy: m.profiles[rec.AwardedByUserID],
	}
	if rec.SeasonID != nil {
		season := m.seasons[*rec.SeasonID]
		details.Season = &season
	}
	if rec.TeamID != nil {
		team := m.teams[*rec.TeamID]
		details.Team = &team
	}
	return details
}

func (m *memoryRepo) CreateSeason(_ context.Context, rec persistence.SeasonRecord) (persistence.SeasonRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now().UTC()
	m.seasons[rec.ID] = rec
	return rec, nil
}

func (m *memoryRepo) ListSeasons(_ context.Context, tenantID uuid.UUID) ([]persistence.SeasonRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.SeasonRecord
	for _, rec := range m.seasons {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateTeam(_ context.Context, rec persistence.TeamRecord) (persistence.TeamRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.SeasonID != nil {
		if _, ok := m.seasons[*rec.SeasonID]; !ok {
			return persistence.TeamRecord{}, persistence.ErrNotFound
		}
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now().UTC()
	m.teams[rec.ID] = rec
	return rec, nil
}

func (m *memoryRepo) ListTeams(_ context.Context, tenantID uuid.UUID) ([]persistence.TeamRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.TeamRecord
	for _, rec := range m.teams {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) GetSeason(_ context.Context, id uuid.UUID) (persistence.SeasonRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.seasons[id]
	if !ok {
		return persistence.SeasonRecord{}, persistence.ErrNotFound
	}
	return rec, nil
}

func (m *memoryRepo) GetTeam(_ context.Context, id uuid.UUID) (persistence.TeamRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.teams[id]
	if !ok {
		return persistence.TeamRecord{}, persistence.ErrNotFound
	}
	return rec, nil
}

func (m *memoryRepo) GetTemplate(_ context.Context, id uuid.UUID) (persistence.TrophyTemplateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.templates[id]
	if !ok {
		return persistence.TrophyTemplateRecord{}, persistence.ErrNotFound
	}
	return rec, nil
}

type staticDirectory struct {
	roles map[uuid.UUID]map[uuid.UUID]roles.Role
}

func (d *staticDirectory) ResolveRole(_ context.Context, tenantID uuid.UUID, userID uuid.UUID) (roles.Role, error) {
	if role, ok := d.roles[tenantID][userID]; ok {
		return role, nil
	}
	return "", roles.ErrNoMembership
}

type fixture struct {
	repo       *memoryRepo
	svc        Service
	tenantID   uuid.UUID
	templateID uuid.UUID
	adminID    uuid.UUID
	playerID   uuid.UUID
	otherID    uuid.UUID
}

func setup(t *testing.T) fixture {
	t.Helper()

	repo := newMemoryRepo()
	tenantID := uuid.New()
	adminID := uuid.New()
	playerID := uuid.New()
	otherID := uuid.New()

	for _, id := range []uuid.UUID{adminID, playerID, otherID} {
		name := "member-" + id.String()[:8]
		repo.profiles[id] = persistence.ProfileRecord{ID: id, DisplayName: &name}
	}

	templateID := uuid.New()
	repo.templates[templateID] = persistence.TrophyTemplateRecord{
		ID:       templateID,
		TenantID: tenantID,
		Name:     "Player of the Match",
		Points:   10,
	}

	directory := &staticDirectory{roles: map[uuid.UUID]map[uuid.UUID]roles.Role{
		tenantID: {
			adminID:  roles.RoleAdmin,
			playerID: roles.RolePlayer,
			otherID:  roles.RolePlayer,
		},
	}}

	return fixture{
		repo:       repo,
		svc:        New(repo, directory),
		tenantID:   tenantID,
		templateID: templateID,
		adminID:    adminID,
		playerID:   playerID,
		otherID:    otherID,
	}
}

func TestCreateAward(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	season, err := fx.svc.CreateSeason(ctx, fx.adminID, fx.tenantID, SeasonInput{Name: "2025/26", IsActive: true})
	require.NoError(t, err)
	team, err := fx.svc.CreateTeam(ctx, fx.adminID, fx.tenantID, TeamInput{Name: "First XI", SeasonID: &season.ID})
	require.NoError(t, err)

	notes := "  hat-trick against rivals  "
	award, err := fx.svc.Create(ctx, fx.adminID, fx.tenantID, CreateInput{
		TrophyTemplateID: fx.templateID,
		RecipientUserID:  fx.playerID,
		SeasonID:         &season.ID,
		TeamID:           &team.ID,
		Notes:            &notes,
		IsPublic:         true,
	})
	require.NoError(t, err)
	require.Equal(t, fx.adminID, award.AwardedBy.ID)
	require.Equal(t, fx.playerID, award.Recipient.ID)
	require.Equal(t, "Player of the Match", award.Template.Name)
	require.NotNil(t, award.Season)
	require.Equal(t, season.ID, award.Season.ID)
	require.NotNil(t, award.Team)
	require.Equal(t, "First XI", award.Team.Name)
	require.NotNil(t, award.Notes)
	require.Equal(t, "hat-trick against rivals", *award.Notes)
	require.True(t, award.IsPublic)
	require.False(t, award.AwardedAt.IsZero())

	t.Run("player cannot award", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, fx.playerID, fx.tenantID, CreateInput{
			TrophyTemplateID: fx.templateID,
			RecipientUserID:  fx.playerID,
		})
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("missing references rejected", func(t *testing.T) {
		var validationErr *validation.Error
		_, err := fx.svc.Create(ctx, fx.adminID, fx.tenantID, CreateInput{})
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, validationErr.Fields, "trophyTemplateId")
		require.Contains(t, validationErr.Fields, "recipientUserId")
	})

	t.Run("unknown template maps to not found", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, fx.adminID, fx.tenantID, CreateInput{
			TrophyTemplateID: uuid.New(),
			RecipientUserID:  fx.playerID,
		})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAwardTenantScoping(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	otherTenantID := uuid.New()
	foreignTemplateID := uuid.New()
	fx.repo.templates[foreignTemplateID] = persistence.TrophyTemplateRecord{
		ID:       foreignTemplateID,
		TenantID: otherTenantID,
		Name:     "Rival Club Trophy",
		Points:   50,
	}
	foreignSeasonID := uuid.New()
	fx.repo.seasons[foreignSeasonID] = persistence.SeasonRecord{
		ID:       foreignSeasonID,
		TenantID: otherTenantID,
		Name:     "2025/26",
	}
	foreignTeamID := uuid.New()
	fx.repo.teams[foreignTeamID] = persistence.TeamRecord{
		ID:       foreignTeamID,
		TenantID: otherTenantID,
		Name:     "Rival First XI",
	}

	t.Run("another club's template looks absent", func(t *testing.T) {
		_, err := fx.svc.Create(ctx, fx.adminID, fx.tenantID, CreateInput{
			TrophyTemplateID: foreignTemplateID,
			RecipientUserID:  fx.playerID,
		})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("recipient must hold a membership", func(t *testing.T) {
		stranger := uuid.New()
		name := "stranger"
		fx.repo.profiles[stranger] = persistence.ProfileRecord{ID: stranger, DisplayName: &name}

		var validationErr *validation.Error
		_, err := fx.svc.Create(ctx, fx.adminID, fx.tenantID, CreateInput{
			TrophyTemplateID: fx.templateID,
			RecipientUserID:  stranger,
		})
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, validationErr.Fields, "recipientUserId")
	})

	t.Run("another club's season rejected", func(t *testing.T) {
		var validationErr *validation.Error
		_, err := fx.svc.Create(ctx, fx.adminID, fx.tenantID, CreateInput{
			TrophyTemplateID: fx.templateID,
			RecipientUserID:  fx.playerID,
			SeasonID:         &foreignSeasonID,
		})
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, validationErr.Fields, "seasonId")
	})

	t.Run("another club's team rejected", func(t *testing.T) {
		var validationErr *validation.Error
		_, err := fx.svc.Create(ctx, fx.adminID, fx.tenantID, CreateInput{
			TrophyTemplateID: fx.templateID,
			RecipientUserID:  fx.playerID,
			TeamID:           &foreignTeamID,
		})
		require.ErrorAs(t, err, &validationErr)
		require.Contains(t, validationErr.Fields, "teamId")
	})
}

func TestAwardVisibility(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	award, err := fx.svc.Create(ctx, fx.adminID, fx.tenantID, CreateInput{
		TrophyTemplateID: fx.templateID,
		RecipientUserID:  fx.playerID,
		IsPublic:         true,
	})
	require.NoError(t, err)

	got, err := fx.svc.Get(ctx, fx.otherID, award.ID)
	require.NoError(t, err)
	require.Equal(t, award.ID, got.ID)

	listed, err := fx.svc.ListForTenant(ctx, fx.playerID, fx.tenantID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	own, err := fx.svc.ListForRecipient(ctx, fx.playerID, fx.tenantID, fx.playerID)
	require.NoError(t, err)
	require.Len(t, own, 1)

	byAdmin, err := fx.svc.ListForRecipient(ctx, fx.adminID, fx.tenantID, fx.playerID)
	require.NoError(t, err)
	require.Len(t, byAdmin, 1)

	t.Run("player cannot browse another cabinet", func(t *testing.T) {
		_, err := fx.svc.ListForRecipient(ctx, fx.otherID, fx.tenantID, fx.playerID)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		outsider := uuid.New()
		_, err := fx.svc.Get(ctx, outsider, award.ID)
		require.ErrorIs(t, err, ErrForbidden)
		_, err = fx.svc.ListForTenant(ctx, outsider, fx.tenantID)
		require.ErrorIs(t, err, ErrForbidden)
	})
}

func TestAwardListingOrder(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	svc := fx.svc.(*service)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return at }
		_, err := fx.svc.Create(ctx, fx.adminID, fx.tenantID, CreateInput{
			TrophyTemplateID: fx.templateID,
			RecipientUserID:  fx.playerID,
		})
		require.NoError(t, err)
	}

	listed, err := fx.svc.ListForTenant(ctx, fx.adminID, fx.tenantID)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.True(t, listed[0].AwardedAt.After(listed[1].AwardedAt))
	require.True(t, listed[1].AwardedAt.After(listed[2].AwardedAt))
}

func TestDeleteAward(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	award, err := fx.svc.Create(ctx, fx.adminID, fx.tenantID, CreateInput{
		TrophyTemplateID: fx.templateID,
		RecipientUserID:  fx.playerID,
	})
	require.NoError(t, err)

	require.ErrorIs(t, fx.svc.Delete(ctx, fx.playerID, award.ID), ErrForbidden)

	require.NoError(t, fx.svc.Delete(ctx, fx.adminID, award.ID))
	require.ErrorIs(t, fx.svc.Delete(ctx, fx.adminID, award.ID), ErrNotFound)

	_, err = fx.svc.Get(ctx, fx.adminID, award.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSeasonValidation(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, -1, 0)
	var validationErr *validation.Error
	_, err := fx.svc.CreateSeason(ctx, fx.adminID, fx.tenantID, SeasonInput{
		Name:      "Backwards",
		StartDate: &start,
		EndDate:   &end,
	})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "endDate")

	_, err = fx.svc.CreateTeam(ctx, fx.playerID, fx.tenantID, TeamInput{Name: "Reserves"})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = fx.svc.CreateTeam(ctx, fx.adminID, fx.tenantID, TeamInput{Name: "R"})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "name")

	seasons, err := fx.svc.ListSeasons(ctx, fx.playerID, fx.tenantID)
	require.NoError(t, err)
	require.Empty(t, seasons)
}
