package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
	"github.com/sidelinehq/trophy-cabinet/platform/go/roles"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

type memoryRepo struct {
	mu        sync.Mutex
	templates map[uuid.UUID]persistence.TrophyTemplateRecord
	awards    map[uuid.UUID]uuid.UUID // award id -> template id
	tenants   map[uuid.UUID]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		templates: map[uuid.UUID]persistence.TrophyTemplateRecord{},
		awards:    map[uuid.UUID]uuid.UUID{},
		tenants:   map[uuid.UUID]bool{},
	}
}

func (m *memoryRepo) Create(_ context.Context, rec persistence.TrophyTemplateRecord) (persistence.TrophyTemplateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tenants[rec.TenantID] {
		return persistence.TrophyTemplateRecord{}, persistence.ErrNotFound
	}
	m.templates[rec.ID] = rec
	return rec, nil
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (persistence.TrophyTemplateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.templates[id]
	if !ok {
		return persistence.TrophyTemplateRecord{}, persistence.ErrNotFound
	}
	return rec, nil
}

func (m *memoryRepo) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]persistence.TrophyTemplateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]persistence.TrophyTemplateRecord, 0)
	for _, rec := range m.templates {
		if rec.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, id uuid.UUID, params persistence.UpdateTrophyTemplateParams) (persistence.TrophyTemplateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.templates[id]
	if !ok {
		return persistence.TrophyTemplateRecord{}, persistence.ErrNotFound
	}
	if params.Name != nil {
		rec.Name = *params.Name
	}
	if params.Description != nil {
		rec.Description = params.Description
	}
	if params.IconURL != nil {
		rec.IconURL = params.IconURL
	}
	if params.Tier != nil {
		rec.Tier = params.Tier
	}
	if params.Points != nil {
		rec.Points = *params.Points
	}
	m.templates[id] = rec
	return rec, nil
}

func (m *memoryRepo) DeleteCascade(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return 0, persistence.ErrNotFound
	}
	var removed int64
	for awardID, templateID := range m.awards {
		if templateID == id {
			delete(m.awards, awardID)
			removed++
		}
	}
	delete(m.templates, id)
	return removed, nil
}

type staticDirectory struct {
	grants map[uuid.UUID]map[uuid.UUID]roles.Role
}

func (d *staticDirectory) ResolveRole(_ context.Context, tenantID, userID uuid.UUID) (roles.Role, error) {
	if role, ok := d.grants[tenantID][userID]; ok {
		return role, nil
	}
	return "", roles.ErrNoMembership
}

func (d *staticDirectory) grant(tenantID, userID uuid.UUID, role roles.Role) {
	if d.grants == nil {
		d.grants = map[uuid.UUID]map[uuid.UUID]roles.Role{}
	}
	if d.grants[tenantID] == nil {
		d.grants[tenantID] = map[uuid.UUID]roles.Role{}
	}
	d.grants[tenantID][userID] = role
}

func setup(t *testing.T) (*memoryRepo, *staticDirectory, Service, uuid.UUID, uuid.UUID, uuid.UUID) {
	t.Helper()
	repo := newMemoryRepo()
	directory := &staticDirectory{}
	svc := New(repo, directory)

	tenantID := uuid.New()
	adminID := uuid.New()
	playerID := uuid.New()
	repo.tenants[tenantID] = true
	directory.grant(tenantID, adminID, roles.RoleAdmin)
	directory.grant(tenantID, playerID, roles.RolePlayer)

	return repo, directory, svc, tenantID, adminID, playerID
}

func TestCreateTemplate(t *testing.T) {
	t.Parallel()

	_, _, svc, tenantID, adminID, playerID := setup(t)
	ctx := context.Background()

	tier := "gold"
	template, err := svc.Create(ctx, adminID, tenantID, CreateInput{
		Name:   "Player of the Match",
		Tier:   &tier,
		Points: 10,
	})
	require.NoError(t, err)
	require.Equal(t, "Player of the Match", template.Name)
	require.Equal(t, TierGold, *template.Tier)

	// Players cannot manage the catalog.
	_, err = svc.Create(ctx, playerID, tenantID, CreateInput{Name: "Nope"})
	require.ErrorIs(t, err, ErrForbidden)

	var validationErr *validation.Error
	badTier := "platinum"
	_, err = svc.Create(ctx, adminID, tenantID, CreateInput{Name: "x", Tier: &badTier, Points: -1})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "name")
	require.Contains(t, validationErr.Fields, "tier")
	require.Contains(t, validationErr.Fields, "points")
}

func TestViewTemplates(t *testing.T) {
	t.Parallel()

	_, _, svc, tenantID, adminID, playerID := setup(t)
	ctx := context.Background()

	template, err := svc.Create(ctx, adminID, tenantID, CreateInput{Name: "Golden Glove", Points: 25})
	require.NoError(t, err)

	// Any active member can browse the cabinet.
	listed, err := svc.List(ctx, playerID, tenantID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	got, err := svc.Get(ctx, playerID, template.ID)
	require.NoError(t, err)
	require.Equal(t, template.ID, got.ID)

	_, err = svc.List(ctx, uuid.New(), tenantID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, playerID, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAndDeleteTemplate(t *testing.T) {
	t.Parallel()

	repo, _, svc, tenantID, adminID, playerID := setup(t)
	ctx := context.Background()

	template, err := svc.Create(ctx, adminID, tenantID, CreateInput{Name: "Top Scorer", Points: 50})
	require.NoError(t, err)

	points := 75
	updated, err := svc.Update(ctx, adminID, template.ID, UpdateInput{Points: &points})
	require.NoError(t, err)
	require.Equal(t, 75, updated.Points)
	require.Equal(t, "Top Scorer", updated.Name)

	_, err = svc.Update(ctx, playerID, template.ID, UpdateInput{Points: &points})
	require.ErrorIs(t, err, ErrForbidden)

	var validationErr *validation.Error
	_, err = svc.Update(ctx, adminID, template.ID, UpdateInput{})
	require.ErrorAs(t, err, &validationErr)

	// Deleting takes the linked awards with it.
	repo.awards[uuid.New()] = template.ID
	repo.awards[uuid.New()] = template.ID
	repo.awards[uuid.New()] = uuid.New()

	removed, err := svc.Delete(ctx, adminID, template.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)
	require.Len(t, repo.awards, 1)

	_, err = svc.Delete(ctx, adminID, template.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
