package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
	"github.com/sidelinehq/trophy-cabinet/platform/go/roles"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

type memoryRepo struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]persistence.TenantRecord
	owners  map[uuid.UUID]persistence.ProfileRecord
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		tenants: map[uuid.UUID]persistence.TenantRecord{},
		owners:  map[uuid.UUID]persistence.ProfileRecord{},
	}
}

func (m *memoryRepo) CreateWithOwner(_ context.Context, rec persistence.TenantRecord, owner persistence.ProfileRecord) (persistence.TenantRecord, persistence.MembershipRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tenants {
		if existing.Slug == rec.Slug {
			return persistence.TenantRecord{}, persistence.MembershipRecord{}, persistence.ErrConflict
		}
	}
	m.tenants[rec.ID] = rec
	m.owners[rec.ID] = owner
	return rec, persistence.MembershipRecord{
		ID:       uuid.New(),
		TenantID: rec.ID,
		UserID:   owner.ID,
		Role:     "owner",
		Status:   "active",
	}, nil
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (persistence.TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tenants[id]
	if !ok {
		return persistence.TenantRecord{}, persistence.ErrNotFound
	}
	return rec, nil
}

func (m *memoryRepo) GetBySlug(_ context.Context, slug string) (persistence.TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.tenants {
		if rec.Slug == slug {
			return rec, nil
		}
	}
	return persistence.TenantRecord{}, persistence.ErrNotFound
}

func (m *memoryRepo) Update(_ context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tenants[id]
	if !ok {
		return persistence.TenantRecord{}, persistence.ErrNotFound
	}
	if params.Name != nil {
		rec.Name = *params.Name
	}
	if params.LogoURL != nil {
		rec.LogoURL = params.LogoURL
	}
	m.tenants[id] = rec
	return rec, nil
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

func TestCreateClub(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	directory := &staticDirectory{}
	svc := New(repo, directory)
	ctx := context.Background()
	owner := uuid.New()
	ownerIdent := auth.Identity{Subject: owner.String(), Email: "sam.owner@example.com"}

	club, err := svc.Create(ctx, ownerIdent, CreateInput{Name: "  Northside United  ", Slug: "Northside-United"})
	require.NoError(t, err)
	require.Equal(t, "Northside United", club.Name)
	require.Equal(t, "northside-united", club.Slug)

	// The owner profile is provisioned from the claims in the same call,
	// even when nothing touched the profiles table before.
	require.Equal(t, owner, repo.owners[club.ID].ID)
	require.NotNil(t, repo.owners[club.ID].DisplayName)
	require.Equal(t, "sam.owner", *repo.owners[club.ID].DisplayName)

	_, err = svc.Create(ctx, auth.Identity{Subject: uuid.NewString()}, CreateInput{Name: "Copycats", Slug: "northside-united"})
	require.ErrorIs(t, err, ErrSlugConflict)

	var validationErr *validation.Error
	_, err = svc.Create(ctx, ownerIdent, CreateInput{Name: "x", Slug: "bad slug!"})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "name")
	require.Contains(t, validationErr.Fields, "slug")

	_, err = svc.Create(ctx, auth.Identity{}, CreateInput{Name: "No Session", Slug: "no-session"})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGetAndUpdateClub(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	directory := &staticDirectory{}
	svc := New(repo, directory)
	ctx := context.Background()

	owner := uuid.New()
	player := uuid.New()
	outsider := uuid.New()

	club, err := svc.Create(ctx, auth.Identity{Subject: owner.String()}, CreateInput{Name: "Harbour City", Slug: "harbour-city"})
	require.NoError(t, err)
	directory.grant(club.ID, owner, roles.RoleOwner)
	directory.grant(club.ID, player, roles.RolePlayer)

	got, err := svc.Get(ctx, player, club.ID)
	require.NoError(t, err)
	require.Equal(t, club.ID, got.ID)

	_, err = svc.Get(ctx, outsider, club.ID)
	require.ErrorIs(t, err, ErrForbidden)

	// Public slug lookup needs no membership.
	bySlug, err := svc.GetBySlug(ctx, "Harbour-City")
	require.NoError(t, err)
	require.Equal(t, club.ID, bySlug.ID)

	_, err = svc.GetBySlug(ctx, "no-such-club")
	require.ErrorIs(t, err, ErrNotFound)

	name := "Harbour City FC"
	updated, err := svc.Update(ctx, owner, club.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)

	// Players cannot change club settings.
	_, err = svc.Update(ctx, player, club.ID, UpdateInput{Name: &name})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, owner, club.ID, UpdateInput{})
	var validationErr *validation.Error
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "body")
}
