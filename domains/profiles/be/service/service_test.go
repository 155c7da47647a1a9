package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sidelinehq/trophy-cabinet/platform/go/auth"
	"github.com/sidelinehq/trophy-cabinet/platform/go/persistence"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

type memoryRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]persistence.ProfileRecord
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{profiles: map[uuid.UUID]persistence.ProfileRecord{}}
}

func (m *memoryRepo) Upsert(_ context.Context, rec persistence.ProfileRecord) (persistence.ProfileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.profiles[rec.ID]
	if ok {
		// Existing values win, mirroring the COALESCE in the store.
		if existing.DisplayName != nil {
			rec.DisplayName = existing.DisplayName
		}
		if existing.AvatarURL != nil {
			rec.AvatarURL = existing.AvatarURL
		}
	}
	m.profiles[rec.ID] = rec
	return rec, nil
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (persistence.ProfileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.profiles[id]
	if !ok {
		return persistence.ProfileRecord{}, persistence.ErrNotFound
	}
	return rec, nil
}

func (m *memoryRepo) Update(_ context.Context, id uuid.UUID, params persistence.UpdateProfileParams) (persistence.ProfileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.profiles[id]
	if !ok {
		return persistence.ProfileRecord{}, persistence.ErrNotFound
	}
	if params.DisplayName != nil {
		rec.DisplayName = params.DisplayName
	}
	if params.AvatarURL != nil {
		rec.AvatarURL = params.AvatarURL
	}
	m.profiles[id] = rec
	return rec, nil
}

func strPtr(s string) *string { return &s }

func TestEnsure(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := New(repo)
	ctx := context.Background()

	userID := uuid.New()
	ident := auth.Identity{
		Subject:    userID.String(),
		Email:      "casey@example.com",
		Name:       strPtr("Casey Keeper"),
		PictureURL: strPtr("https://img.example.com/casey.png"),
	}

	profile, err := svc.Ensure(ctx, ident)
	require.NoError(t, err)
	require.Equal(t, userID, profile.UserID)
	require.Equal(t, "Casey Keeper", *profile.DisplayName)
	require.Equal(t, "https://img.example.com/casey.png", *profile.AvatarURL)

	// A user-chosen name survives subsequent token syncs.
	name := "CK"
	_, err = svc.Update(ctx, userID, UpdateInput{DisplayName: &name})
	require.NoError(t, err)

	profile, err = svc.Ensure(ctx, ident)
	require.NoError(t, err)
	require.Equal(t, "CK", *profile.DisplayName)

	// No display name in claims falls back to the email local part.
	other := auth.Identity{Subject: uuid.New().String(), Email: "pat.player@example.com"}
	profile, err = svc.Ensure(ctx, other)
	require.NoError(t, err)
	require.Equal(t, "pat.player", *profile.DisplayName)
	require.Nil(t, profile.AvatarURL)

	// Claims carrying blank values behave like claims carrying none.
	blank := auth.Identity{
		Subject:    uuid.New().String(),
		Email:      "sam@example.com",
		Name:       strPtr("   "),
		PictureURL: strPtr(""),
	}
	profile, err = svc.Ensure(ctx, blank)
	require.NoError(t, err)
	require.Equal(t, "sam", *profile.DisplayName)
	require.Nil(t, profile.AvatarURL)
}

func TestUpdateValidation(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	svc := New(repo)
	ctx := context.Background()

	userID := uuid.New()
	_, err := svc.Ensure(ctx, auth.Identity{Subject: userID.String(), Name: strPtr("Original")})
	require.NoError(t, err)

	var validationErr *validation.Error

	short := "x"
	_, err = svc.Update(ctx, userID, UpdateInput{DisplayName: &short})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "displayName")

	relative := "/not-absolute.png"
	_, err = svc.Update(ctx, userID, UpdateInput{AvatarURL: &relative})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "avatarUrl")

	_, err = svc.Update(ctx, userID, UpdateInput{})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "body")

	name := "Jamie Defender"
	avatar := "https://img.example.com/jamie.png"
	updated, err := svc.Update(ctx, userID, UpdateInput{DisplayName: &name, AvatarURL: &avatar})
	require.NoError(t, err)
	require.Equal(t, name, *updated.DisplayName)
	require.Equal(t, avatar, *updated.AvatarURL)

	_, err = svc.Update(ctx, uuid.New(), UpdateInput{DisplayName: &name})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
