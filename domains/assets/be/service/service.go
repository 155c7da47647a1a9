package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/sidelinehq/trophy-cabinet/platform/go/roles"
	"github.com/sidelinehq/trophy-cabinet/platform/go/storage"
	"github.com/sidelinehq/trophy-cabinet/platform/go/validation"
)

var ErrForbidden = errors.New("operation not allowed")

// Asset describes a stored upload.
type Asset struct {
	Key string
	URL string
}

// UploadInput carries one multipart file destined for tenant storage.
type UploadInput struct {
	Category    string
	Filename    string
	ContentType string
	Body        io.Reader
}

// Directory resolves the actor's role inside a club.
type Directory interface {
	ResolveRole(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) (roles.Role, error)
}

// Service stores club assets (logos, trophy icons, avatars).
type Service interface {
	Upload(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input UploadInput) (Asset, error)
	Delete(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, key string) error
}

type service struct {
	uploader  storage.Uploader
	directory Directory
	now       func() time.Time
}

// New builds the assets Service.
func New(uploader storage.Uploader, directory Directory) Service {
	if uploader == nil {
		panic("uploader is required")
	}
	if directory == nil {
		panic("directory is required")
	}
	return &service{uploader: uploader, directory: directory, now: time.Now}
}

func (s *service) Upload(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, input UploadInput) (Asset, error) {
	if err := s.requireAdminArea(ctx, tenantID, actor); err != nil {
		return Asset{}, err
	}

	key, err := storage.BuildObjectKey(tenantID, input.Category, input.Filename, s.now())
	if err != nil {
		return Asset{}, validation.NewError("file", err.Error())
	}

	url, err := s.uploader.Upload(ctx, key, input.ContentType, input.Body)
	if err != nil {
		return Asset{}, fmt.Errorf("storing asset: %w", err)
	}
	return Asset{Key: key, URL: url}, nil
}

func (s *service) Delete(ctx context.Context, actor uuid.UUID, tenantID uuid.UUID, key string) error {
	if err := s.requireAdminArea(ctx, tenantID, actor); err != nil {
		return err
	}
	// Keys are tenant-prefixed; a club admin may only touch their own prefix.
	if !keyBelongsTo(key, tenantID) {
		return ErrForbidden
	}
	if err := s.uploader.Delete(ctx, key); err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	return nil
}

func keyBelongsTo(key string, tenantID uuid.UUID) bool {
	prefix := tenantID.String() + "/"
	return len(key) > len(prefix) && key[:len(prefix)] == prefix
}

func (s *service) requireAdminArea(ctx context.Context, tenantID uuid.UUID, actor uuid.UUID) error {
	role, err := s.directory.ResolveRole(ctx, tenantID, actor)
	if err != nil {
		if errors.Is(err, roles.ErrNoMembership) {
			return ErrForbidden
		}
		return fmt.Errorf("resolving role: %w", err)
	}
	if !role.AdminArea() {
		return ErrForbidden
	}
	return nil
}
