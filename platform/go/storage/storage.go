package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Asset categories map to the top-level folder under each tenant prefix.
const (
	CategoryLogos       = "logos"
	CategoryTrophyIcons = "trophy-icons"
	CategoryAvatars     = "avatars"
)

var validCategories = map[string]struct{}{
	CategoryLogos:       {},
	CategoryTrophyIcons: {},
	CategoryAvatars:     {},
}

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".svg":  {},
}

// Uploader stores tenant assets and returns a URL clients can reference.
type Uploader interface {
	Upload(ctx context.Context, key string, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// BuildObjectKey produces a tenant-scoped object key of the form
// "<tenant_id>/<category>/<timestamp>-<random><ext>". The original filename
// only contributes its extension so uploads never collide and user input
// never reaches the path.
func BuildObjectKey(tenantID uuid.UUID, category string, filename string, now time.Time) (string, error) {
	if tenantID == uuid.Nil {
		return "", fmt.Errorf("tenant id is required")
	}
	if _, ok := validCategories[category]; !ok {
		return "", fmt.Errorf("unknown asset category %q", category)
	}

	ext := strings.ToLower(path.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("unsupported file extension %q", ext)
	}

	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate object suffix: %w", err)
	}

	name := fmt.Sprintf("%d-%s%s", now.UnixMilli(), hex.EncodeToString(suffix), ext)
	return path.Join(tenantID.String(), category, name), nil
}
