package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader writes assets under a directory on disk. Intended for local
// development where no GCS bucket is available; URLs are served relative to
// baseURL (e.g. "/assets").
type LocalUploader struct {
	root    string
	baseURL string
}

func NewLocalUploader(root, baseURL string) (*LocalUploader, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create asset root: %w", err)
	}
	return &LocalUploader{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (u *LocalUploader) Upload(_ context.Context, key string, _ string, body io.Reader) (string, error) {
	target, err := u.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create asset directory: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create asset file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("write asset file: %w", err)
	}

	return u.baseURL + "/" + key, nil
}

func (u *LocalUploader) Delete(_ context.Context, key string) error {
	target, err := u.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove asset file: %w", err)
	}
	return nil
}

// resolve rejects keys that would escape the asset root.
func (u *LocalUploader) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(u.root, cleaned), nil
}

var _ Uploader = (*LocalUploader)(nil)
