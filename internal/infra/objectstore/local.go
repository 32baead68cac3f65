package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalPrefix is the HTTP path the API serves LocalStore files under.
const LocalPrefix = "/uploads"

// LocalStore writes files below Root. Returned URLs are BaseURL + LocalPrefix + path.
type LocalStore struct {
	Root    string
	BaseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", root, err)
	}
	return &LocalStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Put(ctx context.Context, objectPath, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + objectPath)
	dst := filepath.Join(s.Root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write object %s: %w", objectPath, err)
	}
	return BuildAccessURL(s.BaseURL+LocalPrefix, filepath.ToSlash(clean)), nil
}
