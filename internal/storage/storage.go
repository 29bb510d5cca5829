// Package storage keeps uploaded files on local disk under a public root.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrBadPath = errors.New("path escapes storage root")

type Files interface {
	// Put writes data under dir with a random name and returns the
	// slash-separated path relative to the root.
	Put(ctx context.Context, dir, ext string, data []byte) (string, error)
	Delete(ctx context.Context, rel string) error
	URL(rel string) string
}

type Local struct {
	Root    string
	BaseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *Local) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" || rel == "" || strings.Contains(rel, "..") {
		return "", fmt.Errorf("%w: %q", ErrBadPath, rel)
	}
	return filepath.Join(l.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (l *Local) Put(ctx context.Context, dir, ext string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel := path.Join(dir, uuid.NewString()+ext)
	full, err := l.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	tmp := full + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", rel, err)
	}
	return rel, nil
}

// Delete ignores files that are already gone.
func (l *Local) Delete(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := l.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", rel, err)
	}
	return nil
}

func (l *Local) URL(rel string) string {
	return l.BaseURL + "/" + strings.TrimPrefix(rel, "/")
}
