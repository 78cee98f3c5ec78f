// Package blob stores task attachments on the local filesystem.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrOutsideRoot is returned for paths that resolve outside the store root.
var ErrOutsideRoot = errors.New("path outside attachment directory")

// FSStore keeps attachments as files under Dir. Attachment references are
// either paths relative to Dir, absolute paths inside Dir, or file:// URLs.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving attachment dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating attachment dir: %w", err)
	}
	return &FSStore{dir: abs}, nil
}

func (s *FSStore) Dir() string { return s.dir }

// Put copies r into a new file and returns its reference.
func (s *FSStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	f, err := os.Create(filepath.Join(s.dir, ref))
	if err != nil {
		return "", fmt.Errorf("creating attachment: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing attachment: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing attachment: %w", err)
	}
	return ref, nil
}

// Remove deletes the referenced attachment. Remote URLs are not ours to
// delete and succeed without effect, as do files that are already gone.
func (s *FSStore) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, local, err := s.resolve(ref)
	if err != nil || !local {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing attachment %s: %w", ref, err)
	}
	return nil
}

func (s *FSStore) resolve(ref string) (string, bool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false, nil
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		if u.Scheme != "file" {
			return "", false, nil
		}
		ref = u.Path
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false, fmt.Errorf("%w: %s", ErrOutsideRoot, ref)
	}
	return path, true, nil
}
