package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rmarin-dev/shopline-backend/pkg/config"
	"github.com/rmarin-dev/shopline-backend/pkg/logger"
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
	".gif":  {},
}

// ErrUnsupportedType signals an upload with a disallowed file extension.
var ErrUnsupportedType = errors.New("unsupported file type")

// Store writes uploads to the local filesystem and serves them from a
// static route. Filenames are regenerated so user input never reaches
// the disk path.
type Store struct {
	root    string
	baseURL string
	maxSize int64
}

// NewStore prepares the upload directory and returns a ready store.
func NewStore(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.UploadDir) == "" {
		return nil, errors.New("upload dir is required")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir %q: %w", cfg.UploadDir, err)
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("local storage ready at %s", cfg.UploadDir))
	}

	return &Store{
		root:    cfg.UploadDir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxSize: int64(cfg.MaxUploadMB) << 20,
	}, nil
}

// Root returns the directory served by the static file route.
func (s *Store) Root() string {
	return s.root
}

// Save streams the upload to disk and returns its public URL.
func (s *Store) Save(ctx context.Context, r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(s.root, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer f.Close()

	reader := r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1)
	}

	written, err := io.Copy(f, reader)
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if s.maxSize > 0 && written > s.maxSize {
		_ = os.Remove(dst)
		return "", fmt.Errorf("upload exceeds %d bytes", s.maxSize)
	}

	return s.publicURL(name), nil
}

// Remove deletes a previously stored file given its public URL. Unknown
// URLs are ignored so callers can pass through without existence checks.
func (s *Store) Remove(ctx context.Context, publicURL string) error {
	name := path.Base(publicURL)
	if name == "." || name == "/" || name == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing upload %q: %w", name, err)
	}
	return nil
}

func (s *Store) publicURL(name string) string {
	if s.baseURL == "" {
		return "/" + name
	}
	return s.baseURL + "/" + name
}
