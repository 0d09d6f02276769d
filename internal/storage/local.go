package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// LocalStore keeps blobs as files under a base directory. Download URLs point at
// URLPrefix, which the HTTP server serves from the same directory.
type LocalStore struct {
	basePath  string
	urlPrefix string
}

func NewLocalStore(basePath, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	return &LocalStore{
		basePath:  abs,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
	}, nil
}

// BasePath is the absolute directory blobs are written under.
func (s *LocalStore) BasePath() string {
	return s.basePath
}

func (s *LocalStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write next to the target and rename so readers never see a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = strings.TrimPrefix(prefix, "/")

	// Walk the deepest directory the prefix names, then filter on the full prefix.
	root := s.basePath
	if dir := prefix[:max(strings.LastIndexByte(prefix, '/'), 0)]; dir != "" {
		root = filepath.Join(s.basePath, filepath.FromSlash(dir))
	}

	var out []Metadata
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, fileMetadata(key, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
	}

	slices.SortFunc(out, func(a, b Metadata) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

func (s *LocalStore) GetMetadata(ctx context.Context, path string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return Metadata{}, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Metadata{}, ErrNotFound
		}
		return Metadata{}, fmt.Errorf("failed to get file stats: %w", err)
	}

	key, _ := CleanPath(path)
	return fileMetadata(key, info), nil
}

func (s *LocalStore) GetDownloadURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	meta, err := s.GetMetadata(ctx, path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", s.urlPrefix, (&url.URL{Path: meta.Path}).EscapedPath()), nil
}

func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (s *LocalStore) resolve(path string) (string, error) {
	key, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}

func fileMetadata(key string, info fs.FileInfo) Metadata {
	return Metadata{
		Path:         key,
		Size:         info.Size(),
		ContentType:  ContentType(key),
		LastModified: info.ModTime().UTC(),
		ETag:         fmt.Sprintf("%d-%d", info.Size(), info.ModTime().UnixNano()),
	}
}
