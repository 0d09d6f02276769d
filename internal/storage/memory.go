package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/minio/crc64nvme"
)

type memoryBlob struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemoryStore keeps blobs in a map. Download URLs use the memory:// scheme.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string]memoryBlob),
		now:   time.Now,
	}
}

func (s *MemoryStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := CleanPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = memoryBlob{
		data:        bytes.Clone(data),
		contentType: contentType,
		modified:    s.now().UTC(),
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = strings.TrimPrefix(prefix, "/")

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Metadata
	for key, blob := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			out = append(out, blob.metadata(key))
		}
	}
	slices.SortFunc(out, func(a, b Metadata) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

func (s *MemoryStore) GetMetadata(ctx context.Context, path string) (Metadata, error) {
	blob, key, err := s.get(ctx, path)
	if err != nil {
		return Metadata{}, err
	}
	return blob.metadata(key), nil
}

func (s *MemoryStore) GetDownloadURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	_, key, err := s.get(ctx, path)
	if err != nil {
		return "", err
	}
	expires := s.now().Add(ttl).Unix()
	return fmt.Sprintf("memory:///%s?expires=%d", url.PathEscape(key), expires), nil
}

func (s *MemoryStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	blob, _, err := s.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(blob.data)), nil
}

func (s *MemoryStore) get(ctx context.Context, path string) (memoryBlob, string, error) {
	if err := ctx.Err(); err != nil {
		return memoryBlob{}, "", err
	}
	key, err := CleanPath(path)
	if err != nil {
		return memoryBlob{}, "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.blobs[key]
	if !ok {
		return memoryBlob{}, "", ErrNotFound
	}
	return blob, key, nil
}

func (b memoryBlob) metadata(key string) Metadata {
	return Metadata{
		Path:         key,
		Size:         int64(len(b.data)),
		ContentType:  b.contentType,
		LastModified: b.modified,
		ETag:         fmt.Sprintf("%016x", crc64nvme.Checksum(b.data)),
	}
}
