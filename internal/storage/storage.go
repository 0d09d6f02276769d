// Package storage stores report PDFs and other blobs under slash separated paths.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("blob not found")
	ErrInvalidPath = errors.New("invalid blob path")
)

// BlobStore defines the operations the report archive needs from a blob backend.
type BlobStore interface {
	// Upload writes data at path, replacing any existing blob.
	Upload(ctx context.Context, path string, data []byte, contentType string) error

	// List returns the blobs whose path starts with prefix, sorted by path.
	List(ctx context.Context, prefix string) ([]Metadata, error)

	// GetMetadata returns ErrNotFound when nothing is stored at path.
	GetMetadata(ctx context.Context, path string) (Metadata, error)

	// GetDownloadURL returns a URL the caller can fetch the blob from until ttl elapses.
	GetDownloadURL(ctx context.Context, path string, ttl time.Duration) (string, error)

	// Open returns the blob content; the caller closes it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

type Metadata struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag"`
}

// Name is the last path segment.
func (m Metadata) Name() string {
	if i := strings.LastIndexByte(m.Path, '/'); i >= 0 {
		return m.Path[i+1:]
	}
	return m.Path
}

// CleanPath rejects empty, absolute and parent-relative paths so every backend sees
// the same key space.
func CleanPath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "" || seg == "." || seg == ".." || strings.ContainsAny(seg, "\\:*?\"<>|") {
			return "", ErrInvalidPath
		}
	}
	return p, nil
}

// SanitizeName replaces characters that cannot appear in a single path segment.
func SanitizeName(name string) string {
	return strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	).Replace(name)
}

// ContentType guesses from the path extension.
func ContentType(p string) string {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
