package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for document store operations
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidPath      = errors.New("invalid document path")

	// ErrInvalidData is returned when the backend rejects a document's contents.
	ErrInvalidData = errors.New("invalid document data")

	// ErrConflict is returned for write conflicts that may succeed when retried.
	ErrConflict = errors.New("document write conflict")

	// ErrUnavailable is returned when the backend cannot be reached or is out of resources.
	ErrUnavailable = errors.New("document store unavailable")
)

// DocumentStore defines the interface for the hierarchical document database.
// Paths alternate collection and document segments, for example
// organizations/{orgId}/participants/{participantId}/participantServices.
type DocumentStore interface {
	// GetAll returns every document directly inside a collection, ordered by document id.
	GetAll(ctx context.Context, collection Path) ([]*Document, error)

	// Get retrieves a single document.
	// Returns ErrDocumentNotFound if the document doesn't exist.
	Get(ctx context.Context, doc Path) (*Document, error)

	// Query returns the documents of a collection matching all filters, optionally
	// ordered by a field and limited.
	Query(ctx context.Context, collection Path, q Query) ([]*Document, error)

	// Set creates or replaces a document. With WithMerge the data is deep merged
	// into the existing document instead of replacing it.
	Set(ctx context.Context, doc Path, data map[string]any, opts ...SetOption) error

	// Add creates a document with a generated, time ordered id and returns its path.
	Add(ctx context.Context, collection Path, data map[string]any) (Path, error)

	// Update replaces the given top-level fields of an existing document.
	// Returns ErrDocumentNotFound if the document doesn't exist.
	Update(ctx context.Context, doc Path, data map[string]any) error

	// Delete removes a document. Sub-collections are left untouched and deleting a
	// missing document is not an error.
	Delete(ctx context.Context, doc Path) error
}

// Document is a stored document and its metadata.
type Document struct {
	Path       Path
	Data       map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}

// ID returns the last segment of the document path.
func (d *Document) ID() string {
	return d.Path.ID()
}

// DataTo decodes the document data into v.
func (d *Document) DataTo(v any) error {
	return Decode(d.Data, v)
}

// SetOptions controls Set behaviour.
type SetOptions struct {
	Merge bool
}

// SetOption configures a Set call.
type SetOption func(*SetOptions)

// WithMerge deep merges the written data into the existing document.
func WithMerge() SetOption {
	return func(o *SetOptions) {
		o.Merge = true
	}
}

// ApplySetOptions folds the options into a SetOptions value.
func ApplySetOptions(opts ...SetOption) SetOptions {
	var o SetOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
