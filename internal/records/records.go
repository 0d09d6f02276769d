// Package records provides tenant-scoped reads and writes over the document store.
//
// Reads translate a missing document into "no data" (a nil value or an empty slice)
// so report code never has to special-case store.ErrDocumentNotFound.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfeidau/casework/internal/store"
	"github.com/wolfeidau/casework/internal/tenant"
	"github.com/wolfeidau/casework/internal/validate"
)

// Sentinel errors
var (
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrCatalogItemNotFound  = errors.New("catalog item not found")
	ErrRecapTypeNotFound    = errors.New("recap type not found")
)

// Repository reads and writes one tenant's documents.
type Repository struct {
	docs      store.DocumentStore
	validator *validate.Validator
	loc       *time.Location
	now       func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithLocation sets the zone engagement dates are written in. Default: time.Local
func WithLocation(loc *time.Location) Option {
	return func(r *Repository) {
		r.loc = loc
	}
}

// WithClock overrides the clock used for createdAt and engagement dates.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New creates a repository over docs.
func New(docs store.DocumentStore, opts ...Option) *Repository {
	r := &Repository{
		docs:      docs,
		validator: validate.New(),
		loc:       time.Local,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying document store.
func (r *Repository) Store() store.DocumentStore {
	return r.docs
}

// Location returns the zone used for engagement dates.
func (r *Repository) Location() *time.Location {
	return r.loc
}

func orgPath(orgID string) (store.Path, error) {
	if orgID == "" {
		return store.Path{}, tenant.ErrNotReady
	}
	return store.Org(orgID), nil
}

func participantPath(orgID, participantID string) (store.Path, error) {
	org, err := orgPath(orgID)
	if err != nil {
		return store.Path{}, err
	}
	return org.Collection(store.CollectionParticipants).Doc(participantID), nil
}

// decodeAll decodes every document into T, setting the id with setID.
func decodeAll[T any](docs []*store.Document, setID func(*T, string)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", doc.Path, err)
		}
		setID(&v, doc.ID())
		out = append(out, v)
	}
	return out, nil
}

// getOptional decodes a single document, returning nil when it does not exist.
func getOptional[T any](ctx context.Context, docs store.DocumentStore, p store.Path) (*T, error) {
	doc, err := docs.Get(ctx, p)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", p, err)
	}
	var v T
	if err := doc.DataTo(&v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", p, err)
	}
	return &v, nil
}
