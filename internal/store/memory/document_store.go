package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/casework/internal/store"
)

var _ store.DocumentStore = (*DocumentStore)(nil)

type document struct {
	path       store.Path
	data       map[string]any
	createTime time.Time
	updateTime time.Time
}

func (d *document) snapshot() *store.Document {
	return &store.Document{
		Path:       d.path,
		Data:       store.CloneData(d.data),
		CreateTime: d.createTime,
		UpdateTime: d.updateTime,
	}
}

// DocumentStore implements store.DocumentStore using in-memory storage.
// This implementation is for testing and local development - data is lost on restart.
type DocumentStore struct {
	mu sync.RWMutex

	collections map[string]map[string]*document // collection path -> doc id -> document
	now         func() time.Time
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]map[string]*document),
		now:         time.Now,
	}
}

// GetAll returns every document in a collection ordered by id.
func (s *DocumentStore) GetAll(ctx context.Context, collection store.Path) ([]*store.Document, error) {
	return s.Query(ctx, collection, store.Query{})
}

// Get retrieves a single document.
func (s *DocumentStore) Get(ctx context.Context, doc store.Path) (*store.Document, error) {
	if err := doc.ValidateDocument(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.collections[doc.Parent().String()][doc.ID()]
	if !ok {
		return nil, store.ErrDocumentNotFound
	}
	return d.snapshot(), nil
}

// Query filters, orders and limits the documents of a collection.
func (s *DocumentStore) Query(ctx context.Context, collection store.Path, q store.Query) ([]*store.Document, error) {
	if err := collection.ValidateCollection(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := store.NormalizeQuery(q)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*document
	for _, d := range s.collections[collection.String()] {
		if store.Matches(d.data, q.Filters) {
			matched = append(matched, d)
		}
	}

	slices.SortFunc(matched, func(a, b *document) int {
		if q.OrderBy != "" {
			av, _ := store.Lookup(a.data, q.OrderBy)
			bv, _ := store.Lookup(b.data, q.OrderBy)
			c := store.CompareValues(av, bv)
			if c == 0 {
				c = cmp.Compare(a.path.ID(), b.path.ID())
			}
			if q.Descending {
				return -c
			}
			return c
		}
		return cmp.Compare(a.path.ID(), b.path.ID())
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	docs := make([]*store.Document, 0, len(matched))
	for _, d := range matched {
		docs = append(docs, d.snapshot())
	}
	return docs, nil
}

// Set creates, replaces or merges a document.
func (s *DocumentStore) Set(ctx context.Context, doc store.Path, data map[string]any, opts ...store.SetOption) error {
	if err := doc.ValidateDocument(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := store.NormalizeData(data)
	if err != nil {
		return err
	}
	options := store.ApplySetOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	docs := s.collection(doc.Parent())
	existing, ok := docs[doc.ID()]
	if !ok {
		docs[doc.ID()] = &document{path: doc, data: normalized, createTime: now, updateTime: now}
		return nil
	}

	if options.Merge {
		existing.data = store.MergeData(existing.data, normalized)
	} else {
		existing.data = normalized
	}
	existing.updateTime = now
	return nil
}

// Add creates a document with a generated UUIDv7 id.
func (s *DocumentStore) Add(ctx context.Context, collection store.Path, data map[string]any) (store.Path, error) {
	if err := collection.ValidateCollection(); err != nil {
		return store.Path{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return store.Path{}, fmt.Errorf("failed to generate document id: %w", err)
	}
	doc := collection.Doc(id.String())
	if err := s.Set(ctx, doc, data); err != nil {
		return store.Path{}, err
	}
	return doc, nil
}

// Update replaces top-level fields of an existing document.
func (s *DocumentStore) Update(ctx context.Context, doc store.Path, data map[string]any) error {
	if err := doc.ValidateDocument(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	normalized, err := store.NormalizeData(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[doc.Parent().String()][doc.ID()]
	if !ok {
		return store.ErrDocumentNotFound
	}
	for k, v := range normalized {
		existing.data[k] = v
	}
	existing.updateTime = s.now()
	return nil
}

// Delete removes a document if present.
func (s *DocumentStore) Delete(ctx context.Context, doc store.Path) error {
	if err := doc.ValidateDocument(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[doc.Parent().String()], doc.ID())
	return nil
}

func (s *DocumentStore) collection(p store.Path) map[string]*document {
	key := p.String()
	docs, ok := s.collections[key]
	if !ok {
		docs = make(map[string]*document)
		s.collections[key] = docs
	}
	return docs
}
