package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/casework/internal/store"
)

var _ store.DocumentStore = (*DocumentStore)(nil)

// DocumentStore implements store.DocumentStore on a single JSONB documents table.
type DocumentStore struct {
	pool *pgxpool.Pool
	cfg  DocumentStoreConfig
}

// NewDocumentStore creates a new PostgreSQL-backed document store.
// It shares the connection pool with other stores.
func NewDocumentStore(pool *pgxpool.Pool, cfg DocumentStoreConfig) *DocumentStore {
	cfg.ApplyDefaults()
	return &DocumentStore{
		pool: pool,
		cfg:  cfg,
	}
}

func (s *DocumentStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return s.cfg.withTimeout(ctx)
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

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND doc_id = $2
	`

	result := &store.Document{Path: doc}
	err := s.pool.QueryRow(ctx, query, doc.Parent().String(), doc.ID()).Scan(
		&result.Data,
		&result.CreateTime,
		&result.UpdateTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", doc, mapPostgresError(err))
	}
	if result.Data == nil {
		result.Data = map[string]any{}
	}

	return result, nil
}

// Query filters, orders and limits the documents of a collection.
//
// Each equality filter is expressed both as a containment check, which can use the
// GIN index, and as an exact comparison of the addressed value.
func (s *DocumentStore) Query(ctx context.Context, collection store.Path, q store.Query) ([]*store.Document, error) {
	if err := collection.ValidateCollection(); err != nil {
		return nil, err
	}
	q, err := store.NormalizeQuery(q)
	if err != nil {
		return nil, err
	}

	sql, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, mapPostgresError(err))
	}
	defer rows.Close()

	var docs []*store.Document
	for rows.Next() {
		var (
			id  string
			doc store.Document
		)
		if err := rows.Scan(&id, &doc.Data, &doc.CreateTime, &doc.UpdateTime); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if doc.Data == nil {
			doc.Data = map[string]any{}
		}
		doc.Path = collection.Doc(id)
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", mapPostgresError(err))
	}

	return docs, nil
}

func buildQuery(collection store.Path, q store.Query) (string, []any, error) {
	var sb strings.Builder
	args := []any{collection.String()}

	sb.WriteString(`SELECT doc_id, data, created_at, updated_at FROM documents WHERE collection = $1`)

	for _, f := range q.Filters {
		if f.Op != store.OpEqual && f.Op != "" {
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		fieldPath := strings.Split(f.Field, ".")

		containment, err := json.Marshal(nest(fieldPath, f.Value))
		if err != nil {
			return "", nil, fmt.Errorf("invalid filter value for %s: %w", f.Field, err)
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("invalid filter value for %s: %w", f.Field, err)
		}

		args = append(args, string(containment), fieldPath, string(value))
		n := len(args)
		fmt.Fprintf(&sb, ` AND data @> $%d::jsonb AND data #> $%d::text[] = $%d::jsonb`, n-2, n-1, n)
	}

	if q.OrderBy != "" {
		args = append(args, strings.Split(q.OrderBy, "."))
		if q.Descending {
			fmt.Fprintf(&sb, ` ORDER BY data #> $%d::text[] DESC NULLS LAST, doc_id DESC`, len(args))
		} else {
			fmt.Fprintf(&sb, ` ORDER BY data #> $%d::text[] ASC NULLS FIRST, doc_id ASC`, len(args))
		}
	} else {
		sb.WriteString(` ORDER BY doc_id ASC`)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	return sb.String(), args, nil
}

// nest turns ["a","b"], v into {"a":{"b":v}}.
func nest(fieldPath []string, v any) map[string]any {
	out := map[string]any{fieldPath[len(fieldPath)-1]: v}
	for i := len(fieldPath) - 2; i >= 0; i-- {
		out = map[string]any{fieldPath[i]: out}
	}
	return out
}

// Set creates, replaces or merges a document.
func (s *DocumentStore) Set(ctx context.Context, doc store.Path, data map[string]any, opts ...store.SetOption) error {
	if err := doc.ValidateDocument(); err != nil {
		return err
	}
	normalized, err := store.NormalizeData(data)
	if err != nil {
		return err
	}
	options := store.ApplySetOptions(opts...)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if options.Merge {
		return s.merge(ctx, doc, normalized)
	}

	payload, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, doc_id, org_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $5)
		ON CONFLICT (collection, doc_id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		doc.Parent().String(),
		doc.ID(),
		doc.OrgID(),
		string(payload),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set document %s: %w", doc, mapPostgresError(err))
	}

	log.Debug().Str("path", doc.String()).Msg("Set document")

	return nil
}

// merge reads the current document under a row lock so concurrent merges into the
// same document are serialized.
func (s *DocumentStore) merge(ctx context.Context, doc store.Path, data map[string]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	var existing map[string]any
	err = tx.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND doc_id = $2 FOR UPDATE`,
		doc.Parent().String(), doc.ID(),
	).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to read document %s: %w", doc, mapPostgresError(err))
	}

	payload, err := json.Marshal(store.MergeData(existing, data))
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO documents (collection, doc_id, org_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $5)
		ON CONFLICT (collection, doc_id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`,
		doc.Parent().String(),
		doc.ID(),
		doc.OrgID(),
		string(payload),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to merge document %s: %w", doc, mapPostgresError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapPostgresError(err))
	}

	log.Debug().Str("path", doc.String()).Msg("Merged document")

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
	normalized, err := store.NormalizeData(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE documents SET
			data = data || $3::jsonb,
			updated_at = $4
		WHERE collection = $1 AND doc_id = $2
	`

	result, err := s.pool.Exec(ctx, query,
		doc.Parent().String(),
		doc.ID(),
		string(payload),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", doc, mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrDocumentNotFound
	}

	log.Debug().Str("path", doc.String()).Msg("Updated document")

	return nil
}

// Delete removes a document if present.
func (s *DocumentStore) Delete(ctx context.Context, doc store.Path) error {
	if err := doc.ValidateDocument(); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND doc_id = $2`,
		doc.Parent().String(), doc.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", doc, mapPostgresError(err))
	}

	log.Debug().Str("path", doc.String()).Msg("Deleted document")

	return nil
}
