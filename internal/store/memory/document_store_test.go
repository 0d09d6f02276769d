package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/casework/internal/store"
)

func TestDocumentStoreSetGet(t *testing.T) {
	ctx := context.Background()
	services := store.Org("org-a").Collection(store.CollectionServices)

	t.Run("get missing document", func(t *testing.T) {
		st := NewDocumentStore()
		_, err := st.Get(ctx, services.Doc("missing"))
		require.ErrorIs(t, err, store.ErrDocumentNotFound)
	})

	t.Run("set normalizes numbers", func(t *testing.T) {
		st := NewDocumentStore()
		require.NoError(t, st.Set(ctx, services.Doc("s1"), map[string]any{"name": "Narcan", "count": 2}))

		doc, err := st.Get(ctx, services.Doc("s1"))
		require.NoError(t, err)
		require.Equal(t, float64(2), doc.Data["count"])
		require.Equal(t, "s1", doc.ID())
	})

	t.Run("returned data is a copy", func(t *testing.T) {
		st := NewDocumentStore()
		require.NoError(t, st.Set(ctx, services.Doc("s1"), map[string]any{"name": "Narcan"}))

		doc, err := st.Get(ctx, services.Doc("s1"))
		require.NoError(t, err)
		doc.Data["name"] = "changed"

		again, err := st.Get(ctx, services.Doc("s1"))
		require.NoError(t, err)
		require.Equal(t, "Narcan", again.Data["name"])
	})

	t.Run("set without merge replaces", func(t *testing.T) {
		st := NewDocumentStore()
		require.NoError(t, st.Set(ctx, services.Doc("s1"), map[string]any{"name": "Narcan", "extra": true}))
		require.NoError(t, st.Set(ctx, services.Doc("s1"), map[string]any{"name": "Narcan Kit"}))

		doc, err := st.Get(ctx, services.Doc("s1"))
		require.NoError(t, err)
		require.Equal(t, map[string]any{"name": "Narcan Kit"}, doc.Data)
	})

	t.Run("merge deep merges maps", func(t *testing.T) {
		st := NewDocumentStore()
		marker := store.Org("org-a").Collection(store.CollectionMonthlyReports).Doc("March-2024")
		require.NoError(t, st.Set(ctx, marker, map[string]any{"programReports": map[string]any{"Housing": "a.pdf"}}, store.WithMerge()))
		require.NoError(t, st.Set(ctx, marker, map[string]any{"programReports": map[string]any{"Outreach": "b.pdf"}}, store.WithMerge()))

		doc, err := st.Get(ctx, marker)
		require.NoError(t, err)
		require.Equal(t, map[string]any{"Housing": "a.pdf", "Outreach": "b.pdf"}, doc.Data["programReports"])
	})

	t.Run("invalid paths are rejected", func(t *testing.T) {
		st := NewDocumentStore()
		err := st.Set(ctx, store.Org("org-a").Collection(store.CollectionServices), map[string]any{})
		require.ErrorIs(t, err, store.ErrInvalidPath)

		_, err = st.GetAll(ctx, services.Doc("s1"))
		require.ErrorIs(t, err, store.ErrInvalidPath)
	})

	t.Run("cancelled context", func(t *testing.T) {
		st := NewDocumentStore()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := st.Get(cctx, services.Doc("s1"))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestDocumentStoreQuery(t *testing.T) {
	ctx := context.Background()
	history := store.Org("org-a").
		Collection(store.CollectionParticipants).Doc("p1").
		Collection(store.CollectionParticipantServices)

	st := NewDocumentStore()
	records := []struct {
		id        string
		createdAt string
		name      string
	}{
		{"r1", "2024-03-01T00:00:00.000000Z", "Narcan"},
		{"r2", "2024-03-05T00:00:00.000000Z", "Counseling"},
		{"r3", "2024-03-03T00:00:00.000000Z", "Narcan"},
	}
	for _, r := range records {
		require.NoError(t, st.Set(ctx, history.Doc(r.id), map[string]any{
			"createdAt": r.createdAt,
			"service":   map[string]any{"name": r.name},
		}))
	}

	tests := []struct {
		name  string
		query store.Query
		want  []string
	}{
		{name: "no filters orders by id", query: store.Query{}, want: []string{"r1", "r2", "r3"}},
		{name: "nested equality filter", query: store.Query{}.Where("service.name", "Narcan"), want: []string{"r1", "r3"}},
		{name: "order ascending", query: store.Query{}.OrderByField("createdAt", false), want: []string{"r1", "r3", "r2"}},
		{name: "latest", query: store.Query{}.OrderByField("createdAt", true).WithLimit(1), want: []string{"r2"}},
		{name: "filter with limit", query: store.Query{}.Where("service.name", "Narcan").OrderByField("createdAt", true).WithLimit(1), want: []string{"r3"}},
		{name: "missing field matches nothing", query: store.Query{}.Where("program.name", "Housing"), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := st.Query(ctx, history, tt.query)
			require.NoError(t, err)

			var ids []string
			for _, d := range docs {
				ids = append(ids, d.ID())
			}
			require.Equal(t, tt.want, ids)
		})
	}
}

func TestDocumentStoreUpdateDeleteAdd(t *testing.T) {
	ctx := context.Background()
	programs := store.Org("org-a").Collection(store.CollectionPrograms)

	t.Run("update missing document", func(t *testing.T) {
		st := NewDocumentStore()
		err := st.Update(ctx, programs.Doc("nope"), map[string]any{"name": "x"})
		require.ErrorIs(t, err, store.ErrDocumentNotFound)
	})

	t.Run("update replaces top level fields", func(t *testing.T) {
		st := NewDocumentStore()
		created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		updated := created.Add(time.Hour)
		st.now = func() time.Time { return created }
		require.NoError(t, st.Set(ctx, programs.Doc("p1"), map[string]any{"name": "Housing", "meta": map[string]any{"a": 1}}))

		st.now = func() time.Time { return updated }
		require.NoError(t, st.Update(ctx, programs.Doc("p1"), map[string]any{"meta": map[string]any{"b": 2}}))

		doc, err := st.Get(ctx, programs.Doc("p1"))
		require.NoError(t, err)
		require.Equal(t, "Housing", doc.Data["name"])
		require.Equal(t, map[string]any{"b": float64(2)}, doc.Data["meta"])
		require.Equal(t, created, doc.CreateTime)
		require.Equal(t, updated, doc.UpdateTime)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		st := NewDocumentStore()
		require.NoError(t, st.Set(ctx, programs.Doc("p1"), map[string]any{"name": "Housing"}))
		require.NoError(t, st.Delete(ctx, programs.Doc("p1")))
		require.NoError(t, st.Delete(ctx, programs.Doc("p1")))

		_, err := st.Get(ctx, programs.Doc("p1"))
		require.ErrorIs(t, err, store.ErrDocumentNotFound)
	})

	t.Run("add generates distinct ids", func(t *testing.T) {
		st := NewDocumentStore()
		a, err := st.Add(ctx, programs, map[string]any{"name": "Housing"})
		require.NoError(t, err)
		b, err := st.Add(ctx, programs, map[string]any{"name": "Outreach"})
		require.NoError(t, err)
		require.NotEqual(t, a.ID(), b.ID())

		all, err := st.GetAll(ctx, programs)
		require.NoError(t, err)
		require.Len(t, all, 2)
	})
}
