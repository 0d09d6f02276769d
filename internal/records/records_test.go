package records

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/store/memory"
	"github.com/wolfeidau/casework/internal/tenant"
	"github.com/wolfeidau/casework/internal/validate"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestRepository(t *testing.T) (*Repository, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	return New(memory.NewDocumentStore(), WithLocation(time.UTC), WithClock(c.Now)), c
}

func addCatalogItem(t *testing.T, r *Repository, orgID string, kind models.CatalogKind, id, name string) {
	t.Helper()
	collection, err := CatalogPath(orgID, kind)
	require.NoError(t, err)
	require.NoError(t, r.Store().Set(context.Background(), collection.Doc(id), map[string]any{"name": name}))
}

func TestTenantNotReady(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)

	_, err := r.ListParticipants(ctx, "")
	require.ErrorIs(t, err, tenant.ErrNotReady)

	_, err = r.ListCatalog(ctx, "", models.CatalogServices)
	require.ErrorIs(t, err, tenant.ErrNotReady)

	_, err = r.RecordServices(ctx, "", "p1", []models.ServiceEntry{{ServiceID: "s1"}})
	require.ErrorIs(t, err, tenant.ErrNotReady)
}

func TestParticipantEngagement(t *testing.T) {
	ctx := context.Background()
	r, c := newTestRepository(t)
	const orgID = "org-a"

	p, err := r.CreateParticipant(ctx, orgID, models.Participant{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	t.Run("missing marker and demographics are no data", func(t *testing.T) {
		le, err := r.LastEngagement(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Nil(t, le)

		d, err := r.Demographics(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Nil(t, d)

		latest, err := r.LatestProgram(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Nil(t, latest)
	})

	t.Run("recording services updates the marker", func(t *testing.T) {
		rec, err := r.RecordServices(ctx, orgID, p.ID, []models.ServiceEntry{{ServiceID: "s1", ServiceName: "Narcan", Count: 2}})
		require.NoError(t, err)
		require.NotEmpty(t, rec.ID)

		le, err := r.LastEngagement(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Equal(t, "03/15/2024", le.Date)
		require.Equal(t, models.EngagementServices, le.Type)

		records, err := r.ServiceRecords(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, 2, records[0].Services[0].Count)
	})

	t.Run("empty service list is rejected", func(t *testing.T) {
		_, err := r.RecordServices(ctx, orgID, p.ID, nil)
		require.ErrorIs(t, err, validate.ErrInvalid)
	})

	t.Run("latest program wins", func(t *testing.T) {
		addCatalogItem(t, r, orgID, models.CatalogPrograms, "prog-1", "Housing")
		addCatalogItem(t, r, orgID, models.CatalogPrograms, "prog-2", "Outreach")

		_, err := r.AssignProgram(ctx, orgID, p.ID, "prog-1")
		require.NoError(t, err)
		c.advance(24 * time.Hour)
		_, err = r.AssignProgram(ctx, orgID, p.ID, "prog-2")
		require.NoError(t, err)

		latest, err := r.LatestProgram(ctx, orgID, p.ID)
		require.NoError(t, err)
		entry, ok := latest.Current()
		require.True(t, ok)
		require.Equal(t, "prog-2", entry.ProgramID)
		require.Equal(t, "Outreach", entry.ProgramName)

		le, err := r.LastEngagement(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Equal(t, "03/16/2024", le.Date)
		require.Equal(t, models.EngagementProgram, le.Type)
	})

	t.Run("unknown program", func(t *testing.T) {
		_, err := r.AssignProgram(ctx, orgID, p.ID, "nope")
		require.ErrorIs(t, err, ErrCatalogItemNotFound)
	})

	t.Run("latest location wins", func(t *testing.T) {
		_, err := r.RecordLocation(ctx, orgID, p.ID, "Downtown")
		require.NoError(t, err)
		c.advance(time.Hour)
		_, err = r.RecordLocation(ctx, orgID, p.ID, "Eastside")
		require.NoError(t, err)

		latest, err := r.LatestLocation(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Equal(t, "Eastside", latest.Location)
	})

	t.Run("demographics merge", func(t *testing.T) {
		require.NoError(t, r.UpsertDemographics(ctx, orgID, p.ID, models.Demographics{Race: "Asian"}))
		require.NoError(t, r.UpsertDemographics(ctx, orgID, p.ID, models.Demographics{Gender: "Female"}))

		d, err := r.Demographics(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Equal(t, "Asian", d.Race)
		require.Equal(t, "Female", d.Gender)
	})

	t.Run("notes", func(t *testing.T) {
		_, err := r.AddNote(ctx, orgID, p.ID, "", "staff-1")
		require.ErrorIs(t, err, validate.ErrInvalid)

		note, err := r.AddNote(ctx, orgID, p.ID, "Checked in", "staff-1")
		require.NoError(t, err)

		notes, err := r.Notes(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		require.Equal(t, note.ID, notes[0].ID)

		le, err := r.LastEngagement(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Equal(t, models.EngagementNotes, le.Type)
	})

	t.Run("get participant", func(t *testing.T) {
		got, err := r.GetParticipant(ctx, orgID, p.ID)
		require.NoError(t, err)
		require.Equal(t, "Ada", got.FirstName)

		_, err = r.GetParticipant(ctx, orgID, "missing")
		require.ErrorIs(t, err, ErrParticipantNotFound)
	})
}

func TestCatalogReads(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)

	addCatalogItem(t, r, "org-a", models.CatalogServices, "b", "Narcan")
	addCatalogItem(t, r, "org-a", models.CatalogServices, "a", "Counseling")
	addCatalogItem(t, r, "org-b", models.CatalogServices, "c", "Other tenant")

	items, err := r.ListCatalog(ctx, "org-a", models.CatalogServices)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Counseling", items[0].Name)
	require.Equal(t, "Narcan", items[1].Name)

	addCatalogItem(t, r, "org-a", models.CatalogPrograms, "p1", "Housing")
	program, err := r.FindProgramByName(ctx, "org-a", "Housing")
	require.NoError(t, err)
	require.Equal(t, "p1", program.ID)

	_, err = r.FindProgramByName(ctx, "org-a", "Nope")
	require.ErrorIs(t, err, ErrCatalogItemNotFound)
}

func TestRecaps(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	const orgID = "org-a"

	rt, err := r.CreateRecapType(ctx, orgID, models.RecapType{
		Name: "Outreach",
		Fields: []models.RecapField{
			{ID: "kits", Name: "Kits handed out", Type: models.FieldNumber, Required: true},
			{ID: "notes", Name: "Notes", Type: models.FieldText},
			{ID: "areas", Name: "Areas", Type: models.FieldMultiSelect, Options: []string{"North", "South"}},
		},
	})
	require.NoError(t, err)

	t.Run("invalid recap type", func(t *testing.T) {
		_, err := r.CreateRecapType(ctx, orgID, models.RecapType{
			Name:   "Broken",
			Fields: []models.RecapField{{ID: "x", Name: "X", Type: "color"}},
		})
		require.ErrorIs(t, err, validate.ErrInvalid)

		_, err = r.CreateRecapType(ctx, orgID, models.RecapType{
			Name:   "No options",
			Fields: []models.RecapField{{ID: "x", Name: "X", Type: models.FieldMultiSelect}},
		})
		require.ErrorIs(t, err, validate.ErrInvalid)
	})

	tests := []struct {
		name    string
		fields  map[string]any
		wantErr bool
	}{
		{name: "valid", fields: map[string]any{"kits": 12, "areas": []any{"North"}}},
		{name: "numeric string", fields: map[string]any{"kits": "7"}},
		{name: "missing required", fields: map[string]any{"notes": "hi"}, wantErr: true},
		{name: "not a number", fields: map[string]any{"kits": "lots"}, wantErr: true},
		{name: "bad option", fields: map[string]any{"kits": 1, "areas": []any{"West"}}, wantErr: true},
		{name: "unknown field", fields: map[string]any{"kits": 1, "color": "red"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := r.CreateRecap(ctx, orgID, models.Recap{
				Name:        "Night walk",
				Date:        "2024-03-10",
				RecapTypeID: rt.ID,
				Fields:      tt.fields,
			})
			if tt.wantErr {
				require.ErrorIs(t, err, validate.ErrInvalid)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "Outreach", rc.RecapTypeName)
		})
	}

	t.Run("unknown recap type", func(t *testing.T) {
		_, err := r.CreateRecap(ctx, orgID, models.Recap{Name: "x", Date: "2024-03-10", RecapTypeID: "nope"})
		require.ErrorIs(t, err, ErrRecapTypeNotFound)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := r.CreateRecap(ctx, orgID, models.Recap{Name: "x", Date: "someday", RecapTypeID: rt.ID})
		require.ErrorIs(t, err, validate.ErrInvalid)
	})

	recaps, err := r.ListRecaps(ctx, orgID)
	require.NoError(t, err)
	require.Len(t, recaps, 2)
}

func TestNumericValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
		ok    bool
	}{
		{name: "float", input: 2.5, want: 2.5, ok: true},
		{name: "numeric string", input: " 10 ", want: 10, ok: true},
		{name: "empty string", input: "", ok: false},
		{name: "text", input: "ten", ok: false},
		{name: "nan", input: "NaN", ok: false},
		{name: "list", input: []any{"1"}, ok: false},
		{name: "bool", input: true, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NumericValue(tt.input)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestOrganizations(t *testing.T) {
	ctx := context.Background()
	r, c := newTestRepository(t)

	_, err := r.CreateOrganization(ctx, models.Organization{Name: "Org A"})
	require.ErrorIs(t, err, validate.ErrInvalid)

	org, err := r.CreateOrganization(ctx, models.Organization{ID: "org-a", Name: "Org A", Email: "ops@example.org", UserLimit: 5})
	require.NoError(t, err)
	require.Equal(t, "org-a", org.ID)

	got, err := r.GetOrganization(ctx, "org-a")
	require.NoError(t, err)
	require.Equal(t, "Org A", got.Name)
	require.False(t, got.SubscriptionActive(c.now))

	until := c.now.AddDate(1, 0, 0)
	renewed, err := r.RenewSubscription(ctx, "org-a", "pro", until)
	require.NoError(t, err)
	require.Equal(t, "pro", renewed.SubscriptionTier)
	require.True(t, renewed.SubscriptionActive(c.now))

	_, err = r.RenewSubscription(ctx, "org-a", "pro", c.now.Add(-time.Hour))
	require.ErrorIs(t, err, validate.ErrInvalid)

	_, err = r.RenewSubscription(ctx, "missing", "pro", until)
	require.ErrorIs(t, err, ErrOrganizationNotFound)

	_, err = r.GetOrganization(ctx, "missing")
	require.ErrorIs(t, err, ErrOrganizationNotFound)

}
