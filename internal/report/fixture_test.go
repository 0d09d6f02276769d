package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/records"
	"github.com/wolfeidau/casework/internal/store"
	"github.com/wolfeidau/casework/internal/store/memory"
)

// fixture writes documents straight into a memory store so tests control every
// timestamp.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	docs  *memory.DocumentStore
	repo  *records.Repository
	orgID string
}

func newFixture(t *testing.T, orgID string) *fixture {
	t.Helper()
	docs := memory.NewDocumentStore()
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		docs:  docs,
		repo:  records.New(docs, records.WithLocation(time.UTC)),
		orgID: orgID,
	}
}

func (f *fixture) engine(opts ...Option) *Engine {
	return NewEngine(f.repo, append([]Option{WithLocation(time.UTC)}, opts...)...)
}

func (f *fixture) set(p store.Path, v any) {
	f.t.Helper()
	data, err := store.Encode(v)
	require.NoError(f.t, err)
	require.NoError(f.t, f.docs.Set(f.ctx, p, data))
}

func (f *fixture) org() store.Path {
	return store.Org(f.orgID)
}

func (f *fixture) participantPath(pid string) store.Path {
	return f.org().Collection(store.CollectionParticipants).Doc(pid)
}

func (f *fixture) catalog(kind models.CatalogKind, id, name string, createdAt time.Time) {
	f.set(f.org().Collection(string(kind)).Doc(id), models.CatalogItem{Name: name, CreatedAt: models.NewTimestamp(createdAt)})
}

func (f *fixture) participant(pid string) {
	f.set(f.participantPath(pid), models.Participant{FirstName: pid, CreatedAt: models.NewTimestamp(day(2024, 1, 1))})
}

func (f *fixture) services(pid, id string, at time.Time, entries ...models.ServiceEntry) {
	f.set(f.participantPath(pid).Collection(store.CollectionParticipantServices).Doc(id), models.ServiceRecord{
		CreatedAt: models.NewTimestamp(at),
		Services:  entries,
	})
}

func (f *fixture) program(pid, id string, at time.Time, programID, programName string) {
	f.set(f.participantPath(pid).Collection(store.CollectionParticipantProgram).Doc(id), models.ProgramRecord{
		CreatedAt: models.NewTimestamp(at),
		Programs:  []models.ProgramEntry{{ProgramID: programID, ProgramName: programName, AssignedAt: at.Format(time.DateOnly)}},
	})
}

func (f *fixture) location(pid, id string, at time.Time, name string) {
	f.set(f.participantPath(pid).Collection(store.CollectionParticipantLocation).Doc(id), models.LocationRecord{
		CreatedAt: models.NewTimestamp(at),
		Location:  name,
	})
}

func (f *fixture) engagement(pid, date string) {
	f.set(f.participantPath(pid).Collection(store.CollectionLastEngagement).Doc(store.CurrentDoc), models.LastEngagement{
		Date: date,
		Type: models.EngagementServices,
	})
}

func (f *fixture) demographics(pid string, d models.Demographics) {
	f.set(f.participantPath(pid).Collection(store.CollectionDemographics).Doc(store.CurrentDoc), d)
}

func (f *fixture) recap(id, typeName, date string, fields map[string]any) {
	f.set(f.org().Collection(store.CollectionRecaps).Doc(id), models.Recap{
		Name:          id,
		Date:          date,
		RecapTypeID:   "type-" + typeName,
		RecapTypeName: typeName,
		Fields:        fields,
	})
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func svc(id, name string, count int) models.ServiceEntry {
	return models.ServiceEntry{ServiceID: id, ServiceName: name, Count: count}
}
