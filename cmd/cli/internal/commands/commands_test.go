package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/casework/internal/auth"
	"github.com/wolfeidau/casework/internal/bootstrap"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/storage"
	"github.com/wolfeidau/casework/internal/tenant"
	"golang.org/x/crypto/bcrypt"
)

const password = "correct-horse-battery"

func newGlobals(t *testing.T) (*Globals, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()

	svc, err := bootstrap.Bootstrap(ctx, bootstrap.Config{
		StoreType:  bootstrap.StoreMemory,
		Blobs:      storage.Config{Type: storage.TypeMemory},
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
		BcryptCost: bcrypt.MinCost,
		Location:   time.UTC,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	require.NoError(t, bootstrap.Seed(ctx, svc, bootstrap.SeedConfig{
		OrgID: "org-1", OrgName: "Harbor Outreach", Email: "dev@example.com", Password: password,
	}))
	_, err = svc.Auth.CreateUser(ctx, auth.CreateUserRequest{
		Email: "staff@example.com", Password: password, Name: "Staff", Role: models.RoleStaff, OrganizationID: "org-1",
	})
	require.NoError(t, err)

	narcan, err := svc.Catalog.Create(ctx, "org-1", models.CatalogServices, "Narcan")
	require.NoError(t, err)
	p, err := svc.Records.CreateParticipant(ctx, "org-1", models.Participant{FirstName: "Ada"})
	require.NoError(t, err)
	_, err = svc.Records.RecordServices(ctx, "org-1", p.ID, []models.ServiceEntry{{ServiceID: narcan.ID, ServiceName: narcan.Name}})
	require.NoError(t, err)

	var out bytes.Buffer
	return &Globals{StateDir: t.TempDir(), Out: &out, services: svc}, &out
}

func login(t *testing.T, g *Globals, email string) {
	t.Helper()
	require.NoError(t, (&LoginCmd{Email: email, Password: password}).Run(context.Background(), g))
}

func TestLoginReportArchiveHistory(t *testing.T) {
	ctx := context.Background()
	g, out := newGlobals(t)
	month := period.Of(time.Now().UTC()).String()

	err := (&ReportCmd{Report: reportFlags{Kind: "organization", Month: month}, JSON: true}).Run(ctx, g)
	require.ErrorIs(t, err, errNotSignedIn)

	login(t, g, "dev@example.com")
	require.Contains(t, out.String(), "Signed in as dev@example.com")

	out.Reset()
	require.NoError(t, (&ReportCmd{Report: reportFlags{Kind: "organization", Month: month}, JSON: true}).Run(ctx, g))
	require.Contains(t, out.String(), `"uniqueParticipantCount": 1`)

	pdfPath := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, (&ReportCmd{Report: reportFlags{Kind: "organization", Month: month}, Out: pdfPath}).Run(ctx, g))
	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	err = (&ReportCmd{Report: reportFlags{Kind: "programs", Month: month}}).Run(ctx, g)
	require.ErrorContains(t, err, "--program")

	out.Reset()
	require.NoError(t, (&ArchiveCmd{Report: reportFlags{Kind: "organization", Month: month}}).Run(ctx, g))
	require.Contains(t, out.String(), "Archived organizations/org-1/reports/organization/")

	out.Reset()
	require.NoError(t, (&ArchiveCmd{Report: reportFlags{Kind: "organization", Month: month}}).Run(ctx, g))
	require.Contains(t, out.String(), "Unchanged")

	out.Reset()
	require.NoError(t, (&HistoryCmd{Kind: "organization"}).Run(ctx, g))
	m, err := period.ParseMonth(month)
	require.NoError(t, err)
	require.Contains(t, out.String(), m.Stem()+".pdf")
}

func TestStaffCannotArchiveOrRename(t *testing.T) {
	ctx := context.Background()
	g, _ := newGlobals(t)
	login(t, g, "staff@example.com")

	err := (&ArchiveCmd{Report: reportFlags{Kind: "organization"}}).Run(ctx, g)
	require.ErrorIs(t, err, auth.ErrForbidden)

	err = (&RenameCmd{Kind: "services", ID: "anything", Name: "Other"}).Run(ctx, g)
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestUseOtherOrganization(t *testing.T) {
	ctx := context.Background()
	g, _ := newGlobals(t)
	login(t, g, "staff@example.com")

	require.NoError(t, (&UseCmd{OrgID: "org-2"}).Run(ctx, g))
	err := (&CatalogCmd{Kind: "services"}).Run(ctx, g)
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestRenameAndResume(t *testing.T) {
	ctx := context.Background()
	g, out := newGlobals(t)
	login(t, g, "dev@example.com")

	items, err := g.services.Catalog.List(ctx, "org-1", models.CatalogServices)
	require.NoError(t, err)
	require.Len(t, items, 1)

	out.Reset()
	require.NoError(t, (&CatalogCmd{Kind: "services"}).Run(ctx, g))
	require.Contains(t, out.String(), items[0].ID)

	out.Reset()
	require.NoError(t, (&RenameCmd{Kind: "services", ID: items[0].ID, Name: "Narcan Kit"}).Run(ctx, g))
	require.Contains(t, out.String(), `Renamed "Narcan" to "Narcan Kit", updated 1 of 1 history records`)

	out.Reset()
	require.NoError(t, (&ResumeOutboxCmd{}).Run(ctx, g))
	require.Equal(t, "Applied 0, dropped 0, remaining 0\n", out.String())
}

func TestNotReadySkips(t *testing.T) {
	ctx := context.Background()
	g, out := newGlobals(t)
	login(t, g, "dev@example.com")

	p, err := g.persister()
	require.NoError(t, err)
	state, err := p.Load()
	require.NoError(t, err)
	state.OrgID = ""
	require.NoError(t, p.Save(state))

	out.Reset()
	require.NoError(t, (&HistoryCmd{Kind: "organization"}).Run(ctx, g))
	require.Empty(t, out.String())

	tc, err := tenant.New(p)
	require.NoError(t, err)
	require.False(t, tc.Ready())
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	g, out := newGlobals(t)
	login(t, g, "dev@example.com")

	out.Reset()
	require.NoError(t, (&LogoutCmd{}).Run(ctx, g))
	require.Equal(t, "Signed out\n", out.String())

	err := (&CatalogCmd{Kind: "services"}).Run(ctx, g)
	require.ErrorIs(t, err, errNotSignedIn)

	out.Reset()
	require.NoError(t, (&LogoutCmd{}).Run(ctx, g))
	require.Equal(t, "Not signed in\n", out.String())
}
