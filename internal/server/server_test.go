package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/casework/internal/auth"
	"github.com/wolfeidau/casework/internal/bootstrap"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/records"
	"github.com/wolfeidau/casework/internal/saga"
	"github.com/wolfeidau/casework/internal/storage"
	"github.com/wolfeidau/casework/internal/tenant"
	"github.com/wolfeidau/casework/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	testOrg      = "org-1"
	testPassword = "correct-horse-battery"
)

type harness struct {
	t   *testing.T
	svc *bootstrap.Services
	srv *httptest.Server
}

func newHarness(t *testing.T) *harness {
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
		OrgID:    testOrg,
		OrgName:  "Harbor Outreach",
		Email:    "dev@example.com",
		Password: testPassword,
	}))
	for _, u := range []struct{ email, role string }{
		{"admin@example.com", models.RoleAdmin},
		{"staff@example.com", models.RoleStaff},
	} {
		_, err := svc.Auth.CreateUser(ctx, auth.CreateUserRequest{
			Email:          u.email,
			Password:       testPassword,
			Name:           u.role,
			Role:           u.role,
			OrganizationID: testOrg,
		})
		require.NoError(t, err)
	}

	srv := httptest.NewServer(NewServer(svc, Config{CORSOrigins: []string{"https://app.example.com"}}).Handler(zerolog.Nop()))
	t.Cleanup(srv.Close)

	return &harness{t: t, svc: svc, srv: srv}
}

func (h *harness) do(method, path, token string, body any) (*http.Response, []byte) {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, h.srv.URL+path, reader)
	require.NoError(h.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.srv.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, data
}

func (h *harness) signIn(email string) string {
	h.t.Helper()
	resp, body := h.do(http.MethodPost, "/api/session", "", signInRequest{Email: email, Password: testPassword})
	require.Equal(h.t, http.StatusOK, resp.StatusCode, string(body))

	var session sessionView
	require.NoError(h.t, json.Unmarshal(body, &session))
	require.NotEmpty(h.t, session.Token)
	return session.Token
}

// seedEngagement records one Narcan delivery for a new participant this month.
func (h *harness) seedEngagement() period.Month {
	h.t.Helper()
	ctx := context.Background()

	narcan, err := h.svc.Catalog.Create(ctx, testOrg, models.CatalogServices, "Narcan")
	require.NoError(h.t, err)

	p, err := h.svc.Records.CreateParticipant(ctx, testOrg, models.Participant{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(h.t, err)

	_, err = h.svc.Records.RecordServices(ctx, testOrg, p.ID, []models.ServiceEntry{{ServiceID: narcan.ID, ServiceName: narcan.Name}})
	require.NoError(h.t, err)

	return period.Of(time.Now().UTC())
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.do(http.MethodPost, "/api/session", "", signInRequest{Email: "admin@example.com", Password: "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := h.signIn("admin@example.com")

	resp, body := h.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me userView
	require.NoError(t, json.Unmarshal(body, &me))
	require.Equal(t, "admin@example.com", me.Email)
	require.Equal(t, models.RoleAdmin, me.Role)
	require.Equal(t, testOrg, me.OrganizationID)

	resp, _ = h.do(http.MethodDelete, "/api/session", token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = h.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReports(t *testing.T) {
	h := newHarness(t)
	month := h.seedEngagement()
	token := h.signIn("staff@example.com")

	t.Run("json", func(t *testing.T) {
		resp, body := h.do(http.MethodGet, "/api/reports/organization?month="+month.String(), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var res struct {
			UniqueParticipantCount int `json:"uniqueParticipantCount"`
			Services               []struct {
				Name             string `json:"name"`
				ParticipantCount int    `json:"participantCount"`
			} `json:"services"`
		}
		require.NoError(t, json.Unmarshal(body, &res))
		require.Equal(t, 1, res.UniqueParticipantCount)
		require.Len(t, res.Services, 1)
		require.Equal(t, "Narcan", res.Services[0].Name)
		require.Equal(t, 1, res.Services[0].ParticipantCount)
	})

	t.Run("pdf", func(t *testing.T) {
		resp, body := h.do(http.MethodGet, "/api/reports/organization/pdf?month="+month.String(), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
		require.Equal(t,
			fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("MonthlyReport_%s_%d.pdf", month.Name(), month.Year)),
			resp.Header.Get("Content-Disposition"))
		require.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
	})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{name: "unknown kind", path: "/api/reports/payroll?month=" + month.String(), status: http.StatusBadRequest},
		{name: "bad month", path: "/api/reports/organization?month=March", status: http.StatusBadRequest},
		{name: "program required", path: "/api/reports/programs?month=" + month.String(), status: http.StatusBadRequest},
		{name: "unknown program", path: "/api/reports/programs?program=Housing&month=" + month.String(), status: http.StatusNotFound},
		{name: "default month", path: "/api/reports/recaps", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.do(http.MethodGet, tt.path, token, nil)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestArchive(t *testing.T) {
	h := newHarness(t)
	month := h.seedEngagement()
	staff := h.signIn("staff@example.com")
	admin := h.signIn("admin@example.com")

	resp, _ := h.do(http.MethodPost, "/api/reports/organization/archive?month="+month.String(), staff, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := h.do(http.MethodPost, "/api/reports/organization/archive?month="+month.String(), admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var saved struct {
		Path      string `json:"path"`
		Unchanged bool   `json:"unchanged"`
	}
	require.NoError(t, json.Unmarshal(body, &saved))
	require.Equal(t, fmt.Sprintf("organizations/%s/reports/organization/%s.pdf", testOrg, month.Stem()), saved.Path)
	require.False(t, saved.Unchanged)

	resp, body = h.do(http.MethodPost, "/api/reports/organization/archive?month="+month.String(), admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &saved))
	require.True(t, saved.Unchanged)

	resp, body = h.do(http.MethodGet, "/api/archive/organization", staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	require.Equal(t, month.Stem()+".pdf", listed[0].Name)

	resp, body = h.do(http.MethodGet, "/api/archive/organization/"+listed[0].Name, staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, bytes.HasPrefix(body, []byte("%PDF-")))

	resp, _ = h.do(http.MethodGet, "/api/archive/organization/missing.pdf", staff, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCatalog(t *testing.T) {
	h := newHarness(t)
	h.seedEngagement()
	staff := h.signIn("staff@example.com")
	admin := h.signIn("admin@example.com")

	resp, body := h.do(http.MethodPost, "/api/catalog/programs", admin, nameRequest{Name: "Housing"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created catalogItemView
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "Housing", created.Name)

	resp, _ = h.do(http.MethodPost, "/api/catalog/programs", staff, nameRequest{Name: "Shelter"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = h.do(http.MethodPost, "/api/catalog/programs", admin, nameRequest{Name: "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = h.do(http.MethodGet, "/api/catalog/services", staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var services []catalogItemView
	require.NoError(t, json.Unmarshal(body, &services))
	require.Len(t, services, 1)

	resp, body = h.do(http.MethodPatch, "/api/catalog/services/"+services[0].ID, admin, nameRequest{Name: "Narcan Kit"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var renamed renameView
	require.NoError(t, json.Unmarshal(body, &renamed))
	require.Equal(t, "Narcan", renamed.OldName)
	require.Equal(t, "Narcan Kit", renamed.Item.Name)
	require.Equal(t, 1, renamed.Planned)
	require.Equal(t, 1, renamed.Applied)

	resp, _ = h.do(http.MethodPatch, "/api/catalog/services/does-not-exist", admin, nameRequest{Name: "Other"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = h.do(http.MethodGet, "/api/catalog/outbox", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `[]`, string(body))

	resp, body = h.do(http.MethodPost, "/api/catalog/outbox/resume", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"applied":0,"dropped":0,"remaining":0}`, string(body))

	resp, _ = h.do(http.MethodDelete, "/api/catalog/programs/"+created.ID, admin, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = h.do(http.MethodDelete, "/api/catalog/programs/"+created.ID, admin, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateUser(t *testing.T) {
	h := newHarness(t)
	admin := h.signIn("admin@example.com")
	dev := h.signIn("dev@example.com")

	req := auth.CreateUserRequest{Email: "new@example.com", Password: testPassword, Name: "New Staff", Role: models.RoleStaff}

	resp, body := h.do(http.MethodPost, "/api/users", admin, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var user userView
	require.NoError(t, json.Unmarshal(body, &user))
	require.Equal(t, testOrg, user.OrganizationID)

	// the admin's own session is untouched
	resp, body = h.do(http.MethodGet, "/api/me", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "admin@example.com")

	resp, _ = h.do(http.MethodPost, "/api/users", admin, req)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	elevated := req
	elevated.Email = "root@example.com"
	elevated.Role = models.RoleDeveloper
	resp, _ = h.do(http.MethodPost, "/api/users", admin, elevated)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = h.do(http.MethodPost, "/api/users", dev, elevated)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = h.do(http.MethodPost, "/api/organizations", admin, organizationView{Name: "Other", Email: "other@example.com"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = h.do(http.MethodPost, "/api/organizations", dev, organizationView{Name: "Other", Email: "other@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		contains string
	}{
		{name: "tenant not ready", err: tenant.ErrNotReady, status: http.StatusConflict},
		{name: "not found", err: fmt.Errorf("load: %w", records.ErrCatalogItemNotFound), status: http.StatusNotFound},
		{name: "invalid", err: fmt.Errorf("%w: name required", validate.ErrInvalid), status: http.StatusBadRequest},
		{name: "forbidden", err: auth.ErrForbidden, status: http.StatusForbidden},
		{
			name: "partial failure",
			err: &saga.PartialFailureError{
				Completed: []string{"upload"},
				Failed:    []saga.StepError{{Step: "marker", Err: errors.New("boom"), Message: "boom"}},
			},
			status:   http.StatusBadGateway,
			contains: `"unconfirmed":["marker"]`,
		},
		{name: "backend failure", err: errors.New("connection refused"), status: http.StatusInternalServerError, contains: reportFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/reports/organization", nil)

			writeError(rec, req, tt.err, reportFailed, nil)

			require.Equal(t, tt.status, rec.Code)
			if tt.contains != "" {
				require.Contains(t, rec.Body.String(), tt.contains)
			}
			require.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}
