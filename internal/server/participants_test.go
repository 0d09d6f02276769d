package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/report"
)

func (h *harness) createCatalogItem(token string, kind models.CatalogKind, name string) catalogItemView {
	h.t.Helper()
	resp, body := h.do(http.MethodPost, "/api/catalog/"+string(kind), token, nameRequest{Name: name})
	require.Equal(h.t, http.StatusCreated, resp.StatusCode, string(body))

	var item catalogItemView
	require.NoError(h.t, json.Unmarshal(body, &item))
	return item
}

func TestParticipantIntake(t *testing.T) {
	h := newHarness(t)
	admin := h.signIn("admin@example.com")
	staff := h.signIn("staff@example.com")

	narcan := h.createCatalogItem(admin, models.CatalogServices, "Narcan")
	outreach := h.createCatalogItem(admin, models.CatalogPrograms, "Outreach")
	downtown := h.createCatalogItem(admin, models.CatalogLocations, "Downtown")

	resp, body := h.do(http.MethodPost, "/api/participants", staff, participantView{FirstName: "Ada", LastName: "Lovelace"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var p participantView
	require.NoError(t, json.Unmarshal(body, &p))
	require.NotEmpty(t, p.ID)

	base := "/api/participants/" + p.ID
	steps := []struct {
		method string
		path   string
		body   any
		status int
	}{
		{http.MethodPost, base + "/services", servicesRequest{Services: []serviceRequest{{ServiceID: narcan.ID, Count: 2}}}, http.StatusCreated},
		{http.MethodPost, base + "/program", programRequest{ProgramID: outreach.ID}, http.StatusCreated},
		{http.MethodPost, base + "/location", locationRequest{LocationID: downtown.ID}, http.StatusCreated},
		{http.MethodPut, base + "/demographics", models.Demographics{Gender: "Female", Race: "White"}, http.StatusOK},
		{http.MethodPost, base + "/notes", noteRequest{Text: "first contact"}, http.StatusCreated},
	}
	for _, st := range steps {
		resp, body := h.do(st.method, st.path, staff, st.body)
		require.Equal(t, st.status, resp.StatusCode, "%s %s: %s", st.method, st.path, body)
	}

	resp, body = h.do(http.MethodGet, base, staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var profile profileView
	require.NoError(t, json.Unmarshal(body, &profile))
	require.Equal(t, "Ada", profile.Participant.FirstName)
	require.NotNil(t, profile.Program)
	require.Equal(t, "Outreach", profile.Program.ProgramName)
	require.Equal(t, "Downtown", profile.Location)
	require.Equal(t, "Female", profile.Demographics.Gender)
	require.Equal(t, models.EngagementNotes, profile.LastEngagement.Type)
	require.Len(t, profile.Notes, 1)
	require.Equal(t, "staff@example.com", profile.Notes[0].CreatedBy)

	month := period.Of(time.Now().UTC()).String()

	resp, body = h.do(http.MethodGet, "/api/reports/organization?month="+month, staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var org report.OrganizationResult
	require.NoError(t, json.Unmarshal(body, &org))
	require.Equal(t, 1, org.UniqueParticipantCount)
	require.Equal(t, []report.CategoryCount{{Name: "Narcan", ParticipantCount: 2}}, org.Services)
	require.Equal(t, []report.CategoryCount{{Name: "Outreach", ParticipantCount: 1}}, org.Programs)
	require.Equal(t, []report.CategoryCount{{Name: "Downtown", ParticipantCount: 1}}, org.Locations)

	resp, body = h.do(http.MethodGet, "/api/reports/demographics?month="+month, staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var demo report.DemographicsResult
	require.NoError(t, json.Unmarshal(body, &demo))
	require.Equal(t, 1, demo.TotalParticipants)
	require.Equal(t, []report.CategoryCount{{Name: "White", ParticipantCount: 1}}, demo.RaceCounts)

	resp, body = h.do(http.MethodGet, "/api/participants", staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var roster []participantView
	require.NoError(t, json.Unmarshal(body, &roster))
	require.Len(t, roster, 1)
}

func TestParticipantErrors(t *testing.T) {
	h := newHarness(t)
	admin := h.signIn("admin@example.com")
	staff := h.signIn("staff@example.com")
	narcan := h.createCatalogItem(admin, models.CatalogServices, "Narcan")

	resp, body := h.do(http.MethodPost, "/api/participants", staff, participantView{FirstName: "Ada", LastName: "Lovelace"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var p participantView
	require.NoError(t, json.Unmarshal(body, &p))

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
	}{
		{name: "missing name", method: http.MethodPost, path: "/api/participants", token: staff, body: participantView{FirstName: "Ada"}, status: http.StatusBadRequest},
		{name: "unknown participant", method: http.MethodPost, path: "/api/participants/nobody/notes", token: staff, body: noteRequest{Text: "hi"}, status: http.StatusNotFound},
		{name: "unknown service", method: http.MethodPost, path: "/api/participants/" + p.ID + "/services", token: staff, body: servicesRequest{Services: []serviceRequest{{ServiceID: "missing"}}}, status: http.StatusNotFound},
		{name: "no services", method: http.MethodPost, path: "/api/participants/" + p.ID + "/services", token: staff, body: servicesRequest{}, status: http.StatusBadRequest},
		{name: "negative count", method: http.MethodPost, path: "/api/participants/" + p.ID + "/services", token: staff, body: servicesRequest{Services: []serviceRequest{{ServiceID: narcan.ID, Count: -1}}}, status: http.StatusBadRequest},
		{name: "program required", method: http.MethodPost, path: "/api/participants/" + p.ID + "/program", token: staff, body: programRequest{}, status: http.StatusBadRequest},
		{name: "unknown location", method: http.MethodPost, path: "/api/participants/" + p.ID + "/location", token: staff, body: locationRequest{LocationID: "missing"}, status: http.StatusNotFound},
		{name: "empty note", method: http.MethodPost, path: "/api/participants/" + p.ID + "/notes", token: staff, body: noteRequest{}, status: http.StatusBadRequest},
		{name: "unauthenticated", method: http.MethodGet, path: "/api/participants", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.do(tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestRecaps(t *testing.T) {
	h := newHarness(t)
	admin := h.signIn("admin@example.com")
	staff := h.signIn("staff@example.com")

	outreachType := recapTypeView{
		Name: "Street Outreach",
		Fields: []models.RecapField{
			{ID: "kits", Name: "Kits handed out", Type: models.FieldNumber, Required: true},
			{ID: "area", Name: "Area", Type: models.FieldText},
		},
	}

	resp, _ := h.do(http.MethodPost, "/api/recap-types", staff, outreachType)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := h.do(http.MethodPost, "/api/recap-types", admin, outreachType)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var rt recapTypeView
	require.NoError(t, json.Unmarshal(body, &rt))
	require.NotEmpty(t, rt.ID)

	resp, body = h.do(http.MethodGet, "/api/recap-types", staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var types []recapTypeView
	require.NoError(t, json.Unmarshal(body, &types))
	require.Len(t, types, 1)

	today := time.Now().UTC().Format("2006-01-02")

	resp, body = h.do(http.MethodPost, "/api/recaps", staff, recapView{Name: "Friday", Date: today, RecapTypeID: rt.ID, Fields: map[string]any{"area": "north"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = h.do(http.MethodPost, "/api/recaps", staff, recapView{Name: "Friday", Date: today, RecapTypeID: "missing", Fields: map[string]any{"kits": 3}})
	require.Equal(t, http.StatusNotFound, resp.StatusCode, string(body))

	for _, kits := range []any{12, "3"} {
		resp, body = h.do(http.MethodPost, "/api/recaps", staff, recapView{Name: "Friday", Date: today, RecapTypeID: rt.ID, Fields: map[string]any{"kits": kits}})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}
	var rc recapView
	require.NoError(t, json.Unmarshal(body, &rc))
	require.Equal(t, "Street Outreach", rc.RecapTypeName)

	resp, body = h.do(http.MethodGet, "/api/reports/recaps?month="+period.Of(time.Now().UTC()).String(), staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res report.RecapsResult
	require.NoError(t, json.Unmarshal(body, &res))
	require.Equal(t, []report.RecapSummary{{Type: "Street Outreach", Count: 2, TotalAmount: 15}}, res.Summaries)
}

func TestRenewSubscription(t *testing.T) {
	h := newHarness(t)
	admin := h.signIn("admin@example.com")
	dev := h.signIn("dev@example.com")

	until := time.Now().UTC().AddDate(2, 0, 0).Truncate(time.Second)
	req := subscriptionRequest{Tier: "nonprofit", Until: until}

	resp, _ := h.do(http.MethodPatch, "/api/organizations/"+testOrg+"/subscription", admin, req)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := h.do(http.MethodPatch, "/api/organizations/"+testOrg+"/subscription", dev, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var org organizationView
	require.NoError(t, json.Unmarshal(body, &org))
	require.Equal(t, "nonprofit", org.SubscriptionTier)
	require.True(t, until.Equal(org.SubscriptionEndDate))

	resp, _ = h.do(http.MethodPatch, "/api/organizations/"+testOrg+"/subscription", dev, subscriptionRequest{Tier: "nonprofit", Until: time.Now().AddDate(-1, 0, 0)})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(http.MethodPatch, "/api/organizations/missing/subscription", dev, req)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
