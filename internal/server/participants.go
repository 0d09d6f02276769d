package server

import (
	"net/http"
	"strings"

	"github.com/wolfeidau/casework/internal/auth"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/tenant"
)

type participantView struct {
	ID          string           `json:"id"`
	FirstName   string           `json:"firstName"`
	LastName    string           `json:"lastName"`
	DateOfBirth string           `json:"dateOfBirth,omitempty"`
	CreatedAt   models.Timestamp `json:"createdAt,omitzero"`
}

type profileView struct {
	Participant    participantView        `json:"participant"`
	LastEngagement *models.LastEngagement `json:"lastEngagement,omitempty"`
	Demographics   *models.Demographics   `json:"demographics,omitempty"`
	Program        *models.ProgramEntry   `json:"program,omitempty"`
	Location       string                 `json:"location,omitempty"`
	Notes          []noteView             `json:"notes"`
}

type noteView struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	CreatedBy string           `json:"createdBy,omitempty"`
	CreatedAt models.Timestamp `json:"createdAt"`
}

type serviceRequest struct {
	ServiceID string `json:"serviceId"`
	Count     int    `json:"count,omitempty"`
}

type servicesRequest struct {
	Services []serviceRequest `json:"services"`
}

type programRequest struct {
	ProgramID string `json:"programId"`
}

type locationRequest struct {
	LocationID string `json:"locationId"`
}

type noteRequest struct {
	Text string `json:"text"`
}

func newParticipantView(p *models.Participant) participantView {
	return participantView{
		ID:          p.ID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DateOfBirth: p.DateOfBirth,
		CreatedAt:   p.CreatedAt,
	}
}

// participantTarget resolves the tenant and checks the participant in the path exists.
func (s *Server) participantTarget(r *http.Request) (string, *models.Participant, error) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		return "", nil, err
	}
	p, err := s.records.GetParticipant(r.Context(), orgID, r.PathValue("id"))
	if err != nil {
		return "", nil, err
	}
	return orgID, p, nil
}

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to list participants", nil)
		return
	}

	participants, err := s.records.ListParticipants(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err, "failed to list participants", nil)
		return
	}

	views := make([]participantView, 0, len(participants))
	for i := range participants {
		views = append(views, newParticipantView(&participants[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) createParticipant(w http.ResponseWriter, r *http.Request) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to create participant", nil)
		return
	}

	var req participantView
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to create participant", nil)
		return
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		writeError(w, r, badRequest("firstName and lastName are required"), "failed to create participant", nil)
		return
	}

	p, err := s.records.CreateParticipant(r.Context(), orgID, models.Participant{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		writeError(w, r, err, "failed to create participant", nil)
		return
	}
	writeJSON(w, http.StatusCreated, newParticipantView(p))
}

func (s *Server) getParticipant(w http.ResponseWriter, r *http.Request) {
	orgID, p, err := s.participantTarget(r)
	if err != nil {
		writeError(w, r, err, "failed to load participant", nil)
		return
	}
	ctx := r.Context()

	view := profileView{Participant: newParticipantView(p), Notes: []noteView{}}
	if view.LastEngagement, err = s.records.LastEngagement(ctx, orgID, p.ID); err != nil {
		writeError(w, r, err, "failed to load participant", nil)
		return
	}
	if view.Demographics, err = s.records.Demographics(ctx, orgID, p.ID); err != nil {
		writeError(w, r, err, "failed to load participant", nil)
		return
	}

	program, err := s.records.LatestProgram(ctx, orgID, p.ID)
	if err != nil {
		writeError(w, r, err, "failed to load participant", nil)
		return
	}
	if entry, ok := program.Current(); ok {
		view.Program = &entry
	}

	location, err := s.records.LatestLocation(ctx, orgID, p.ID)
	if err != nil {
		writeError(w, r, err, "failed to load participant", nil)
		return
	}
	if location != nil {
		view.Location = location.Location
	}

	notes, err := s.records.Notes(ctx, orgID, p.ID)
	if err != nil {
		writeError(w, r, err, "failed to load participant", nil)
		return
	}
	for _, n := range notes {
		view.Notes = append(view.Notes, noteView{ID: n.ID, Text: n.Text, CreatedBy: n.CreatedBy, CreatedAt: n.CreatedAt})
	}

	writeJSON(w, http.StatusOK, view)
}

// recordServices attaches catalog services to a new engagement. Service names are
// taken from the catalog at the time of recording.
func (s *Server) recordServices(w http.ResponseWriter, r *http.Request) {
	orgID, p, err := s.participantTarget(r)
	if err != nil {
		writeError(w, r, err, "failed to record services", nil)
		return
	}

	var req servicesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to record services", nil)
		return
	}

	entries := make([]models.ServiceEntry, 0, len(req.Services))
	for _, sr := range req.Services {
		if sr.Count < 0 {
			writeError(w, r, badRequest("count must not be negative"), "failed to record services", nil)
			return
		}
		item, err := s.records.GetCatalogItem(r.Context(), orgID, models.CatalogServices, sr.ServiceID)
		if err != nil {
			writeError(w, r, err, "failed to record services", nil)
			return
		}
		entries = append(entries, models.ServiceEntry{ServiceID: item.ID, ServiceName: item.Name, Count: sr.Count})
	}

	rec, err := s.records.RecordServices(r.Context(), orgID, p.ID, entries)
	if err != nil {
		writeError(w, r, err, "failed to record services", nil)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) assignProgram(w http.ResponseWriter, r *http.Request) {
	orgID, p, err := s.participantTarget(r)
	if err != nil {
		writeError(w, r, err, "failed to assign program", nil)
		return
	}

	var req programRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to assign program", nil)
		return
	}
	if req.ProgramID == "" {
		writeError(w, r, badRequest("programId is required"), "failed to assign program", nil)
		return
	}

	rec, err := s.records.AssignProgram(r.Context(), orgID, p.ID, req.ProgramID)
	if err != nil {
		writeError(w, r, err, "failed to assign program", nil)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// recordLocation moves a participant to a catalog location. History stores the name.
func (s *Server) recordLocation(w http.ResponseWriter, r *http.Request) {
	orgID, p, err := s.participantTarget(r)
	if err != nil {
		writeError(w, r, err, "failed to record location", nil)
		return
	}

	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to record location", nil)
		return
	}
	if req.LocationID == "" {
		writeError(w, r, badRequest("locationId is required"), "failed to record location", nil)
		return
	}

	item, err := s.records.GetCatalogItem(r.Context(), orgID, models.CatalogLocations, req.LocationID)
	if err != nil {
		writeError(w, r, err, "failed to record location", nil)
		return
	}

	rec, err := s.records.RecordLocation(r.Context(), orgID, p.ID, item.Name)
	if err != nil {
		writeError(w, r, err, "failed to record location", nil)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) updateDemographics(w http.ResponseWriter, r *http.Request) {
	orgID, p, err := s.participantTarget(r)
	if err != nil {
		writeError(w, r, err, "failed to save demographics", nil)
		return
	}

	var req models.Demographics
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to save demographics", nil)
		return
	}
	if req.Age < 0 {
		writeError(w, r, badRequest("age must not be negative"), "failed to save demographics", nil)
		return
	}

	if err := s.records.UpsertDemographics(r.Context(), orgID, p.ID, req); err != nil {
		writeError(w, r, err, "failed to save demographics", nil)
		return
	}

	d, err := s.records.Demographics(r.Context(), orgID, p.ID)
	if err != nil {
		writeError(w, r, err, "failed to save demographics", nil)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) addNote(w http.ResponseWriter, r *http.Request) {
	orgID, p, err := s.participantTarget(r)
	if err != nil {
		writeError(w, r, err, "failed to add note", nil)
		return
	}

	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to add note", nil)
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	note, err := s.records.AddNote(r.Context(), orgID, p.ID, req.Text, principal.Email)
	if err != nil {
		writeError(w, r, err, "failed to add note", nil)
		return
	}
	writeJSON(w, http.StatusCreated, noteView{ID: note.ID, Text: note.Text, CreatedBy: note.CreatedBy, CreatedAt: note.CreatedAt})
}
