package server

import (
	"net/http"
	"time"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/tenant"
)

type recapTypeView struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Fields    []models.RecapField `json:"fields"`
	CreatedAt models.Timestamp    `json:"createdAt,omitzero"`
}

type recapView struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Date          string           `json:"date"`
	RecapTypeID   string           `json:"recapTypeId"`
	RecapTypeName string           `json:"recapTypeName,omitempty"`
	Fields        map[string]any   `json:"fields"`
	CreatedAt     models.Timestamp `json:"createdAt,omitzero"`
}

type subscriptionRequest struct {
	Tier  string    `json:"subscriptionTier"`
	Until time.Time `json:"subscriptionEndDate"`
}

func newRecapTypeView(rt *models.RecapType) recapTypeView {
	return recapTypeView{ID: rt.ID, Name: rt.Name, Fields: rt.Fields, CreatedAt: rt.CreatedAt}
}

func (s *Server) listRecapTypes(w http.ResponseWriter, r *http.Request) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to list recap types", nil)
		return
	}

	types, err := s.records.ListRecapTypes(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err, "failed to list recap types", nil)
		return
	}

	views := make([]recapTypeView, 0, len(types))
	for i := range types {
		views = append(views, newRecapTypeView(&types[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) createRecapType(w http.ResponseWriter, r *http.Request) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to create recap type", nil)
		return
	}

	var req recapTypeView
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to create recap type", nil)
		return
	}

	rt, err := s.records.CreateRecapType(r.Context(), orgID, models.RecapType{Name: req.Name, Fields: req.Fields})
	if err != nil {
		writeError(w, r, err, "failed to create recap type", nil)
		return
	}
	writeJSON(w, http.StatusCreated, newRecapTypeView(rt))
}

// createRecap stores a recap after checking its fields against the recap type.
func (s *Server) createRecap(w http.ResponseWriter, r *http.Request) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to create recap", nil)
		return
	}

	var req recapView
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to create recap", nil)
		return
	}

	rc, err := s.records.CreateRecap(r.Context(), orgID, models.Recap{
		Name:        req.Name,
		Date:        req.Date,
		RecapTypeID: req.RecapTypeID,
		Fields:      req.Fields,
	})
	if err != nil {
		writeError(w, r, err, "failed to create recap", nil)
		return
	}

	writeJSON(w, http.StatusCreated, recapView{
		ID:            rc.ID,
		Name:          rc.Name,
		Date:          rc.Date,
		RecapTypeID:   rc.RecapTypeID,
		RecapTypeName: rc.RecapTypeName,
		Fields:        rc.Fields,
		CreatedAt:     rc.CreatedAt,
	})
}

func (s *Server) renewSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to renew subscription", nil)
		return
	}

	org, err := s.records.RenewSubscription(r.Context(), r.PathValue("id"), req.Tier, req.Until)
	if err != nil {
		writeError(w, r, err, "failed to renew subscription", nil)
		return
	}

	writeJSON(w, http.StatusOK, organizationView{
		ID:                  org.ID,
		Name:                org.Name,
		Email:               org.Email,
		SubscriptionTier:    org.SubscriptionTier,
		SubscriptionEndDate: org.SubscriptionEndDate,
		UserLimit:           org.UserLimit,
	})
}
