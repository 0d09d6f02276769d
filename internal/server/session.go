package server

import (
	"net/http"
	"time"

	"github.com/wolfeidau/casework/internal/auth"
	"github.com/wolfeidau/casework/internal/models"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId"`
}

type sessionView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userView  `json:"user"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "sign in failed", nil)
		return
	}

	session, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err, "sign in failed", nil)
		return
	}

	writeJSON(w, http.StatusOK, sessionView{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      newUserView(&session.User),
	})
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), auth.BearerToken(r)); err != nil {
		writeError(w, r, err, "sign out failed", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	user, err := s.auth.GetUser(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, r, err, "failed to load user", nil)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

// createUser provisions a staff account. Only developers may create accounts in
// another organization or grant the developer role.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	var req auth.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to create user", nil)
		return
	}
	if req.OrganizationID == "" {
		req.OrganizationID = principal.OrgID
	}
	if principal.Role != models.RoleDeveloper &&
		(req.OrganizationID != principal.OrgID || req.Role == models.RoleDeveloper) {
		writeError(w, r, auth.ErrForbidden, "failed to create user", nil)
		return
	}

	user, err := s.auth.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "failed to create user", nil)
		return
	}
	writeJSON(w, http.StatusCreated, newUserView(user))
}

type organizationView struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	SubscriptionTier    string    `json:"subscriptionTier"`
	SubscriptionEndDate time.Time `json:"subscriptionEndDate"`
	UserLimit           int       `json:"userLimit"`
}

func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	var view organizationView
	if err := decodeJSON(r, &view); err != nil {
		writeError(w, r, err, "failed to create organization", nil)
		return
	}

	org, err := s.records.CreateOrganization(r.Context(), models.Organization{
		ID:                  view.ID,
		Name:                view.Name,
		Email:               view.Email,
		SubscriptionTier:    view.SubscriptionTier,
		SubscriptionEndDate: view.SubscriptionEndDate,
		UserLimit:           view.UserLimit,
	})
	if err != nil {
		writeError(w, r, err, "failed to create organization", nil)
		return
	}

	view.ID = org.ID
	writeJSON(w, http.StatusCreated, view)
}
