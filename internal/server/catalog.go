package server

import (
	"net/http"

	"github.com/wolfeidau/casework/internal/catalog"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/saga"
	"github.com/wolfeidau/casework/internal/tenant"
)

type catalogItemView struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	CreatedAt models.Timestamp `json:"createdAt"`
	UpdatedAt models.Timestamp `json:"updatedAt,omitzero"`
}

type renameView struct {
	Item    catalogItemView `json:"item"`
	OldName string          `json:"oldName"`
	Planned int             `json:"planned"`
	Applied int             `json:"applied"`
}

type outboxEntryView struct {
	ID string `json:"id"`
	saga.OutboxEntry
}

type nameRequest struct {
	Name string `json:"name"`
}

func newCatalogItemView(item models.CatalogItem) catalogItemView {
	return catalogItemView{ID: item.ID, Name: item.Name, CreatedAt: item.CreatedAt, UpdatedAt: item.UpdatedAt}
}

func catalogTarget(r *http.Request) (string, models.CatalogKind, error) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		return "", "", err
	}
	kind, err := models.ParseCatalogKind(r.PathValue("kind"))
	if err != nil {
		return "", "", badRequest("%v", err)
	}
	return orgID, kind, nil
}

func (s *Server) listCatalog(w http.ResponseWriter, r *http.Request) {
	orgID, kind, err := catalogTarget(r)
	if err != nil {
		writeError(w, r, err, "failed to list catalog", nil)
		return
	}

	items, err := s.catalog.List(r.Context(), orgID, kind)
	if err != nil {
		writeError(w, r, err, "failed to list catalog", nil)
		return
	}

	views := make([]catalogItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newCatalogItemView(item))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) createCatalogItem(w http.ResponseWriter, r *http.Request) {
	orgID, kind, err := catalogTarget(r)
	if err != nil {
		writeError(w, r, err, "failed to create catalog item", nil)
		return
	}

	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to create catalog item", nil)
		return
	}

	item, err := s.catalog.Create(r.Context(), orgID, kind, req.Name)
	if err != nil {
		writeError(w, r, err, "failed to create catalog item", nil)
		return
	}
	writeJSON(w, http.StatusCreated, newCatalogItemView(*item))
}

// renameCatalogItem returns 200 when every copy was rewritten and 502 with the
// rename result and the unconfirmed writes otherwise.
func (s *Server) renameCatalogItem(w http.ResponseWriter, r *http.Request) {
	orgID, kind, err := catalogTarget(r)
	if err != nil {
		writeError(w, r, err, "failed to rename catalog item", nil)
		return
	}

	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, "failed to rename catalog item", nil)
		return
	}

	res, err := s.catalog.Rename(r.Context(), orgID, kind, r.PathValue("id"), req.Name)
	var view any
	if res != nil {
		view = newRenameView(res)
	}
	if err != nil {
		writeError(w, r, err, "failed to rename catalog item", view)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func newRenameView(res *catalog.RenameResult) renameView {
	return renameView{
		Item:    newCatalogItemView(res.Item),
		OldName: res.OldName,
		Planned: res.Planned,
		Applied: res.Applied,
	}
}

func (s *Server) deleteCatalogItem(w http.ResponseWriter, r *http.Request) {
	orgID, kind, err := catalogTarget(r)
	if err != nil {
		writeError(w, r, err, "failed to delete catalog item", nil)
		return
	}

	if err := s.catalog.Delete(r.Context(), orgID, kind, r.PathValue("id")); err != nil {
		writeError(w, r, err, "failed to delete catalog item", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pendingOutbox(w http.ResponseWriter, r *http.Request) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to list outbox", nil)
		return
	}

	entries, err := s.catalog.Pending(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err, "failed to list outbox", nil)
		return
	}

	views := make([]outboxEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, outboxEntryView{ID: e.ID, OutboxEntry: e})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) resumeOutbox(w http.ResponseWriter, r *http.Request) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to resume outbox", nil)
		return
	}

	res, err := s.catalog.ResumeOutbox(r.Context(), orgID)
	if err != nil {
		writeError(w, r, err, "failed to resume outbox", nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
