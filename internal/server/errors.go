package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/casework/internal/archive"
	"github.com/wolfeidau/casework/internal/auth"
	"github.com/wolfeidau/casework/internal/records"
	"github.com/wolfeidau/casework/internal/report"
	"github.com/wolfeidau/casework/internal/saga"
	"github.com/wolfeidau/casework/internal/storage"
	"github.com/wolfeidau/casework/internal/store"
	"github.com/wolfeidau/casework/internal/tenant"
	"github.com/wolfeidau/casework/internal/validate"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error       string           `json:"error"`
	Unconfirmed []string         `json:"unconfirmed,omitempty"`
	Failed      []saga.StepError `json:"failed,omitempty"`
	Result      any              `json:"result,omitempty"`
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrDocumentNotFound) ||
		errors.Is(err, records.ErrCatalogItemNotFound) ||
		errors.Is(err, records.ErrParticipantNotFound) ||
		errors.Is(err, records.ErrOrganizationNotFound) ||
		errors.Is(err, records.ErrRecapTypeNotFound) ||
		errors.Is(err, report.ErrProgramNotFound) ||
		errors.Is(err, archive.ErrNotFound) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, auth.ErrUserNotFound)
}

// writeError maps err onto a status code. Unclassified errors are logged and
// reported with the generic fallback message only. result, when non-nil, is
// returned alongside a partial failure.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string, result any) {
	if pf, ok := saga.IsPartialFailure(err); ok {
		zerolog.Ctx(r.Context()).Warn().Err(err).Strs("unconfirmed", pf.Unconfirmed()).Msg("partial failure")
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:       pf.Error(),
			Unconfirmed: pf.Unconfirmed(),
			Failed:      pf.Failed,
			Result:      result,
		})
		return
	}

	var status int
	switch {
	case errors.Is(err, tenant.ErrNotReady):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, auth.ErrUserExists):
		status = http.StatusConflict
	case errors.Is(err, validate.ErrInvalid), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case isNotFound(err):
		status = http.StatusNotFound
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(fallback)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fallback})
		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}
