package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wolfeidau/casework/internal/archive"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/render"
	"github.com/wolfeidau/casework/internal/report"
	"github.com/wolfeidau/casework/internal/tenant"
)

const reportFailed = "report generation failed"

// reportRequest reads the tenant from the context, the kind from the path and
// month and program from the query. A missing month means the current one.
func (s *Server) reportRequest(r *http.Request) (report.Request, error) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		return report.Request{}, err
	}

	kind, err := models.ParseReportKind(r.PathValue("kind"))
	if err != nil {
		return report.Request{}, badRequest("%v", err)
	}

	month := period.Of(s.now().In(s.engine.Location()))
	if v := r.URL.Query().Get("month"); v != "" {
		if month, err = period.ParseMonth(v); err != nil {
			return report.Request{}, badRequest("%v", err)
		}
	}

	req := report.Request{
		Kind:        kind,
		OrgID:       orgID,
		Month:       month,
		ProgramName: r.URL.Query().Get("program"),
	}
	switch {
	case kind != models.ReportProgram:
		req.ProgramName = ""
	case req.ProgramName == "":
		return report.Request{}, badRequest("program is required for program reports")
	}
	return req, nil
}

func (s *Server) render(r *http.Request, req report.Request) ([]byte, error) {
	res, err := s.engine.Generate(r.Context(), req)
	if err != nil {
		return nil, err
	}
	doc, err := render.ForResult(res)
	if err != nil {
		return nil, err
	}
	return render.PDF(r.Context(), doc)
}

func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	req, err := s.reportRequest(r)
	if err != nil {
		writeError(w, r, err, reportFailed, nil)
		return
	}

	res, err := s.engine.Generate(r.Context(), req)
	if err != nil {
		writeError(w, r, err, reportFailed, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	req, err := s.reportRequest(r)
	if err != nil {
		writeError(w, r, err, reportFailed, nil)
		return
	}

	pdf, err := s.render(r, req)
	if err != nil {
		writeError(w, r, err, reportFailed, nil)
		return
	}

	filename := render.DownloadFilename(req.Kind, req.Month, req.ProgramName)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = io.Copy(w, bytes.NewReader(pdf))
}

func (s *Server) archiveReport(w http.ResponseWriter, r *http.Request) {
	req, err := s.reportRequest(r)
	if err != nil {
		writeError(w, r, err, reportFailed, nil)
		return
	}

	pdf, err := s.render(r, req)
	if err != nil {
		writeError(w, r, err, reportFailed, nil)
		return
	}

	res, err := s.archive.Save(r.Context(), archive.SaveRequest{
		OrgID:       req.OrgID,
		Kind:        req.Kind,
		Month:       req.Month,
		ProgramName: req.ProgramName,
		PDF:         pdf,
	})
	if err != nil {
		writeError(w, r, err, "failed to archive report", nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listArchive(w http.ResponseWriter, r *http.Request) {
	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to list reports", nil)
		return
	}
	kind, err := models.ParseReportKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, badRequest("%v", err), "failed to list reports", nil)
		return
	}

	reports, err := s.archive.List(r.Context(), orgID, kind)
	if err != nil {
		writeError(w, r, err, "failed to list reports", nil)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// downloadArchived redirects to the blob store when it hands out web URLs and
// streams the report otherwise.
func (s *Server) downloadArchived(w http.ResponseWriter, r *http.Request) {
	const failed = "failed to download report"

	orgID, err := tenant.FromContext(r.Context())
	if err != nil {
		writeError(w, r, err, failed, nil)
		return
	}
	kind, err := models.ParseReportKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, badRequest("%v", err), failed, nil)
		return
	}
	path := archive.Prefix(orgID, kind) + r.PathValue("name")

	link, err := s.archive.DownloadURL(r.Context(), orgID, path, s.cfg.DownloadTTL)
	if err != nil {
		writeError(w, r, err, failed, nil)
		return
	}
	if u, err := url.Parse(link); err == nil && (u.Scheme == "https" || u.Scheme == "http") {
		http.Redirect(w, r, link, http.StatusFound)
		return
	}

	rc, err := s.archive.Open(r.Context(), orgID, path)
	if err != nil {
		writeError(w, r, err, failed, nil)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", r.PathValue("name")))
	_, _ = io.Copy(w, rc)
}
