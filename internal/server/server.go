package server

import (
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/casework/internal/archive"
	"github.com/wolfeidau/casework/internal/auth"
	"github.com/wolfeidau/casework/internal/bootstrap"
	"github.com/wolfeidau/casework/internal/catalog"
	httpmiddleware "github.com/wolfeidau/casework/internal/http"
	"github.com/wolfeidau/casework/internal/logger"
	"github.com/wolfeidau/casework/internal/records"
	"github.com/wolfeidau/casework/internal/report"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds HTTP API settings.
type Config struct {
	// CORSOrigins lists the browser origins allowed to call the API
	CORSOrigins []string

	// DownloadTTL bounds the lifetime of archived report download URLs. Default: 15m
	DownloadTTL time.Duration
}

// Server exposes the report, archive, catalog and account operations as a JSON API.
type Server struct {
	cfg     Config
	engine  *report.Engine
	archive *archive.Archive
	catalog *catalog.Service
	records *records.Repository
	auth    *auth.Service
	now     func() time.Time
}

// NewServer creates a server over the bootstrapped services.
func NewServer(svc *bootstrap.Services, cfg Config) *Server {
	if cfg.DownloadTTL == 0 {
		cfg.DownloadTTL = 15 * time.Minute
	}
	return &Server{
		cfg:     cfg,
		engine:  svc.Engine,
		archive: svc.Archive,
		catalog: svc.Catalog,
		records: svc.Records,
		auth:    svc.Auth,
		now:     time.Now,
	}
}

// Handler returns the HTTP handler for the server
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/session", s.signIn)
	mux.Handle("DELETE /api/session", s.authenticated(http.HandlerFunc(s.signOut)))
	mux.Handle("GET /api/me", s.authenticated(http.HandlerFunc(s.me)))

	mux.Handle("GET /api/reports/{kind}", s.protect(auth.PermReportsGenerate, s.generateReport))
	mux.Handle("GET /api/reports/{kind}/pdf", s.protect(auth.PermReportsGenerate, s.downloadReport))
	mux.Handle("POST /api/reports/{kind}/archive", s.protect(auth.PermReportsArchive, s.archiveReport))

	mux.Handle("GET /api/archive/{kind}", s.protect(auth.PermArchiveRead, s.listArchive))
	mux.Handle("GET /api/archive/{kind}/{name}", s.protect(auth.PermArchiveRead, s.downloadArchived))

	mux.Handle("GET /api/catalog/{kind}", s.protect(auth.PermCatalogRead, s.listCatalog))
	mux.Handle("POST /api/catalog/{kind}", s.protect(auth.PermCatalogManage, s.createCatalogItem))
	mux.Handle("PATCH /api/catalog/{kind}/{id}", s.protect(auth.PermCatalogManage, s.renameCatalogItem))
	mux.Handle("DELETE /api/catalog/{kind}/{id}", s.protect(auth.PermCatalogManage, s.deleteCatalogItem))
	mux.Handle("GET /api/catalog/outbox", s.protect(auth.PermCatalogManage, s.pendingOutbox))
	mux.Handle("POST /api/catalog/outbox/resume", s.protect(auth.PermCatalogManage, s.resumeOutbox))

	mux.Handle("GET /api/participants", s.protect(auth.PermParticipantsRead, s.listParticipants))
	mux.Handle("POST /api/participants", s.protect(auth.PermParticipantsWrite, s.createParticipant))
	mux.Handle("GET /api/participants/{id}", s.protect(auth.PermParticipantsRead, s.getParticipant))
	mux.Handle("POST /api/participants/{id}/services", s.protect(auth.PermParticipantsWrite, s.recordServices))
	mux.Handle("POST /api/participants/{id}/program", s.protect(auth.PermParticipantsWrite, s.assignProgram))
	mux.Handle("POST /api/participants/{id}/location", s.protect(auth.PermParticipantsWrite, s.recordLocation))
	mux.Handle("PUT /api/participants/{id}/demographics", s.protect(auth.PermParticipantsWrite, s.updateDemographics))
	mux.Handle("POST /api/participants/{id}/notes", s.protect(auth.PermParticipantsWrite, s.addNote))

	mux.Handle("GET /api/recap-types", s.protect(auth.PermRecapsWrite, s.listRecapTypes))
	mux.Handle("POST /api/recap-types", s.protect(auth.PermRecapTypesManage, s.createRecapType))
	mux.Handle("POST /api/recaps", s.protect(auth.PermRecapsWrite, s.createRecap))

	mux.Handle("POST /api/users", s.protect(auth.PermUsersCreate, s.createUser))
	mux.Handle("POST /api/organizations", s.protect(auth.PermOrganizationsCreate, s.createOrganization))
	mux.Handle("PATCH /api/organizations/{id}/subscription", s.protect(auth.PermSubscriptionsManage, s.renewSubscription))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	})

	return httpmiddleware.Chain(mux,
		httpmiddleware.ClientIPMiddleware(),
		otelhttp.NewMiddleware("casework-api",
			otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
		),
		logger.Requests(log),
		corsHandler.Handler,
		func(h http.Handler) http.Handler { return gzhttp.GzipHandler(h) },
	)
}

func (s *Server) authenticated(h http.Handler) http.Handler {
	return auth.Middleware(s.auth)(h)
}

func (s *Server) protect(perm auth.Permission, h http.HandlerFunc) http.Handler {
	return s.authenticated(auth.RequirePermissionMiddleware(perm)(h))
}
