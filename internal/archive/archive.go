// Package archive stores rendered monthly reports in the blob store and keeps the
// per-month marker document that records which kinds have been archived.
package archive

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/render"
	"github.com/wolfeidau/casework/internal/saga"
	"github.com/wolfeidau/casework/internal/storage"
	"github.com/wolfeidau/casework/internal/store"
	"github.com/wolfeidau/casework/internal/telemetry"
	"github.com/wolfeidau/casework/internal/tenant"
	"github.com/wolfeidau/casework/internal/validate"
)

const contentTypePDF = "application/pdf"

// ErrNotFound is returned for paths outside the tenant's reports or missing blobs.
var ErrNotFound = errors.New("archived report not found")

// Archive saves and lists archived report PDFs.
type Archive struct {
	blobs     storage.BlobStore
	docs      store.DocumentStore
	runner    *saga.Runner
	validator *validate.Validator
	now       func() time.Time
}

// Option configures an Archive.
type Option func(*Archive)

// WithPolicy sets the retry policy of the upload and marker steps.
func WithPolicy(p saga.Policy) Option {
	return func(a *Archive) {
		a.runner = saga.NewRunner("archive", p)
	}
}

// WithClock overrides the clock used for the marker's lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		a.now = now
	}
}

func New(blobs storage.BlobStore, docs store.DocumentStore, opts ...Option) *Archive {
	a := &Archive{
		blobs:     blobs,
		docs:      docs,
		runner:    saga.NewRunner("archive", saga.DefaultPolicy()),
		validator: validate.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SaveRequest is one rendered report to archive.
type SaveRequest struct {
	OrgID       string            `json:"-" validate:"required"`
	Kind        models.ReportKind `json:"kind" validate:"required,oneof=organization programs demographics recaps"`
	Month       period.Month      `json:"month"`
	ProgramName string            `json:"program" validate:"required_if=Kind programs"`
	PDF         []byte            `json:"-" validate:"required"`
}

// SaveResult describes an archived report.
type SaveResult struct {
	Path      string `json:"path"`
	Checksum  string `json:"checksum"`
	Unchanged bool   `json:"unchanged"`
	Size      int    `json:"size"`
}

// ArchivedReport is one entry of the historical reports list.
type ArchivedReport struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Created time.Time `json:"created"`
	Size    int64     `json:"size"`
}

// Prefix is the blob folder holding one kind of report for an organization.
func Prefix(orgID string, kind models.ReportKind) string {
	return fmt.Sprintf("organizations/%s/reports/%s/", orgID, kind)
}

// ReportPath is where a report is archived, for example
// organizations/o1/reports/recaps/March2024.pdf. Program reports are prefixed
// with the program name.
func ReportPath(orgID string, kind models.ReportKind, month period.Month, programName string) string {
	name := render.ArchiveFilename(month)
	if kind == models.ReportProgram {
		name = storage.SanitizeName(programName) + "_" + name
	}
	return Prefix(orgID, kind) + name
}

// Checksum is the hex crc64-NVME of data.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", crc64nvme.Checksum(data))
}

func checksumKey(kind models.ReportKind, programName string) string {
	if kind == models.ReportProgram {
		return string(kind) + ":" + programName
	}
	return string(kind)
}

func markerPath(orgID string, month period.Month) store.Path {
	return store.Org(orgID).Collection(store.CollectionMonthlyReports).Doc(month.Key())
}

// Save uploads the PDF and then flags the month's marker. Saving the same month
// again overwrites the blob; Unchanged reports that the bytes were identical to the
// last save. When a step keeps failing the error is a *saga.PartialFailureError and
// the marker may not reflect the upload.
func (a *Archive) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	if req.OrgID == "" {
		return nil, tenant.ErrNotReady
	}
	if err := a.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.Month.IsZero() {
		return nil, fmt.Errorf("%w: month is required", validate.ErrInvalid)
	}

	metrics := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("kind", string(req.Kind)))

	marker, err := a.Marker(ctx, req.OrgID, req.Month)
	if err != nil {
		metrics.ArchiveErrorsTotal.Add(ctx, 1, attrs)
		return nil, err
	}

	res := &SaveResult{
		Path:     ReportPath(req.OrgID, req.Kind, req.Month, req.ProgramName),
		Checksum: Checksum(req.PDF),
		Size:     len(req.PDF),
	}
	key := checksumKey(req.Kind, req.ProgramName)
	if marker != nil && marker.Archived(req.Kind) {
		res.Unchanged = marker.Checksums[key] == res.Checksum
	}

	update := map[string]any{
		req.Kind.MarkerField(): true,
		"lastUpdated":          models.NewTimestamp(a.now()).String(),
		"checksums":            map[string]any{key: res.Checksum},
	}

	err = a.runner.Sequence(ctx,
		saga.Step{
			Name: "upload " + res.Path,
			Run: func(ctx context.Context) error {
				return a.blobs.Upload(ctx, res.Path, req.PDF, contentTypePDF)
			},
		},
		saga.Step{
			Name: "marker " + req.Month.Key(),
			Run: func(ctx context.Context) error {
				return a.docs.Set(ctx, markerPath(req.OrgID, req.Month), update, store.WithMerge())
			},
		},
	)
	if err != nil {
		metrics.ArchiveErrorsTotal.Add(ctx, 1, attrs)
		return nil, err
	}

	metrics.ArchiveSavesTotal.Add(ctx, 1, attrs)
	if res.Unchanged {
		metrics.ArchiveUnchangedTotal.Add(ctx, 1, attrs)
	}

	log.Info().
		Str("org_id", req.OrgID).
		Str("kind", string(req.Kind)).
		Str("month", req.Month.String()).
		Str("path", res.Path).
		Bool("unchanged", res.Unchanged).
		Msg("Archived report")

	return res, nil
}

// Marker returns the month's marker, or nil when nothing has been archived.
func (a *Archive) Marker(ctx context.Context, orgID string, month period.Month) (*models.MonthlyReportMarker, error) {
	if orgID == "" {
		return nil, tenant.ErrNotReady
	}

	doc, err := a.docs.Get(ctx, markerPath(orgID, month))
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read report marker: %w", err)
	}

	var marker models.MonthlyReportMarker
	if err := doc.DataTo(&marker); err != nil {
		return nil, fmt.Errorf("failed to decode report marker: %w", err)
	}
	marker.ID = doc.ID()
	return &marker, nil
}

// List returns the archived reports of one kind, newest first.
func (a *Archive) List(ctx context.Context, orgID string, kind models.ReportKind) ([]ArchivedReport, error) {
	if orgID == "" {
		return nil, tenant.ErrNotReady
	}

	blobs, err := a.blobs.List(ctx, Prefix(orgID, kind))
	if err != nil {
		return nil, fmt.Errorf("failed to list archived reports: %w", err)
	}

	reports := make([]ArchivedReport, 0, len(blobs))
	for _, b := range blobs {
		reports = append(reports, ArchivedReport{
			Name:    b.Name(),
			Path:    b.Path,
			Created: b.LastModified,
			Size:    b.Size,
		})
	}
	slices.SortFunc(reports, func(x, y ArchivedReport) int {
		if c := y.Created.Compare(x.Created); c != 0 {
			return c
		}
		return cmp.Compare(y.Name, x.Name)
	})
	return reports, nil
}

// DownloadURL returns a time limited URL for an archived report of orgID.
func (a *Archive) DownloadURL(ctx context.Context, orgID, path string, ttl time.Duration) (string, error) {
	if err := owned(orgID, path); err != nil {
		return "", err
	}
	url, err := a.blobs.GetDownloadURL(ctx, path, ttl)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNotFound
	}
	return url, err
}

// Open streams an archived report of orgID.
func (a *Archive) Open(ctx context.Context, orgID, path string) (io.ReadCloser, error) {
	if err := owned(orgID, path); err != nil {
		return nil, err
	}
	rc, err := a.blobs.Open(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return rc, err
}

func owned(orgID, path string) error {
	if orgID == "" {
		return tenant.ErrNotReady
	}
	clean, err := storage.CleanPath(path)
	if err != nil || !strings.HasPrefix(clean, fmt.Sprintf("organizations/%s/reports/", orgID)) {
		return ErrNotFound
	}
	return nil
}
