// Package report aggregates a tenant's participant history into the monthly
// organization, program, demographics and recaps reports.
//
// Every variant walks the whole roster and reads each participant's sub-collections
// with independent reads. By default the walk is sequential; WithConcurrency fans
// participants out over a bounded errgroup and merges in roster order, so the
// result is identical for any concurrency.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/telemetry"
	"github.com/wolfeidau/casework/internal/tenant"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// ErrProgramNotFound is returned by ProgramSpecific when no catalog program has the name.
var ErrProgramNotFound = errors.New("program not found")

// Source is the tenant-scoped read surface the engine needs.
type Source interface {
	ListParticipants(ctx context.Context, orgID string) ([]models.Participant, error)
	ServiceRecords(ctx context.Context, orgID, participantID string) ([]models.ServiceRecord, error)
	LatestProgram(ctx context.Context, orgID, participantID string) (*models.ProgramRecord, error)
	LatestLocation(ctx context.Context, orgID, participantID string) (*models.LocationRecord, error)
	LastEngagement(ctx context.Context, orgID, participantID string) (*models.LastEngagement, error)
	Demographics(ctx context.Context, orgID, participantID string) (*models.Demographics, error)
	ListCatalog(ctx context.Context, orgID string, kind models.CatalogKind) ([]models.CatalogItem, error)
	FindProgramByName(ctx context.Context, orgID, name string) (*models.CatalogItem, error)
	ListRecaps(ctx context.Context, orgID string) ([]models.Recap, error)
}

// CategoryCount is one row of a report section.
type CategoryCount struct {
	Name             string `json:"name"`
	ParticipantCount int    `json:"participantCount"`
}

// Result is implemented by every report variant.
type Result interface {
	Kind() models.ReportKind
	Period() period.Month
}

// Request selects a report variant for Generate.
type Request struct {
	Kind        models.ReportKind `json:"kind" validate:"required,oneof=organization programs demographics recaps"`
	OrgID       string            `json:"-"`
	Month       period.Month      `json:"month"`
	ProgramName string            `json:"program,omitempty" validate:"required_if=Kind programs"`
}

// Engine produces report results from a Source.
type Engine struct {
	source      Source
	loc         *time.Location
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the zone month windows and engagement dates are evaluated in.
// Default: time.Local
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithConcurrency sets how many participants are read at once. Values below 2 keep
// the sequential walk.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// NewEngine creates a report engine.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		loc:         time.Local,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns the zone month windows are evaluated in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Generate dispatches to the variant named by req.Kind. A failed variant returns a
// nil Result, never a typed nil.
func (e *Engine) Generate(ctx context.Context, req Request) (Result, error) {
	var (
		res Result
		err error
	)
	switch req.Kind {
	case models.ReportOrganization:
		var r *OrganizationResult
		r, err = e.OrganizationWide(ctx, req.OrgID, req.Month)
		res = r
	case models.ReportProgram:
		var r *ProgramResult
		r, err = e.ProgramSpecific(ctx, req.OrgID, req.ProgramName, req.Month)
		res = r
	case models.ReportDemographics:
		var r *DemographicsResult
		r, err = e.Demographics(ctx, req.OrgID, req.Month)
		res = r
	case models.ReportRecaps:
		var r *RecapsResult
		r, err = e.Recaps(ctx, req.OrgID, req.Month)
		res = r
	default:
		return nil, fmt.Errorf("unknown report kind %q", req.Kind)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// begin checks the tenant and starts the span and timer shared by every variant.
// The returned func must be called with the final error.
func (e *Engine) begin(ctx context.Context, kind models.ReportKind, orgID string, month period.Month) (context.Context, func(error), error) {
	if orgID == "" {
		return ctx, nil, tenant.ErrNotReady
	}

	started := time.Now()
	attrs := []attribute.KeyValue{
		attribute.String("report.kind", string(kind)),
		attribute.String("report.month", month.String()),
	}

	ctx, span := telemetry.Tracer().Start(ctx, "report."+string(kind))
	span.SetAttributes(append(attrs, attribute.String("org.id", orgID))...)

	finish := func(err error) {
		m := telemetry.GetMetrics()
		elapsed := telemetry.Millis(time.Since(started))
		m.ReportDuration.Record(ctx, elapsed, metric.WithAttributes(attrs...))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			m.ReportErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
			log.Error().Err(err).
				Str("org_id", orgID).
				Str("kind", string(kind)).
				Str("month", month.String()).
				Msg("report aggregation failed")
		} else {
			m.ReportsGeneratedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
			log.Debug().
				Str("org_id", orgID).
				Str("kind", string(kind)).
				Str("month", month.String()).
				Float64("duration_ms", elapsed).
				Msg("report aggregated")
		}
		span.End()
	}

	return ctx, finish, nil
}

// engagedIn reports whether a LastEngagement marker falls in the window. A missing
// marker never qualifies and a malformed date is treated as out of window.
func (e *Engine) engagedIn(le *models.LastEngagement, w period.Window, participantID string) bool {
	if le == nil || le.Date == "" {
		return false
	}
	t, err := period.ParseEngagementDate(le.Date, e.loc)
	if err != nil {
		log.Debug().Err(err).Str("participant_id", participantID).Msg("ignoring malformed engagement date")
		return false
	}
	return w.Contains(t)
}

// zeroFill enumerates the catalog in order, looking each item up in counts with key.
func zeroFill(items []models.CatalogItem, counts map[string]int, key func(models.CatalogItem) string) []CategoryCount {
	out := make([]CategoryCount, 0, len(items))
	for _, item := range items {
		out = append(out, CategoryCount{Name: item.Name, ParticipantCount: counts[key(item)]})
	}
	return out
}

func byID(item models.CatalogItem) string   { return item.ID }
func byName(item models.CatalogItem) string { return item.Name }

// CountOf returns the count for name, or 0.
func CountOf(rows []CategoryCount, name string) int {
	for _, r := range rows {
		if r.Name == name {
			return r.ParticipantCount
		}
	}
	return 0
}
