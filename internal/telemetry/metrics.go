package telemetry

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/casework"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Report metrics
	ReportsGeneratedTotal   metric.Int64Counter
	ReportErrorsTotal       metric.Int64Counter
	ReportDuration          metric.Float64Histogram
	ParticipantsScanned     metric.Int64Counter
	ParticipantReadDuration metric.Float64Histogram

	// Render metrics
	PDFRenderDuration metric.Float64Histogram
	PDFBytes          metric.Int64Histogram

	// Archive metrics
	ArchiveSavesTotal     metric.Int64Counter
	ArchiveUnchangedTotal metric.Int64Counter
	ArchiveErrorsTotal    metric.Int64Counter

	// Saga metrics (rename fan-out, archive save)
	SagaStepsTotal        metric.Int64Counter
	SagaStepRetriesTotal  metric.Int64Counter
	SagaStepFailuresTotal metric.Int64Counter
	OutboxPending         metric.Int64UpDownCounter

	// Auth metrics
	SignInsTotal        metric.Int64Counter
	SignInFailuresTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Report metrics
	m.ReportsGeneratedTotal, _ = meter.Int64Counter(
		"casework.reports.generated.total",
		metric.WithDescription("Total number of reports aggregated"),
		metric.WithUnit("{report}"),
	)

	m.ReportErrorsTotal, _ = meter.Int64Counter(
		"casework.reports.errors.total",
		metric.WithDescription("Total number of report aggregations that failed"),
		metric.WithUnit("{error}"),
	)

	m.ReportDuration, _ = meter.Float64Histogram(
		"casework.reports.duration",
		metric.WithDescription("Duration of a full report aggregation"),
		metric.WithUnit("ms"),
	)

	m.ParticipantsScanned, _ = meter.Int64Counter(
		"casework.reports.participants.scanned.total",
		metric.WithDescription("Total number of participants walked by report aggregation"),
		metric.WithUnit("{participant}"),
	)

	m.ParticipantReadDuration, _ = meter.Float64Histogram(
		"casework.reports.participant_read.duration",
		metric.WithDescription("Duration of the sub-collection reads for one participant"),
		metric.WithUnit("ms"),
	)

	// Render metrics
	m.PDFRenderDuration, _ = meter.Float64Histogram(
		"casework.render.duration",
		metric.WithDescription("Duration of PDF rendering"),
		metric.WithUnit("ms"),
	)

	m.PDFBytes, _ = meter.Int64Histogram(
		"casework.render.bytes",
		metric.WithDescription("Size of rendered PDF documents"),
		metric.WithUnit("By"),
	)

	// Archive metrics
	m.ArchiveSavesTotal, _ = meter.Int64Counter(
		"casework.archive.saves.total",
		metric.WithDescription("Total number of archived reports"),
		metric.WithUnit("{report}"),
	)

	m.ArchiveUnchangedTotal, _ = meter.Int64Counter(
		"casework.archive.unchanged.total",
		metric.WithDescription("Total number of archive saves whose content matched the stored checksum"),
		metric.WithUnit("{report}"),
	)

	m.ArchiveErrorsTotal, _ = meter.Int64Counter(
		"casework.archive.errors.total",
		metric.WithDescription("Total number of archive saves that failed"),
		metric.WithUnit("{error}"),
	)

	// Saga metrics
	m.SagaStepsTotal, _ = meter.Int64Counter(
		"casework.saga.steps.total",
		metric.WithDescription("Total number of saga steps executed"),
		metric.WithUnit("{step}"),
	)

	m.SagaStepRetriesTotal, _ = meter.Int64Counter(
		"casework.saga.steps.retries.total",
		metric.WithDescription("Total number of saga step retries"),
		metric.WithUnit("{retry}"),
	)

	m.SagaStepFailuresTotal, _ = meter.Int64Counter(
		"casework.saga.steps.failures.total",
		metric.WithDescription("Total number of saga steps that failed after retries"),
		metric.WithUnit("{step}"),
	)

	m.OutboxPending, _ = meter.Int64UpDownCounter(
		"casework.outbox.pending",
		metric.WithDescription("Number of outbox entries waiting to be replayed"),
		metric.WithUnit("{entry}"),
	)

	// Auth metrics
	m.SignInsTotal, _ = meter.Int64Counter(
		"casework.auth.sign_ins.total",
		metric.WithDescription("Total number of successful sign ins"),
		metric.WithUnit("{session}"),
	)

	m.SignInFailuresTotal, _ = meter.Int64Counter(
		"casework.auth.sign_ins.failures.total",
		metric.WithDescription("Total number of rejected sign ins"),
		metric.WithUnit("{attempt}"),
	)

	return m
}

// Millis converts an elapsed duration into the "ms" unit every duration histogram uses.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
