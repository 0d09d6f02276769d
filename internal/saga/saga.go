// Package saga runs multi-document writes as a sequence of individually retried
// steps. Steps are not transactional: a step that keeps failing is reported, and
// fan-out writes are parked in a per-organization outbox to be replayed later.
package saga

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/casework/internal/telemetry"
)

// Step is one unit of work in a saga.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// StepError is a step that failed after all retries.
type StepError struct {
	Step     string `json:"step"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
	OutboxID string `json:"outboxId,omitempty"`
}

// PartialFailureError reports the steps that could not be confirmed. Completed
// steps are not rolled back.
type PartialFailureError struct {
	Completed []string    `json:"completed"`
	Failed    []StepError `json:"failed"`
	Skipped   []string    `json:"skipped,omitempty"`
}

func (e *PartialFailureError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, f.Step)
	}
	msg := fmt.Sprintf("%d of %d steps failed: %s", len(e.Failed), len(e.Completed)+len(e.Failed)+len(e.Skipped), strings.Join(names, ", "))
	if len(e.Skipped) > 0 {
		msg += fmt.Sprintf(" (%d skipped)", len(e.Skipped))
	}
	return msg
}

// Unwrap exposes the underlying step errors to errors.Is and errors.As.
func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// Unconfirmed lists the failed and skipped step names.
func (e *PartialFailureError) Unconfirmed() []string {
	out := make([]string, 0, len(e.Failed)+len(e.Skipped))
	for _, f := range e.Failed {
		out = append(out, f.Step)
	}
	return append(out, e.Skipped...)
}

// Policy controls retries of a single step.
type Policy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultPolicy retries a step up to four times over a few seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxTries:        4,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxElapsedTime:  10 * time.Second,
	}
}

func (p Policy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	return b
}

// Runner executes steps with retries.
type Runner struct {
	name   string
	policy Policy
}

// NewRunner creates a runner; name labels its metrics and logs.
func NewRunner(name string, policy Policy) *Runner {
	return &Runner{name: name, policy: policy}
}

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Sequence runs steps in order and stops at the first step that still fails after
// retries. Later steps are reported as skipped.
func (r *Runner) Sequence(ctx context.Context, steps ...Step) error {
	var pf PartialFailureError
	for i, step := range steps {
		if err := r.Do(ctx, step); err != nil {
			pf.Failed = append(pf.Failed, StepError{Step: step.Name, Err: err, Message: err.Error()})
			for _, rest := range steps[i+1:] {
				pf.Skipped = append(pf.Skipped, rest.Name)
			}
			return &pf
		}
		pf.Completed = append(pf.Completed, step.Name)
	}
	return nil
}

// All runs every step regardless of earlier failures.
func (r *Runner) All(ctx context.Context, steps ...Step) error {
	var pf PartialFailureError
	for _, step := range steps {
		if err := r.Do(ctx, step); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			pf.Failed = append(pf.Failed, StepError{Step: step.Name, Err: err, Message: err.Error()})
			continue
		}
		pf.Completed = append(pf.Completed, step.Name)
	}
	if len(pf.Failed) > 0 {
		return &pf
	}
	return nil
}

// Do runs a single step under the retry policy.
func (r *Runner) Do(ctx context.Context, step Step) error {
	metrics := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("saga", r.name))

	tries := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		tries++
		return struct{}{}, step.Run(ctx)
	},
		backoff.WithBackOff(r.policy.backOff()),
		backoff.WithMaxTries(r.policy.MaxTries),
		backoff.WithMaxElapsedTime(r.policy.MaxElapsedTime),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.SagaStepRetriesTotal.Add(ctx, 1, attrs)
			log.Debug().Err(err).Str("saga", r.name).Str("step", step.Name).Dur("next", next).Msg("Retrying step")
		}),
	)

	metrics.SagaStepsTotal.Add(ctx, 1, attrs)
	if err != nil {
		metrics.SagaStepFailuresTotal.Add(ctx, 1, attrs)
		log.Warn().Err(err).Str("saga", r.name).Str("step", step.Name).Int("tries", tries).Msg("Step failed")
		return err
	}
	return nil
}

// IsPartialFailure reports whether err carries a PartialFailureError.
func IsPartialFailure(err error) (*PartialFailureError, bool) {
	var pf *PartialFailureError
	ok := errors.As(err, &pf)
	return pf, ok
}
