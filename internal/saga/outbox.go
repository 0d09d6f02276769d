package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/store"
	"github.com/wolfeidau/casework/internal/telemetry"
)

// WriteOp is the kind of document write a Write performs.
type WriteOp string

const (
	OpSet    WriteOp = "set"
	OpMerge  WriteOp = "merge"
	OpUpdate WriteOp = "update"
	OpDelete WriteOp = "delete"
)

// Write is a serialisable document write, so it can be parked in the outbox and
// replayed later.
type Write struct {
	Op   WriteOp        `json:"op"`
	Path string         `json:"path"`
	Data map[string]any `json:"data,omitempty"`
}

func (w Write) String() string {
	return fmt.Sprintf("%s %s", w.Op, w.Path)
}

// Apply performs the write against docs.
func (w Write) Apply(ctx context.Context, docs store.DocumentStore) error {
	path, err := store.ParsePath(w.Path)
	if err != nil {
		return Permanent(err)
	}

	switch w.Op {
	case OpSet:
		err = docs.Set(ctx, path, w.Data)
	case OpMerge:
		err = docs.Set(ctx, path, w.Data, store.WithMerge())
	case OpUpdate:
		err = docs.Update(ctx, path, w.Data)
	case OpDelete:
		err = docs.Delete(ctx, path)
	default:
		return Permanent(fmt.Errorf("unknown write op %q", w.Op))
	}

	// A document removed since the write was planned will never appear.
	if errors.Is(err, store.ErrDocumentNotFound) || errors.Is(err, store.ErrInvalidPath) {
		return Permanent(err)
	}
	return err
}

// OutboxEntry is a write that failed during a fan-out.
type OutboxEntry struct {
	ID        string           `json:"-"`
	Saga      string           `json:"saga"`
	Write     Write            `json:"write"`
	LastError string           `json:"lastError"`
	Attempts  int              `json:"attempts"`
	CreatedAt models.Timestamp `json:"createdAt"`
	UpdatedAt models.Timestamp `json:"updatedAt"`
}

// Outbox persists failed writes under organizations/{orgId}/outbox.
type Outbox struct {
	docs store.DocumentStore
	now  func() time.Time
}

func NewOutbox(docs store.DocumentStore) *Outbox {
	return &Outbox{docs: docs, now: time.Now}
}

func outboxPath(orgID string) store.Path {
	return store.Org(orgID).Collection(store.CollectionOutbox)
}

// Enqueue stores a failed write and returns the entry id.
func (o *Outbox) Enqueue(ctx context.Context, orgID, saga string, w Write, cause error) (string, error) {
	now := models.NewTimestamp(o.now())
	data, err := store.Encode(OutboxEntry{
		Saga:      saga,
		Write:     w,
		LastError: cause.Error(),
		Attempts:  1,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode outbox entry: %w", err)
	}

	path, err := o.docs.Add(ctx, outboxPath(orgID), data)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue outbox entry: %w", err)
	}

	telemetry.GetMetrics().OutboxPending.Add(ctx, 1)
	log.Info().Str("org_id", orgID).Str("saga", saga).Str("write", w.String()).Str("outbox_id", path.ID()).Msg("Parked write in outbox")
	return path.ID(), nil
}

// Pending lists outbox entries oldest first.
func (o *Outbox) Pending(ctx context.Context, orgID string) ([]OutboxEntry, error) {
	docs, err := o.docs.Query(ctx, outboxPath(orgID), store.Query{}.OrderByField("createdAt", false))
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox: %w", err)
	}

	entries := make([]OutboxEntry, 0, len(docs))
	for _, doc := range docs {
		var e OutboxEntry
		if err := doc.DataTo(&e); err != nil {
			return nil, fmt.Errorf("failed to decode outbox entry %s: %w", doc.ID(), err)
		}
		e.ID = doc.ID()
		entries = append(entries, e)
	}
	return entries, nil
}

// Complete removes an entry once its write has been applied.
func (o *Outbox) Complete(ctx context.Context, orgID, id string) error {
	if err := o.docs.Delete(ctx, outboxPath(orgID).Doc(id)); err != nil {
		return fmt.Errorf("failed to complete outbox entry %s: %w", id, err)
	}
	telemetry.GetMetrics().OutboxPending.Add(ctx, -1)
	return nil
}

// Retry records another failed attempt.
func (o *Outbox) Retry(ctx context.Context, orgID string, e OutboxEntry, cause error) error {
	err := o.docs.Update(ctx, outboxPath(orgID).Doc(e.ID), map[string]any{
		"attempts":  e.Attempts + 1,
		"lastError": cause.Error(),
		"updatedAt": models.NewTimestamp(o.now()).String(),
	})
	if err != nil {
		return fmt.Errorf("failed to update outbox entry %s: %w", e.ID, err)
	}
	return nil
}

// Writer applies planned writes through a Runner, parking writes that still fail in
// the outbox.
type Writer struct {
	docs   store.DocumentStore
	runner *Runner
	outbox *Outbox
}

func NewWriter(docs store.DocumentStore, runner *Runner, outbox *Outbox) *Writer {
	return &Writer{docs: docs, runner: runner, outbox: outbox}
}

// Outbox returns the outbox failed writes are parked in.
func (w *Writer) Outbox() *Outbox {
	return w.outbox
}

// Apply runs every write. Failed writes are enqueued and returned in a
// *PartialFailureError carrying their outbox ids.
func (w *Writer) Apply(ctx context.Context, orgID string, writes []Write) error {
	var pf PartialFailureError
	for _, write := range writes {
		err := w.runner.Do(ctx, Step{
			Name: write.String(),
			Run:  func(ctx context.Context) error { return write.Apply(ctx, w.docs) },
		})
		if err == nil {
			pf.Completed = append(pf.Completed, write.String())
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		failed := StepError{Step: write.String(), Err: err, Message: err.Error()}
		if !Replayable(err) {
			pf.Failed = append(pf.Failed, failed)
			continue
		}
		id, qerr := w.outbox.Enqueue(ctx, orgID, w.runner.name, write, err)
		if qerr != nil {
			failed.Err = errors.Join(err, qerr)
			failed.Message = failed.Err.Error()
		}
		failed.OutboxID = id
		pf.Failed = append(pf.Failed, failed)
	}

	if len(pf.Failed) > 0 {
		return &pf
	}
	return nil
}

// Replayable reports whether a failed write could succeed on a later attempt.
func Replayable(err error) bool {
	return !errors.Is(err, store.ErrDocumentNotFound) &&
		!errors.Is(err, store.ErrInvalidPath) &&
		!errors.Is(err, store.ErrInvalidData)
}

// ResumeResult summarises an outbox replay.
type ResumeResult struct {
	Applied   int `json:"applied"`
	Dropped   int `json:"dropped"`
	Remaining int `json:"remaining"`
}

// Resume replays every pending outbox entry once through the retry policy. Entries
// that apply are removed and the rest have their attempt count bumped.
func (w *Writer) Resume(ctx context.Context, orgID string) (*ResumeResult, error) {
	entries, err := w.outbox.Pending(ctx, orgID)
	if err != nil {
		return nil, err
	}

	res := &ResumeResult{}
	for _, e := range entries {
		err := w.runner.Do(ctx, Step{
			Name: e.Write.String(),
			Run:  func(ctx context.Context) error { return e.Write.Apply(ctx, w.docs) },
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			if !Replayable(err) {
				log.Warn().Err(err).Str("org_id", orgID).Str("outbox_id", e.ID).Msg("Dropping outbox entry that can never apply")
				if cerr := w.outbox.Complete(ctx, orgID, e.ID); cerr != nil {
					return res, cerr
				}
				res.Dropped++
				continue
			}
			if rerr := w.outbox.Retry(ctx, orgID, e, err); rerr != nil {
				return res, rerr
			}
			res.Remaining++
			continue
		}

		if err := w.outbox.Complete(ctx, orgID, e.ID); err != nil {
			return res, err
		}
		res.Applied++
	}

	log.Info().Str("org_id", orgID).Int("applied", res.Applied).Int("dropped", res.Dropped).Int("remaining", res.Remaining).Msg("Resumed outbox")
	return res, nil
}
