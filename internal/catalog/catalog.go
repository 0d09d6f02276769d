// Package catalog manages the services, programs and locations lists of an
// organization. Catalog names are copied into participant history when it is
// written, so a rename is fanned out to every participant record that carries the
// old name.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/records"
	"github.com/wolfeidau/casework/internal/saga"
	"github.com/wolfeidau/casework/internal/store"
	"github.com/wolfeidau/casework/internal/validate"
)

// Service creates, renames and deletes catalog items.
type Service struct {
	repo      *records.Repository
	docs      store.DocumentStore
	runner    *saga.Runner
	writer    *saga.Writer
	validator *validate.Validator
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy sets the retry policy for catalog and fan-out writes.
func WithPolicy(p saga.Policy) Option {
	return func(s *Service) {
		s.runner = saga.NewRunner("catalog", p)
	}
}

// WithClock overrides the clock used for createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(repo *records.Repository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		docs:      repo.Store(),
		runner:    saga.NewRunner("catalog", saga.DefaultPolicy()),
		validator: validate.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = saga.NewWriter(s.docs, s.runner, saga.NewOutbox(s.docs))
	return s
}

type nameInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

func (s *Service) checkName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := s.validator.Struct(nameInput{Name: name}); err != nil {
		return "", err
	}
	return name, nil
}

// List returns the catalog in creation order.
func (s *Service) List(ctx context.Context, orgID string, kind models.CatalogKind) ([]models.CatalogItem, error) {
	return s.repo.ListCatalog(ctx, orgID, kind)
}

// Get returns one item or records.ErrCatalogItemNotFound.
func (s *Service) Get(ctx context.Context, orgID string, kind models.CatalogKind, id string) (*models.CatalogItem, error) {
	return s.repo.GetCatalogItem(ctx, orgID, kind, id)
}

// Create adds an item with a generated id.
func (s *Service) Create(ctx context.Context, orgID string, kind models.CatalogKind, name string) (*models.CatalogItem, error) {
	collection, err := records.CatalogPath(orgID, kind)
	if err != nil {
		return nil, err
	}
	name, err = s.checkName(name)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	item := models.CatalogItem{
		ID:        id.String(),
		Name:      name,
		CreatedAt: models.NewTimestamp(s.now()),
	}
	data, err := store.Encode(item)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Set(ctx, collection.Doc(item.ID), data); err != nil {
		return nil, fmt.Errorf("failed to create %s item: %w", kind, err)
	}

	log.Info().Str("org_id", orgID).Str("catalog", string(kind)).Str("id", item.ID).Msg("Created catalog item")
	return &item, nil
}

// Delete removes the catalog document only. Participant history keeps the name it
// was written with.
func (s *Service) Delete(ctx context.Context, orgID string, kind models.CatalogKind, id string) error {
	if _, err := s.repo.GetCatalogItem(ctx, orgID, kind, id); err != nil {
		return err
	}
	collection, err := records.CatalogPath(orgID, kind)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, collection.Doc(id)); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", kind, id, err)
	}

	log.Info().Str("org_id", orgID).Str("catalog", string(kind)).Str("id", id).Msg("Deleted catalog item")
	return nil
}

// RenameResult summarises a rename and its fan-out.
type RenameResult struct {
	Item    models.CatalogItem `json:"item"`
	OldName string             `json:"oldName"`
	Planned int                `json:"planned"`
	Applied int                `json:"applied"`
}

// Rename changes an item's name and rewrites the denormalized copies in participant
// history. The catalog document is written first; if it cannot be written nothing
// is fanned out. Fan-out writes that keep failing are parked in the outbox and
// reported in a *saga.PartialFailureError alongside the result.
func (s *Service) Rename(ctx context.Context, orgID string, kind models.CatalogKind, id, newName string) (*RenameResult, error) {
	newName, err := s.checkName(newName)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.GetCatalogItem(ctx, orgID, kind, id)
	if err != nil {
		return nil, err
	}

	res := &RenameResult{OldName: item.Name}
	if item.Name == newName {
		res.Item = *item
		return res, nil
	}

	collection, err := records.CatalogPath(orgID, kind)
	if err != nil {
		return nil, err
	}

	updatedAt := models.NewTimestamp(s.now())
	err = s.runner.Do(ctx, saga.Step{
		Name: "rename " + collection.Doc(id).String(),
		Run: func(ctx context.Context) error {
			return s.docs.Update(ctx, collection.Doc(id), map[string]any{
				"name":      newName,
				"updatedAt": updatedAt.String(),
			})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rename %s/%s: %w", kind, id, err)
	}

	item.Name = newName
	item.UpdatedAt = updatedAt
	res.Item = *item

	writes, err := s.Plan(ctx, orgID, kind, id, res.OldName, newName)
	if err != nil {
		return res, fmt.Errorf("failed to plan rename fan-out: %w", err)
	}
	res.Planned = len(writes)

	err = s.writer.Apply(ctx, orgID, writes)
	res.Applied = res.Planned
	if pf, ok := saga.IsPartialFailure(err); ok {
		res.Applied = len(pf.Completed)
	}

	log.Info().
		Str("org_id", orgID).
		Str("catalog", string(kind)).
		Str("id", id).
		Str("old_name", res.OldName).
		Str("new_name", newName).
		Int("planned", res.Planned).
		Int("applied", res.Applied).
		Msg("Renamed catalog item")

	return res, err
}

// ResumeOutbox replays fan-out writes parked by earlier renames.
func (s *Service) ResumeOutbox(ctx context.Context, orgID string) (*saga.ResumeResult, error) {
	if _, err := records.CatalogPath(orgID, models.CatalogServices); err != nil {
		return nil, err
	}
	return s.writer.Resume(ctx, orgID)
}

// Pending lists the parked fan-out writes.
func (s *Service) Pending(ctx context.Context, orgID string) ([]saga.OutboxEntry, error) {
	if _, err := records.CatalogPath(orgID, models.CatalogServices); err != nil {
		return nil, err
	}
	return s.writer.Outbox().Pending(ctx, orgID)
}

// IsNotFound reports whether err means the catalog item does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, records.ErrCatalogItemNotFound)
}
