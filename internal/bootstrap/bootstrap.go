// Package bootstrap assembles the document store, blob store and domain services
// from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/casework/internal/archive"
	"github.com/wolfeidau/casework/internal/auth"
	"github.com/wolfeidau/casework/internal/catalog"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/records"
	"github.com/wolfeidau/casework/internal/report"
	"github.com/wolfeidau/casework/internal/storage"
	"github.com/wolfeidau/casework/internal/store"
	memorystore "github.com/wolfeidau/casework/internal/store/memory"
	"github.com/wolfeidau/casework/internal/store/postgres"
)

// Services is the assembled application.
type Services struct {
	Docs        store.DocumentStore
	Blobs       storage.BlobStore
	Records     *records.Repository
	Engine      *report.Engine
	Archive     *archive.Archive
	Catalog     *catalog.Service
	Auth        *auth.Service
	Revocations *auth.Revocations
	Location    *time.Location

	closers []func()
}

// Bootstrap opens the configured stores and wires the services on top of them.
func Bootstrap(ctx context.Context, cfg Config) (*Services, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Services{Location: cfg.Location}

	switch cfg.StoreType {
	case StorePostgres:
		docs, pool, err := postgres.Open(ctx, &cfg.Postgres, cfg.Documents)
		if err != nil {
			return nil, err
		}
		s.Docs = docs
		s.closers = append(s.closers, pool.Close)
		log.Info().Msg("Using PostgreSQL document store")
	default:
		s.Docs = memorystore.NewDocumentStore()
		log.Info().Msg("Using in-memory document store")
	}

	blobs, err := storage.New(ctx, cfg.Blobs)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}
	s.Blobs = blobs
	log.Info().Str("type", string(cfg.Blobs.Type)).Msg("Using blob store")

	tokens, err := auth.NewTokenIssuer(cfg.SigningKey, cfg.TokenTTL)
	if err != nil {
		s.Close()
		return nil, err
	}

	var authOpts []auth.Option
	if cfg.BcryptCost > 0 {
		authOpts = append(authOpts, auth.WithBcryptCost(cfg.BcryptCost))
	}

	s.Records = records.New(s.Docs, records.WithLocation(cfg.Location))
	s.Engine = report.NewEngine(s.Records, report.WithLocation(cfg.Location), report.WithConcurrency(cfg.Concurrency))
	s.Archive = archive.New(s.Blobs, s.Docs)
	s.Catalog = catalog.New(s.Records)
	s.Revocations = auth.NewRevocations()
	s.Auth = auth.NewService(s.Docs, tokens, s.Revocations, authOpts...)

	return s, nil
}

// Close releases the stores in reverse order of opening.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Seed creates the development organization and developer account if they do
// not exist yet. Existing data is preserved.
func Seed(ctx context.Context, s *Services, cfg SeedConfig) error {
	if _, err := s.Records.GetOrganization(ctx, cfg.OrgID); err != nil {
		if !errors.Is(err, records.ErrOrganizationNotFound) {
			return err
		}
		if _, err := s.Records.CreateOrganization(ctx, models.Organization{
			ID:                  cfg.OrgID,
			Name:                cfg.OrgName,
			Email:               cfg.Email,
			SubscriptionTier:    "development",
			SubscriptionEndDate: time.Now().AddDate(1, 0, 0),
		}); err != nil {
			return fmt.Errorf("failed to seed organization: %w", err)
		}
		log.Info().Str("org_id", cfg.OrgID).Msg("Seeded development organization")
	}

	_, err := s.Auth.CreateUser(ctx, auth.CreateUserRequest{
		Email:          cfg.Email,
		Password:       cfg.Password,
		Name:           "Developer",
		Role:           models.RoleDeveloper,
		OrganizationID: cfg.OrgID,
	})
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return nil
	case err != nil:
		return fmt.Errorf("failed to seed developer: %w", err)
	}
	log.Info().Str("email", cfg.Email).Msg("Seeded development user")
	return nil
}
