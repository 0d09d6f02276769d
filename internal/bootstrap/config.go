package bootstrap

import (
	"fmt"
	"time"

	"github.com/wolfeidau/casework/internal/storage"
	"github.com/wolfeidau/casework/internal/store/postgres"
)

// Store types
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds everything needed to assemble the services shared by the API
// server and the CLI.
type Config struct {
	// StoreType selects the document store: "memory" or "postgres"
	StoreType string

	// Postgres pool settings, used when StoreType is "postgres"
	Postgres postgres.PoolConfig

	// Documents holds statement level settings for the postgres document store
	Documents postgres.DocumentStoreConfig

	// Blobs selects the report archive backend
	Blobs storage.Config

	// SigningKey is the HMAC key for session tokens, at least 32 bytes
	SigningKey []byte

	// TokenTTL is how long a session token is valid. Default: 12h
	TokenTTL time.Duration

	// Location is the zone month windows are evaluated in. Default: time.Local
	Location *time.Location

	// Concurrency bounds participant reads per report. Values below 2 read sequentially
	Concurrency int

	// BcryptCost overrides the password hashing cost
	BcryptCost int
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.StoreType == "" {
		c.StoreType = StoreMemory
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 12 * time.Hour
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	c.Blobs.ApplyDefaults()
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	switch c.StoreType {
	case StoreMemory:
	case StorePostgres:
		if c.Postgres.ConnString == "" {
			return fmt.Errorf("postgres connection string is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store type: %s", c.StoreType)
	}
	if len(c.SigningKey) < 32 {
		return fmt.Errorf("signing key must be at least 32 bytes (256 bits) for HMAC-SHA256")
	}
	return c.Blobs.Validate()
}

// SeedConfig describes the organization and developer account created in
// development mode.
type SeedConfig struct {
	OrgID    string
	OrgName  string
	Email    string
	Password string
}
