package bootstrap

import (
	"fmt"
	"time"

	"github.com/wolfeidau/casework/internal/storage"
	"github.com/wolfeidau/casework/internal/store/postgres"
)

// Flags are the kong flags shared by the server and the CLI.
type Flags struct {
	StoreType   string        `help:"document store type (memory or postgres)" default:"memory" env:"CASEWORK_STORE_TYPE" enum:"memory,postgres"`
	Postgres    PostgresFlags `embed:"" prefix:"postgres-"`
	Blob        BlobFlags     `embed:"" prefix:"blob-"`
	SigningKey  string        `help:"HMAC key for session tokens, at least 32 bytes" env:"CASEWORK_SIGNING_KEY"`
	TokenTTL    time.Duration `help:"session token lifetime" default:"12h" env:"CASEWORK_TOKEN_TTL"`
	Timezone    string        `help:"IANA zone month windows are evaluated in" default:"Local" env:"CASEWORK_TIMEZONE"`
	Concurrency int           `help:"participants read in parallel per report" default:"1" env:"CASEWORK_REPORT_CONCURRENCY"`
}

type PostgresFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32         `help:"maximum number of connections in pool" default:"10"`
	MinConns        int32         `help:"minimum number of connections in pool" default:"2"`
	MaxConnLifetime time.Duration `help:"maximum connection lifetime" default:"1h"`
	MaxConnIdleTime time.Duration `help:"maximum connection idle time" default:"30m"`

	// Statement Configuration
	QueryTimeout time.Duration `help:"statement timeout, negative for context timeouts only" default:"10s"`
}

type BlobFlags struct {
	Type      string `help:"report archive backend (memory, local or s3)" default:"local" env:"CASEWORK_BLOB_TYPE" enum:"memory,local,s3"`
	Path      string `help:"base directory for the local backend" default:"./data/blobs" env:"CASEWORK_BLOB_PATH"`
	URLPrefix string `help:"URL prefix for local download links" default:"/files"`

	S3Bucket   string `help:"S3 bucket" env:"CASEWORK_S3_BUCKET"`
	S3Region   string `help:"S3 region" env:"AWS_REGION"`
	S3Prefix   string `help:"key prefix inside the bucket" env:"CASEWORK_S3_PREFIX"`
	S3Endpoint string `help:"S3 endpoint override (for MinIO or LocalStack)" env:"CASEWORK_S3_ENDPOINT"`
}

// Config converts the flags into a bootstrap configuration.
func (f *Flags) Config() (Config, error) {
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", f.Timezone, err)
	}

	return Config{
		StoreType: f.StoreType,
		Postgres: postgres.PoolConfig{
			ConnString:      f.Postgres.ConnString,
			MaxConns:        f.Postgres.MaxConns,
			MinConns:        f.Postgres.MinConns,
			MaxConnLifetime: f.Postgres.MaxConnLifetime,
			MaxConnIdleTime: f.Postgres.MaxConnIdleTime,
		},
		Documents: postgres.DocumentStoreConfig{
			QueryTimeout: f.Postgres.QueryTimeout,
		},
		Blobs: storage.Config{
			Type:      storage.Type(f.Blob.Type),
			LocalPath: f.Blob.Path,
			URLPrefix: f.Blob.URLPrefix,
			S3: storage.S3Config{
				Bucket:   f.Blob.S3Bucket,
				Region:   f.Blob.S3Region,
				Prefix:   f.Blob.S3Prefix,
				Endpoint: f.Blob.S3Endpoint,
			},
		},
		SigningKey:  []byte(f.SigningKey),
		TokenTTL:    f.TokenTTL,
		Location:    loc,
		Concurrency: f.Concurrency,
	}, nil
}
