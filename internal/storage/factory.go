package storage

import (
	"context"
	"fmt"
)

type Type string

const (
	TypeMemory Type = "memory"
	TypeLocal  Type = "local"
	TypeS3     Type = "s3"
)

// Config selects and configures a blob backend.
type Config struct {
	Type      Type
	LocalPath string
	URLPrefix string
	S3        S3Config
}

type S3Config struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// ApplyDefaults fills unset local storage settings.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = TypeLocal
	}
	if c.LocalPath == "" {
		c.LocalPath = "./data/blobs"
	}
	if c.URLPrefix == "" {
		c.URLPrefix = "/files"
	}
}

func (c *Config) Validate() error {
	switch c.Type {
	case TypeMemory, TypeLocal:
		return nil
	case TypeS3:
		if c.S3.Bucket == "" || c.S3.Region == "" {
			return fmt.Errorf("s3 storage requires a bucket and region")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage type: %s", c.Type)
	}
}

// New creates the blob store named by cfg.
func New(ctx context.Context, cfg Config) (BlobStore, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return NewLocalStore(cfg.LocalPath, cfg.URLPrefix)
	}
}
