package postgres

import (
	"context"
	"time"
)

// DefaultQueryTimeout bounds a single statement when no timeout is configured.
const DefaultQueryTimeout = 10 * time.Second

// DocumentStoreConfig holds document-store settings. Pool settings live in PoolConfig.
type DocumentStoreConfig struct {
	// QueryTimeout bounds each statement. A negative value leaves deadlines to the caller's context.
	QueryTimeout time.Duration
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *DocumentStoreConfig) ApplyDefaults() {
	if c.QueryTimeout == 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
}

func (c DocumentStoreConfig) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.QueryTimeout < 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.QueryTimeout)
}
