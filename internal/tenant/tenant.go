// Package tenant holds the active organization id for a session.
//
// Every document path is scoped by the organization id, so an unset tenant means
// nothing can be read or written yet. Callers check Ready, or errors.Is(err, ErrNotReady),
// and skip work instead of failing.
package tenant

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrNotReady is returned when an operation needs a tenant and none is set.
var ErrNotReady = errors.New("tenant context not ready")

// Context holds exactly one active organization id. It is safe for concurrent use
// and is read-only from the point of view of a running report.
type Context struct {
	mu        sync.RWMutex
	orgID     string
	persister Persister
}

// New creates a tenant context, restoring the organization id from p when p is non-nil.
func New(p Persister) (*Context, error) {
	c := &Context{persister: p}
	if p == nil {
		return c, nil
	}

	state, err := p.Load()
	if err != nil {
		return nil, err
	}
	c.orgID = state.OrgID

	log.Debug().Str("org_id", c.orgID).Msg("restored tenant context")

	return c, nil
}

// Get returns the active organization id, or "" when not ready.
func (c *Context) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orgID
}

// Ready reports whether an organization id is set.
func (c *Context) Ready() bool {
	return c.Get() != ""
}

// Set replaces the active organization id and persists it. An empty id clears the context.
func (c *Context) Set(orgID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.persister != nil {
		state, err := c.persister.Load()
		if err != nil {
			return err
		}
		state.OrgID = orgID
		if err := c.persister.Save(state); err != nil {
			return err
		}
	}

	c.orgID = orgID
	return nil
}

// Require returns the active organization id or ErrNotReady.
func (c *Context) Require() (string, error) {
	orgID := c.Get()
	if orgID == "" {
		return "", ErrNotReady
	}
	return orgID, nil
}

type contextKey struct{}

// WithOrgID returns a copy of ctx carrying orgID.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, contextKey{}, orgID)
}

// FromContext returns the organization id carried by ctx, or ErrNotReady.
func FromContext(ctx context.Context) (string, error) {
	orgID, _ := ctx.Value(contextKey{}).(string)
	if orgID == "" {
		return "", ErrNotReady
	}
	return orgID, nil
}
