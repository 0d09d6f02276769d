package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/casework/internal/auth"
	"github.com/wolfeidau/casework/internal/bootstrap"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/period"
	"github.com/wolfeidau/casework/internal/tenant"
)

var errNotSignedIn = errors.New("not signed in, run `casework login` first")

type Globals struct {
	Debug    bool
	Version  string
	StateDir string
	Store    *bootstrap.Flags
	Out      io.Writer

	// services replaces the configured stores when set
	services *bootstrap.Services
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) persister() (tenant.Persister, error) {
	return tenant.NewFilePersister(g.StateDir)
}

// open bootstraps the services. The returned func releases them.
func (g *Globals) open(ctx context.Context) (*bootstrap.Services, func(), error) {
	if g.services != nil {
		return g.services, func() {}, nil
	}
	if g.Store == nil {
		return nil, nil, errors.New("store flags are required")
	}

	cfg, err := g.Store.Config()
	if err != nil {
		return nil, nil, err
	}
	svc, err := bootstrap.Bootstrap(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, svc.Close, nil
}

// authorize checks the saved session against perm and returns a context carrying
// the principal and the active organization.
func (g *Globals) authorize(ctx context.Context, svc *bootstrap.Services, perm auth.Permission) (context.Context, string, error) {
	p, err := g.persister()
	if err != nil {
		return ctx, "", err
	}
	state, err := p.Load()
	if err != nil {
		return ctx, "", err
	}
	if state.Token == "" {
		return ctx, "", errNotSignedIn
	}

	principal, err := svc.Auth.Authenticate(ctx, state.Token)
	if err != nil {
		return ctx, "", fmt.Errorf("session is no longer valid, run `casework login`: %w", err)
	}

	tc, err := tenant.New(p)
	if err != nil {
		return ctx, "", err
	}
	orgID, err := tc.Require()
	if err != nil {
		return ctx, "", err
	}
	if principal.Role != models.RoleDeveloper && orgID != principal.OrgID {
		return ctx, "", fmt.Errorf("%w: %s cannot act on organization %s", auth.ErrForbidden, principal.Email, orgID)
	}

	ctx = tenant.WithOrgID(auth.WithPrincipal(ctx, principal), orgID)
	if err := auth.RequirePermission(ctx, perm); err != nil {
		return ctx, "", err
	}
	return ctx, orgID, nil
}

// skipNotReady turns a missing tenant into a warning and a clean exit.
func skipNotReady(err error) error {
	if errors.Is(err, tenant.ErrNotReady) {
		log.Warn().Msg("No organization selected, run `casework use <org-id>` first")
		return nil
	}
	return err
}

func parseMonth(s string, svc *bootstrap.Services) (period.Month, error) {
	if s == "" {
		return period.Of(timeNow().In(svc.Location)), nil
	}
	return period.ParseMonth(s)
}
