package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/casework/internal/tenant"
)

var timeNow = time.Now

type UseCmd struct {
	OrgID string `arg:"" help:"organization id to work in"`
}

func (c *UseCmd) Run(ctx context.Context, globals *Globals) error {
	p, err := globals.persister()
	if err != nil {
		return err
	}
	tc, err := tenant.New(p)
	if err != nil {
		return err
	}
	if err := tc.Set(c.OrgID); err != nil {
		return err
	}
	fmt.Fprintf(globals.out(), "Using organization %s\n", c.OrgID)
	return nil
}

type LoginCmd struct {
	Email    string `help:"account email" required:"" env:"CASEWORK_EMAIL"`
	Password string `help:"account password" required:"" env:"CASEWORK_PASSWORD"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	svc, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	session, err := svc.Auth.SignIn(ctx, c.Email, c.Password)
	if err != nil {
		return err
	}

	p, err := globals.persister()
	if err != nil {
		return err
	}
	state, err := p.Load()
	if err != nil {
		return err
	}
	state.Token = session.Token
	state.Email = session.User.Email
	if state.OrgID == "" {
		state.OrgID = session.User.OrganizationID
	}
	if err := p.Save(state); err != nil {
		return err
	}

	fmt.Fprintf(globals.out(), "Signed in as %s (%s), session expires %s\n",
		session.User.Email, session.User.Role, session.ExpiresAt.Format(time.RFC3339))
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	p, err := globals.persister()
	if err != nil {
		return err
	}
	state, err := p.Load()
	if err != nil {
		return err
	}
	if state.Token == "" {
		fmt.Fprintln(globals.out(), "Not signed in")
		return nil
	}

	svc, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := svc.Auth.SignOut(ctx, state.Token); err != nil {
		log.Debug().Err(err).Msg("Session was already invalid")
	}

	state.Token = ""
	state.Email = ""
	if err := p.Save(state); err != nil {
		return err
	}
	fmt.Fprintln(globals.out(), "Signed out")
	return nil
}
