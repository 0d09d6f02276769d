package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/wolfeidau/casework/internal/auth"
	"github.com/wolfeidau/casework/internal/models"
	"github.com/wolfeidau/casework/internal/saga"
)

type CatalogCmd struct {
	Kind string `arg:"" help:"catalog (services, programs, locations)"`
}

func (c *CatalogCmd) Run(ctx context.Context, globals *Globals) error {
	kind, err := models.ParseCatalogKind(c.Kind)
	if err != nil {
		return err
	}

	svc, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, orgID, err := globals.authorize(ctx, svc, auth.PermCatalogRead)
	if err != nil {
		return skipNotReady(err)
	}

	items, err := svc.Catalog.List(ctx, orgID, kind)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(globals.out(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\n", item.ID, item.Name)
	}
	return w.Flush()
}

type RenameCmd struct {
	Kind string `arg:"" help:"catalog (services, programs, locations)"`
	ID   string `arg:"" help:"catalog item id"`
	Name string `arg:"" help:"new name"`
}

func (c *RenameCmd) Run(ctx context.Context, globals *Globals) error {
	kind, err := models.ParseCatalogKind(c.Kind)
	if err != nil {
		return err
	}

	svc, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, orgID, err := globals.authorize(ctx, svc, auth.PermCatalogManage)
	if err != nil {
		return skipNotReady(err)
	}

	res, err := svc.Catalog.Rename(ctx, orgID, kind, c.ID, c.Name)
	if res != nil {
		fmt.Fprintf(globals.out(), "Renamed %q to %q, updated %d of %d history records\n",
			res.OldName, res.Item.Name, res.Applied, res.Planned)
	}
	if pf, ok := saga.IsPartialFailure(err); ok {
		for _, step := range pf.Unconfirmed() {
			fmt.Fprintf(globals.out(), "  unconfirmed: %s\n", step)
		}
		fmt.Fprintln(globals.out(), "Run `casework resume-outbox` to retry the parked writes")
	}
	return err
}

type ResumeOutboxCmd struct{}

func (c *ResumeOutboxCmd) Run(ctx context.Context, globals *Globals) error {
	svc, closeFn, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, orgID, err := globals.authorize(ctx, svc, auth.PermCatalogManage)
	if err != nil {
		return skipNotReady(err)
	}

	res, err := svc.Catalog.ResumeOutbox(ctx, orgID)
	if err != nil {
		return err
	}
	fmt.Fprintf(globals.out(), "Applied %d, dropped %d, remaining %d\n", res.Applied, res.Dropped, res.Remaining)
	return nil
}
