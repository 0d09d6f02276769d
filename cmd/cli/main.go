package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/casework/cmd/cli/internal/commands"
	"github.com/wolfeidau/casework/internal/bootstrap"
	"github.com/wolfeidau/casework/internal/logger"
)

var (
	version = "dev"
	cli     struct {
		Use          commands.UseCmd          `cmd:"" help:"Select the organization to work in"`
		Login        commands.LoginCmd        `cmd:"" help:"Sign in and save the session"`
		Logout       commands.LogoutCmd       `cmd:"" help:"Sign out and forget the session"`
		Report       commands.ReportCmd       `cmd:"" help:"Generate a monthly report"`
		Archive      commands.ArchiveCmd      `cmd:"" help:"Generate and archive a monthly report"`
		History      commands.HistoryCmd      `cmd:"" help:"List archived reports"`
		Catalog      commands.CatalogCmd      `cmd:"" help:"List a catalog"`
		Rename       commands.RenameCmd       `cmd:"" help:"Rename a catalog item and update participant history"`
		ResumeOutbox commands.ResumeOutboxCmd `cmd:"" help:"Retry history writes parked by earlier renames"`

		Store    bootstrap.Flags `embed:""`
		StateDir string          `help:"directory holding the saved session" default:"" env:"CASEWORK_STATE_DIR"`
		Debug    bool            `help:"Enable debug mode."`
		Version  kong.VersionFlag
	}
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("casework"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	err := cmd.Run(&commands.Globals{
		Debug:    cli.Debug,
		Version:  version,
		StateDir: cli.StateDir,
		Store:    &cli.Store,
		Out:      os.Stdout,
	})
	cmd.FatalIfErrorf(err)
}
