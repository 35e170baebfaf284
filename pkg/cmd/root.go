package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run registers the groundskeeper CLI application to run when the fx app
// starts, shutting the app down with exit code 1 when the command fails.
//
// Every command takes its settings from the groundskeeper.yaml file of the
// workspace, overridden by flags and GROUNDSKEEPER_* environment variables.
//
// Example usage:
//
//	groundskeeper init -w ./db
//	groundskeeper vnext -w ./db --major
//	groundskeeper run -w ./db -p postgresql -c "postgres://localhost/app" -k OWNER=app
//	groundskeeper verify -w ./db -p sqlite -c ./app.db
//	groundskeeper list -w ./db
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := &cli.Command{
		Name:  "groundskeeper",
		Usage: "A tool for versioned database schema migrations",
		Description: `groundskeeper applies a workspace of versioned SQL and CSV scripts to a
database, recording every applied version in a tracking table so that each
version runs exactly once.

Supported platforms: postgresql, sqlite and clickhouse.`,
		Version:  p.Version.Version,
		Commands: p.Commands,
	}

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}
