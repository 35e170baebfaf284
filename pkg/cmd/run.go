package cmd

import (
	"context"

	"github.com/pseudomuto/groundskeeper/pkg/config"
	"github.com/urfave/cli/v3"
)

// runCmd creates the run command, which applies the pending versions of the
// workspace.
//
// Phases run in order: _init (first run only), _pre, every pending version up
// to the target, _draft and _post. The transaction mode decides how changes
// are grouped: session (one transaction for the run), version (one per
// version) or none. Platforms without transactional DDL always use none; a
// failure there is recorded and the run can be resumed after the failed
// script with --continue-after-failure once the problem is fixed by hand.
//
// Example usage:
//
//	groundskeeper run -p postgresql -c "postgres://app@localhost/app" -k OWNER=app
//	groundskeeper run -p sqlite -c ./app.db --target-version v1.04
//	groundskeeper run -p clickhouse -c "clickhouse://localhost:9000/app" --continue-after-failure
//
//	# Settings from the environment
//	export GROUNDSKEEPER_CONNECTION_STRING=postgres://app@localhost/app
//	groundskeeper run -p postgresql --auto-create-db
func runCmd(p commandParams) *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"apply"},
		Usage:   "Apply pending versions to the target database",
		Flags: append(runFlags(),
			&cli.BoolFlag{
				Name:  "continue-after-failure",
				Usage: "resume a version that failed in a previous run, after the failed script",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			engine, err := newEngine(cmd, p, func(c *config.Config) {
				c.ContinueAfterFailure = cmd.Bool("continue-after-failure")
			})
			if err != nil {
				return err
			}

			rep, err := engine.Run(ctx)
			if rep != nil {
				printReport(writer(cmd), rep)
			}

			return err
		},
	}
}

// verify creates the verify command. It runs everything run would in a single
// transaction and rolls it back, which needs a platform with transactional
// DDL.
//
// Example usage:
//
//	groundskeeper verify -p postgresql -c "postgres://app@localhost/app"
func verify(p commandParams) *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Run pending versions and roll every change back",
		Flags: runFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			engine, err := newEngine(cmd, p, func(c *config.Config) {
				c.VerifyOnly = true
			})
			if err != nil {
				return err
			}

			rep, err := engine.Run(ctx)
			if rep != nil {
				printReport(writer(cmd), rep)
			}

			return err
		},
	}
}
