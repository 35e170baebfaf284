package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// erase creates the erase command, which runs the _erase scripts to remove
// the objects created by the workspace. It requires --force.
//
// Example usage:
//
//	groundskeeper erase -p postgresql -c "postgres://app@localhost/app" --force
func erase(p commandParams) *cli.Command {
	return &cli.Command{
		Name:  "erase",
		Usage: "Run the _erase scripts against the target database",
		Flags: append(connectionFlags(), forceFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireForce(cmd); err != nil {
				return err
			}

			engine, err := newEngine(cmd, p)
			if err != nil {
				return err
			}

			rep, err := engine.Erase(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(writer(cmd), "Erased database objects with %d script(s)\n", rep.Scripts)
			return nil
		},
	}
}

// destroy creates the destroy command, which runs the _drop scripts on the
// administrative connection, usually to drop ${GK_DB_NAME}. It requires
// --force.
//
// Example usage:
//
//	groundskeeper destroy -p postgresql -c "postgres://admin@localhost/app" --force
func destroy(p commandParams) *cli.Command {
	return &cli.Command{
		Name:  "destroy",
		Usage: "Run the _drop scripts on the administrative connection",
		Flags: append(connectionFlags(), forceFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := requireForce(cmd); err != nil {
				return err
			}

			engine, err := newEngine(cmd, p)
			if err != nil {
				return err
			}

			rep, err := engine.Destroy(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(writer(cmd), "Destroyed database with %d script(s)\n", rep.Scripts)
			return nil
		},
	}
}
