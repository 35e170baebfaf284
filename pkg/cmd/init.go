package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/consts"
	"github.com/pseudomuto/groundskeeper/pkg/version"
	"github.com/pseudomuto/groundskeeper/pkg/workspace"
	"github.com/urfave/cli/v3"
)

// initCmd creates the init command, which lays out a new workspace.
//
// The workspace gets the _init, _pre, v0.00, _draft, _post, _erase and _drop
// directories, a groundskeeper.yaml with commented defaults and a README.
// Existing files are left alone, so it is safe to run on a workspace that
// is partially set up.
//
// Example usage:
//
//	groundskeeper init
//	groundskeeper init --workspace ./db
func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create the directory layout of a new workspace",
		Flags: []cli.Flag{workspaceFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("workspace")
			if err := workspace.New(dir).Init(); err != nil {
				return errors.Wrap(err, "failed to initialize workspace")
			}

			fmt.Fprintf(writer(cmd), "Initialized workspace in %s\n", dir)
			return nil
		},
	}
}

// vnext creates the vnext command, which adds the next version directory.
//
// By default the minor component of the latest version is incremented. With
// --major the next major version starting at minor 00 is created instead.
// An optional --file creates an empty script in the new directory.
//
// Example usage:
//
//	groundskeeper vnext                      # v1.04 -> v1.05
//	groundskeeper vnext --major              # v1.04 -> v2.00
//	groundskeeper vnext --file create.sql    # v1.05/create.sql
func vnext() *cli.Command {
	return &cli.Command{
		Name:  "vnext",
		Usage: "Create the next version directory",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.BoolFlag{
				Name:    "major",
				Aliases: []string{"M"},
				Usage:   "increment the major version instead of the minor",
			},
			&cli.StringFlag{
				Name:    "label",
				Aliases: []string{"l"},
				Usage:   "a suffix for the version name, e.g. -hotfix",
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "create an empty script with this name in the new version",
				Config:  cli.StringConfig{TrimSpace: true},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ws := workspace.New(cmd.String("workspace"))

			next := ws.NextMinor
			if cmd.Bool("major") {
				next = ws.NextMajor
			}

			v, err := next(cmd.String("label"))
			if err != nil {
				return errors.Wrap(err, "failed to create the next version")
			}

			fmt.Fprintf(writer(cmd), "Created %s\n", v)

			if name := cmd.String("file"); name != "" {
				return createScript(cmd, ws, v, name)
			}

			return nil
		},
	}
}

func createScript(cmd *cli.Command, ws *workspace.Workspace, v version.Local, name string) error {
	if filepath.Ext(name) == "" {
		name += ".sql"
	}

	path := filepath.Join(ws.VersionDir(v), filepath.Base(name))
	if err := os.WriteFile(path, nil, consts.ModeFile); err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}

	fmt.Fprintf(writer(cmd), "Created %s\n", path)
	return nil
}
