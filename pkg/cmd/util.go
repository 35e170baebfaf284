package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/config"
	"github.com/pseudomuto/groundskeeper/pkg/logging"
	"github.com/pseudomuto/groundskeeper/pkg/migrator"
	"github.com/pseudomuto/groundskeeper/pkg/platform/registry"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type commandParams struct {
	fx.In

	Loader  *config.Loader
	Version *Version
}

// newEngine loads the workspace configuration, applies the command's flags and
// returns an engine for the configured platform.
func newEngine(cmd *cli.Command, p commandParams, modify ...func(*config.Config)) (*migrator.Engine, error) {
	workspace := cmd.String("workspace")
	if workspace == "" {
		workspace = "."
	}

	loader := p.Loader
	if loader == nil {
		loader = config.NewLoader()
	}

	cfg, err := loader.Load(workspace)
	if err != nil {
		return nil, err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	for _, m := range modify {
		m(cfg)
	}

	if cfg.Platform == "" {
		return nil, errors.New("no platform configured, set platform in groundskeeper.yaml or pass --platform")
	}

	version := toolVersion(p)
	cfg.AppliedByToolVersion = version

	platforms := registry.New(registry.Options{ClickHouse: cfg.ClickHouse})
	target, err := platforms.Lookup(cfg.Platform)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Log, errWriter(cmd), version)
	return migrator.New(*cfg, target, logger)
}

func toolVersion(p commandParams) string {
	if p.Version == nil || p.Version.Version == "" {
		return "dev"
	}

	return p.Version.Version
}

func writer(cmd *cli.Command) io.Writer {
	if cmd.Writer != nil {
		return cmd.Writer
	}

	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}

	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if cmd.ErrWriter != nil {
		return cmd.ErrWriter
	}

	if root := cmd.Root(); root != nil && root.ErrWriter != nil {
		return root.ErrWriter
	}

	return os.Stderr
}

func printReport(w io.Writer, rep *migrator.Report) {
	if rep.DatabaseCreated {
		fmt.Fprintln(w, "Created database")
	}

	if rep.TrackingCreated {
		fmt.Fprintln(w, "Created tracking table")
	}

	if rep.Resumed != "" {
		fmt.Fprintf(w, "Resumed %s after the previously failed script\n", rep.Resumed)
	}

	if len(rep.Versions) == 0 {
		fmt.Fprintln(w, "No pending versions")
	} else {
		fmt.Fprintf(w, "Applied %d version(s): %s\n", len(rep.Versions), strings.Join(rep.Versions, ", "))
	}

	fmt.Fprintf(w, "Ran %d script(s), %d statement(s), imported %d row(s) in %s (transactions: %s)\n",
		rep.Scripts, rep.Statements, rep.Rows, rep.Duration, rep.Strategy)

	if rep.VerifyOnly {
		fmt.Fprintln(w, "Verify only: all changes were rolled back")
	}
}

// requireForce guards destructive commands.
func requireForce(cmd *cli.Command) error {
	if !cmd.Bool("force") {
		return errors.Errorf("%s is destructive, pass --force to confirm", cmd.Name)
	}

	return nil
}

func forceFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "force",
		Usage: "confirm the destructive operation",
	}
}
