package cmd

import (
	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/config"
	"github.com/pseudomuto/groundskeeper/pkg/tokens"
	"github.com/urfave/cli/v3"
)

const envPrefix = "GROUNDSKEEPER_"

func envVars(name string) cli.ValueSourceChain {
	return cli.EnvVars(envPrefix + name)
}

func workspaceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "workspace",
		Aliases: []string{"w"},
		Usage:   "the workspace directory",
		Value:   ".",
		Sources: envVars("WORKSPACE"),
		Config:  cli.StringConfig{TrimSpace: true},
	}
}

// connectionFlags are shared by every command that talks to a database.
func connectionFlags() []cli.Flag {
	return []cli.Flag{
		workspaceFlag(),
		&cli.StringFlag{
			Name:    "platform",
			Aliases: []string{"p"},
			Usage:   "the target platform (postgresql, sqlite, clickhouse)",
			Sources: envVars("PLATFORM"),
			Config:  cli.StringConfig{TrimSpace: true},
		},
		&cli.StringFlag{
			Name:    "connection-string",
			Aliases: []string{"c"},
			Usage:   "the target database connection string",
			Sources: envVars("CONNECTION_STRING"),
			Config:  cli.StringConfig{TrimSpace: true},
		},
		&cli.StringSliceFlag{
			Name:    "token",
			Aliases: []string{"k"},
			Usage:   "a KEY=VALUE token substituted into scripts as ${KEY}, may be repeated",
		},
		&cli.StringFlag{
			Name:    "environment",
			Aliases: []string{"e"},
			Usage:   "the environment code selecting _<code> script directories",
			Sources: envVars("ENVIRONMENT"),
			Config:  cli.StringConfig{TrimSpace: true},
		},
		&cli.StringFlag{
			Name:  "tracking-schema",
			Usage: "the schema holding the tracking table",
		},
		&cli.StringFlag{
			Name:  "tracking-table",
			Usage: "the name of the tracking table",
		},
		&cli.DurationFlag{
			Name:  "command-timeout",
			Usage: "the maximum duration of a single statement",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			Sources: envVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "text or json",
			Sources: envVars("LOG_FORMAT"),
		},
		&cli.StringFlag{
			Name:   "cafile",
			Usage:  "ClickHouse certificate authority pem",
			Config: cli.StringConfig{TrimSpace: true},
		},
		&cli.StringFlag{
			Name:   "certfile",
			Usage:  "ClickHouse certificate public key file",
			Config: cli.StringConfig{TrimSpace: true},
		},
		&cli.StringFlag{
			Name:   "keyfile",
			Usage:  "ClickHouse certificate private key file",
			Config: cli.StringConfig{TrimSpace: true},
		},
	}
}

// runFlags are the connection flags plus the settings of a migration run.
func runFlags() []cli.Flag {
	return append(connectionFlags(),
		&cli.StringFlag{
			Name:    "target-version",
			Aliases: []string{"t"},
			Usage:   "the highest version to apply, defaults to the latest",
			Sources: envVars("TARGET_VERSION"),
			Config:  cli.StringConfig{TrimSpace: true},
		},
		&cli.StringFlag{
			Name:    "transaction-mode",
			Aliases: []string{"m"},
			Usage:   "session, version or none",
			Sources: envVars("TRANSACTION_MODE"),
		},
		&cli.BoolFlag{
			Name:    "auto-create-db",
			Aliases: []string{"a"},
			Usage:   "create the target database when it does not exist",
			Sources: envVars("AUTO_CREATE_DB"),
		},
		&cli.BoolFlag{
			Name:  "require-cleared-draft",
			Usage: "fail when _draft still holds scripts",
		},
		&cli.StringFlag{
			Name:  "bulk-separator",
			Usage: "the field separator of CSV files",
		},
		&cli.IntFlag{
			Name:  "bulk-batch-size",
			Usage: "the number of CSV rows sent per statement",
		},
	)
}

// applyFlags overrides cfg with every flag set on the command line or through
// the environment.
func applyFlags(cmd *cli.Command, cfg *config.Config) error {
	strs := []struct {
		flag string
		dest *string
	}{
		{flag: "platform", dest: &cfg.Platform},
		{flag: "connection-string", dest: &cfg.ConnectionString},
		{flag: "environment", dest: &cfg.Environment},
		{flag: "tracking-schema", dest: &cfg.Tracking.Schema},
		{flag: "tracking-table", dest: &cfg.Tracking.Table},
		{flag: "log-level", dest: &cfg.Log.Level},
		{flag: "log-format", dest: &cfg.Log.Format},
		{flag: "cafile", dest: &cfg.ClickHouse.CAFile},
		{flag: "certfile", dest: &cfg.ClickHouse.CertFile},
		{flag: "keyfile", dest: &cfg.ClickHouse.KeyFile},
		{flag: "target-version", dest: &cfg.TargetVersion},
		{flag: "bulk-separator", dest: &cfg.Bulk.Separator},
	}

	for _, s := range strs {
		if cmd.IsSet(s.flag) {
			*s.dest = cmd.String(s.flag)
		}
	}

	if cmd.IsSet("transaction-mode") {
		mode, err := config.ParseTransactionMode(cmd.String("transaction-mode"))
		if err != nil {
			return err
		}

		cfg.TransactionMode = mode
	}

	if cmd.IsSet("auto-create-db") {
		cfg.AutoCreateDatabase = cmd.Bool("auto-create-db")
	}

	if cmd.IsSet("require-cleared-draft") {
		cfg.RequireClearedDraft = cmd.Bool("require-cleared-draft")
	}

	if cmd.IsSet("command-timeout") {
		cfg.CommandTimeout = cmd.Duration("command-timeout")
	}

	if cmd.IsSet("bulk-batch-size") {
		cfg.Bulk.BatchSize = cmd.Int("bulk-batch-size")
	}

	for _, kv := range cmd.StringSlice("token") {
		tok, err := tokens.Parse(kv)
		if err != nil {
			return errors.Wrap(err, "invalid --token")
		}

		if cfg.Tokens == nil {
			cfg.Tokens = make(map[string]string)
		}

		cfg.Tokens[tok.Key] = tok.Value
	}

	return nil
}
