package config

import (
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/consts"
	"github.com/pseudomuto/groundskeeper/pkg/platform/clickhouse"
	"github.com/pseudomuto/groundskeeper/pkg/tokens"
	"gopkg.in/yaml.v3"
)

// Transaction modes.
const (
	// SessionMode wraps the whole run in one transaction.
	SessionMode TransactionMode = "session"

	// VersionMode wraps each version directory in its own transaction.
	VersionMode TransactionMode = "version"

	// NoneMode runs every statement on its own and records failures so the
	// run can be resumed.
	NoneMode TransactionMode = "none"
)

type (
	// TransactionMode selects how transactions wrap a run.
	TransactionMode string

	// Tracking names the table that records applied versions.
	Tracking struct {
		// Schema defaults to the platform's default schema.
		Schema string `yaml:"schema,omitempty"`
		Table  string `yaml:"table,omitempty"`
	}

	// Bulk configures CSV imports.
	Bulk struct {
		Separator string `yaml:"separator,omitempty"`
		BatchSize int    `yaml:"batch_size,omitempty"`
	}

	// Log configures the process logger.
	Log struct {
		// Level is one of debug, info, warn or error.
		Level string `yaml:"level,omitempty"`

		// Format is text or json.
		Format string `yaml:"format,omitempty"`
	}

	// Config is the configuration of a single run. It is built once, from the
	// workspace's groundskeeper.yaml and command line flags, and is not changed
	// while the run executes.
	Config struct {
		// Workspace is the root directory of the scripts. Never read from the
		// file itself.
		Workspace string `yaml:"-"`

		// Platform is the registry name of the target database platform.
		Platform string `yaml:"platform"`

		ConnectionString string `yaml:"connection_string,omitempty"`

		// TargetVersion is the highest version to apply. Empty means latest.
		TargetVersion string `yaml:"target_version,omitempty"`

		// Tokens are substituted into scripts as ${KEY}.
		Tokens map[string]string `yaml:"tokens,omitempty"`

		TransactionMode TransactionMode `yaml:"transaction_mode,omitempty"`

		// AutoCreateDatabase creates the target database when it is missing.
		AutoCreateDatabase bool `yaml:"auto_create_database,omitempty"`

		// VerifyOnly runs everything and rolls it all back.
		VerifyOnly bool `yaml:"-"`

		// Environment selects environment specific scripts, e.g. dev for
		// directories named _dev.
		Environment string `yaml:"environment,omitempty"`

		Bulk Bulk `yaml:"bulk,omitempty"`

		// ContinueAfterFailure resumes a version that failed in a previous
		// run, after the script that failed.
		ContinueAfterFailure bool `yaml:"-"`

		// RequireClearedDraft refuses to run when _draft holds scripts.
		RequireClearedDraft bool `yaml:"require_cleared_draft,omitempty"`

		// CommandTimeout bounds each statement.
		CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`

		Tracking Tracking `yaml:"tracking,omitempty"`

		// ClickHouse holds connection settings used only by the ClickHouse
		// platform.
		ClickHouse clickhouse.ClientOptions `yaml:"clickhouse,omitempty"`

		Log Log `yaml:"log,omitempty"`

		// AppliedByTool and AppliedByToolVersion are recorded with every
		// version.
		AppliedByTool        string `yaml:"-"`
		AppliedByToolVersion string `yaml:"-"`
	}
)

var transactionModes = []TransactionMode{SessionMode, VersionMode, NoneMode}

// ParseTransactionMode parses a mode name, case-insensitively.
func ParseTransactionMode(s string) (TransactionMode, error) {
	mode := TransactionMode(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(transactionModes, mode) {
		return "", errors.Errorf("invalid transaction mode %q, expected session, version or none", s)
	}

	return mode, nil
}

// LoadConfig parses a run configuration from the provided io.Reader and
// applies defaults to unset values.
//
// Example:
//
//	yamlData := `
//	platform: postgresql
//	transaction_mode: version
//	tokens:
//	  OWNER: app
//	`
//
//	cfg, err := config.LoadConfig(strings.NewReader(yamlData))
//	if err != nil {
//		panic(err)
//	}
//
//	fmt.Printf("Platform: %s\n", cfg.Platform)
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to unmarshal run config")
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadConfigFile loads a run configuration from the specified file path.
//
// Example:
//
//	cfg, err := config.LoadConfigFile("db/groundskeeper.yaml")
//	if err != nil {
//		log.Fatal("Failed to load config:", err)
//	}
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// ApplyDefaults fills in unset values.
func (c *Config) ApplyDefaults() {
	if c.TransactionMode == "" {
		c.TransactionMode = SessionMode
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = consts.DefaultCommandTimeout
	}
	if c.Tracking.Table == "" {
		c.Tracking.Table = consts.DefaultTrackingTable
	}
	if c.Bulk.Separator == "" {
		c.Bulk.Separator = consts.DefaultBulkSeparator
	}
	if c.Bulk.BatchSize <= 0 {
		c.Bulk.BatchSize = consts.DefaultBulkBatchSize
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.AppliedByTool == "" {
		c.AppliedByTool = consts.ToolName
	}
}

// Validate checks the values a run cannot start without.
func (c Config) Validate() error {
	if c.Workspace == "" {
		return errors.New("workspace is required")
	}

	if c.Platform == "" {
		return errors.New("platform is required")
	}

	if c.ConnectionString == "" {
		return errors.New("connection string is required")
	}

	if _, err := ParseTransactionMode(string(c.TransactionMode)); err != nil {
		return err
	}

	if c.Bulk.BatchSize <= 0 {
		return errors.Errorf("bulk batch size must be positive, got %d", c.Bulk.BatchSize)
	}

	return tokens.CheckUser(c.TokenList())
}

// TokenList returns the configured tokens ordered by key.
func (c Config) TokenList() []tokens.Token {
	return tokens.FromMap(c.Tokens)
}
