package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/bulk"
	"github.com/pseudomuto/groundskeeper/pkg/consts"
	"github.com/pseudomuto/groundskeeper/pkg/platform"
	"github.com/pseudomuto/groundskeeper/pkg/tokens"
	"github.com/pseudomuto/groundskeeper/pkg/workspace"
)

type (
	// Config contains configuration options for creating a new Executor.
	Config struct {
		// Platform breaks scripts into statements and parses driver errors.
		Platform platform.Platform

		// Tokens are the user supplied substitutions.
		Tokens []tokens.Token

		// CommandTimeout bounds each statement. Defaults to 30s.
		CommandTimeout time.Duration

		// Bulk configures CSV imports. Placeholder and quoting come from the
		// platform.
		Bulk bulk.Options

		Logger *slog.Logger
	}

	// Executor runs SQL and CSV scripts.
	Executor struct {
		platform platform.Platform
		tokens   []tokens.Token
		timeout  time.Duration
		importer *bulk.Importer
		logger   *slog.Logger
	}

	// Result describes a script that ran.
	Result struct {
		// Statements is the number of statements executed.
		Statements int

		// Rows is the number of CSV rows imported.
		Rows int

		Duration time.Duration
	}

	// ScriptError is returned when a script cannot be prepared or one of its
	// statements fails.
	ScriptError struct {
		// Path is the workspace relative script path.
		Path string

		// Statement is the 1 based index of the failing statement, 0 when the
		// failure happened before execution or during a CSV import.
		Statement int

		// Message is the platform's description of the failure when the driver
		// error could be parsed, otherwise the error text.
		Message string

		Err error
	}
)

func (e *ScriptError) Error() string {
	if e.Statement > 0 {
		return fmt.Sprintf("%s (statement %d): %s", e.Path, e.Statement, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// New returns an Executor, applying defaults to unset options.
func New(cfg Config) (*Executor, error) {
	if cfg.Platform == nil {
		return nil, errors.New("executor requires a platform")
	}

	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = consts.DefaultCommandTimeout
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := tokens.CheckUser(cfg.Tokens); err != nil {
		return nil, err
	}

	importer, err := cfg.Platform.BulkImporter(cfg.Bulk)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure bulk importer")
	}

	return &Executor{
		platform: cfg.Platform,
		tokens:   cfg.Tokens,
		timeout:  cfg.CommandTimeout,
		importer: importer,
		logger:   cfg.Logger,
	}, nil
}

// Prepare reads a SQL script, resolves its tokens and splits it into
// statements without executing anything.
func (e *Executor) Prepare(script workspace.ScriptFile, reserved tokens.Reserved) ([]string, error) {
	raw, err := os.ReadFile(script.Path)
	if err != nil {
		return nil, e.scriptError(script, 0, errors.Wrap(err, "failed to read script"))
	}

	text, err := tokens.Replace(reserved.With(e.tokens), string(raw))
	if err != nil {
		return nil, e.scriptError(script, 0, err)
	}

	stmts, err := e.platform.BreakStatements(text)
	if err != nil {
		return nil, e.scriptError(script, 0, err)
	}

	return stmts, nil
}

// Run executes a script on q.
func (e *Executor) Run(
	ctx context.Context,
	q platform.Querier,
	script workspace.ScriptFile,
	reserved tokens.Reserved,
) (Result, error) {
	start := time.Now()

	var (
		res Result
		err error
	)

	switch script.Kind {
	case workspace.CSV:
		res, err = e.importCSV(ctx, q, script)
	default:
		res, err = e.runSQL(ctx, q, script, reserved)
	}

	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}

	e.logger.Debug("Script executed",
		"script", script.RelPath,
		"statements", res.Statements,
		"rows", res.Rows,
		"duration", res.Duration,
	)

	return res, nil
}

func (e *Executor) runSQL(
	ctx context.Context,
	q platform.Querier,
	script workspace.ScriptFile,
	reserved tokens.Reserved,
) (Result, error) {
	stmts, err := e.Prepare(script, reserved)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i, stmt := range stmts {
		if err := e.exec(ctx, q, stmt); err != nil {
			return res, e.scriptError(script, i+1, err)
		}

		res.Statements++
	}

	return res, nil
}

func (e *Executor) exec(ctx context.Context, q platform.Querier, stmt string) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	_, err := q.ExecContext(ctx, stmt)
	return err
}

func (e *Executor) importCSV(ctx context.Context, q platform.Querier, script workspace.ScriptFile) (Result, error) {
	f, err := os.Open(script.Path)
	if err != nil {
		return Result{}, e.scriptError(script, 0, errors.Wrap(err, "failed to open csv"))
	}
	defer func() { _ = f.Close() }()

	rows, err := e.importer.Import(ctx, q, script.TableName(), f)
	if err != nil {
		return Result{Rows: rows}, e.scriptError(script, 0, err)
	}

	return Result{Rows: rows}, nil
}

func (e *Executor) scriptError(script workspace.ScriptFile, stmt int, err error) *ScriptError {
	msg, ok := e.platform.TryParseError(err)
	if !ok {
		msg = err.Error()
	}

	return &ScriptError{
		Path:      script.RelPath,
		Statement: stmt,
		Message:   msg,
		Err:       err,
	}
}
