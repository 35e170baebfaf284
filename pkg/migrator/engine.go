package migrator

import (
	"context"
	"database/sql"
	"log/slog"
	"os/user"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/bulk"
	"github.com/pseudomuto/groundskeeper/pkg/config"
	"github.com/pseudomuto/groundskeeper/pkg/executor"
	"github.com/pseudomuto/groundskeeper/pkg/metadata"
	"github.com/pseudomuto/groundskeeper/pkg/platform"
	"github.com/pseudomuto/groundskeeper/pkg/tokens"
	"github.com/pseudomuto/groundskeeper/pkg/workspace"
)

type (
	// Engine applies a workspace to a database.
	//
	// An Engine holds a single run configuration. Create a new Engine for each
	// run; it is not safe for concurrent use.
	Engine struct {
		cfg      config.Config
		platform platform.Platform
		ws       *workspace.Workspace
		locator  *workspace.Locator
		exec     *executor.Executor
		store    *metadata.Store
		reserved tokens.Reserved
		logger   *slog.Logger
		runID    string
		user     string
		now      func() time.Time
	}

	// inspection is the state of the target database before a run changes
	// anything.
	inspection struct {
		databaseExists bool
		configured     bool
		versions       *metadata.VersionSet
	}
)

// New returns an Engine for cfg on platform p. Nothing is read from the
// workspace or the database until a run starts.
//
// Example usage:
//
//	p, err := registry.New(registry.Options{}).Lookup(cfg.Platform)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	engine, err := migrator.New(cfg, p, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	report, err := engine.Run(ctx)
func New(cfg config.Config, p platform.Platform, logger *slog.Logger) (*Engine, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &ValidationError{Reason: "invalid configuration", Err: err}
	}

	if logger == nil {
		logger = slog.Default()
	}

	dbName, err := p.DatabaseName(cfg.ConnectionString)
	if err != nil {
		return nil, &ValidationError{Reason: "invalid connection string", Err: err}
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID, "platform", p.Name(), "database", dbName)

	exec, err := executor.New(executor.Config{
		Platform:       p,
		Tokens:         cfg.TokenList(),
		CommandTimeout: cfg.CommandTimeout,
		Bulk: bulk.Options{
			Separator: cfg.Bulk.Separator,
			BatchSize: cfg.Bulk.BatchSize,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, &ValidationError{Reason: "invalid configuration", Err: err}
	}

	store := metadata.NewStore(p, platform.Target{
		Database: dbName,
		Schema:   cfg.Tracking.Schema,
		Table:    cfg.Tracking.Table,
	})

	ws := workspace.New(cfg.Workspace)
	target := store.Target()

	return &Engine{
		cfg:      cfg,
		platform: p,
		ws:       ws,
		locator:  ws.Locator(cfg.Environment, logger),
		exec:     exec,
		store:    store,
		reserved: tokens.Reserved{
			Database:             target.Database,
			Schema:               target.Schema,
			Table:                target.Table,
			AppliedByTool:        cfg.AppliedByTool,
			AppliedByToolVersion: cfg.AppliedByToolVersion,
		},
		logger: logger,
		runID:  runID,
		user:   currentUser(),
		now:    time.Now,
	}, nil
}

// Run applies the pending versions of the workspace.
//
// The phases run in order: _init (only when the tracking table is created by
// this run), _pre, each pending version up to the target, _draft and _post.
// When every version is already applied only _pre, _draft and _post run.
//
// Validation problems are returned as *ValidationError, unsupported requests
// as *PlatformCapabilityError, failing scripts as *ExecutionError and
// disagreements with a previous failure as *ResumeProtocolError.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	start := e.now()

	strategy, err := e.strategy()
	if err != nil {
		return nil, err
	}

	p, err := e.buildPlan()
	if err != nil {
		return nil, err
	}

	if err := e.checkExplicitTransactions(p); err != nil {
		return nil, err
	}

	state, db, err := e.inspect(ctx)
	if db != nil {
		defer func() { _ = db.Close() }()
	}
	if err != nil {
		return nil, err
	}

	resume, err := e.resumeFrom(p, state.versions, strategy)
	if err != nil {
		return nil, err
	}

	pending := p.pending(state.versions)
	if err := e.prepare(p, pending, !state.configured); err != nil {
		return nil, err
	}

	e.checkDrift(p, state.versions)

	rep := &Report{
		RunID:      e.runID,
		Strategy:   strategy,
		VerifyOnly: e.cfg.VerifyOnly,
	}

	if !state.databaseExists {
		if err := e.createDatabase(ctx); err != nil {
			return nil, err
		}

		rep.DatabaseCreated = true
		if db, err = e.open(ctx); err != nil {
			return nil, err
		}
		defer func() { _ = db.Close() }()
	}

	if !state.configured {
		if err := e.store.Configure(ctx, db); err != nil {
			return nil, err
		}

		rep.TrackingCreated = true
		e.logger.Info("Created tracking table", "table", e.store.Target().Table)
	}

	if len(pending) == 0 {
		e.logger.Info("Target version already applied, running maintenance phases only", "target", targetName(p))
	}

	run := &run{
		engine:   e,
		db:       db,
		plan:     p,
		pending:  pending,
		resume:   resume,
		strategy: strategy,
		init:     !state.configured,
		report:   rep,
	}

	err = run.execute(ctx)
	rep.Duration = e.now().Sub(start)
	if err != nil {
		e.logger.Error("Run failed", "error", err)
		return rep, err
	}

	e.logger.Info("Run complete",
		"versions", len(rep.Versions),
		"scripts", rep.Scripts,
		"statements", rep.Statements,
		"verify_only", rep.VerifyOnly,
		"duration", rep.Duration,
	)

	return rep, nil
}

// strategy selects how transactions wrap the run.
func (e *Engine) strategy() (Strategy, error) {
	atomic := e.platform.IsAtomicDDLSupported()

	if e.cfg.VerifyOnly {
		if !atomic {
			return 0, &PlatformCapabilityError{
				Platform: e.platform.Name(),
				Reason:   "verify-only runs need transactional DDL to roll back, which this platform does not support",
			}
		}

		return Session, nil
	}

	mode := e.cfg.TransactionMode
	if !atomic && mode != config.NoneMode {
		e.logger.Warn("Platform does not support transactional DDL, running without transactions",
			"configured_mode", mode,
		)
		mode = config.NoneMode
	}

	switch mode {
	case config.VersionMode:
		return PerVersion, nil
	case config.NoneMode:
		return NoTransaction, nil
	default:
		return Session, nil
	}
}

// checkExplicitTransactions rejects _transaction directories the platform
// has no use for.
func (e *Engine) checkExplicitTransactions(p *plan) error {
	if !e.platform.IsAtomicDDLSupported() {
		return nil
	}

	for _, vp := range p.versions {
		if vp.explicitTx {
			return &PlatformCapabilityError{
				Platform: e.platform.Name(),
				Reason: "version " + vp.name + " uses a " + workspace.TransactionDir +
					" directory, which is only supported on platforms without transactional DDL",
			}
		}
	}

	return nil
}

// inspect reads the state of the target database without changing it. The
// returned connection is nil when the database does not exist yet.
func (e *Engine) inspect(ctx context.Context) (inspection, *sql.DB, error) {
	state := inspection{versions: metadata.NewVersionSet(nil)}

	if e.cfg.AutoCreateDatabase {
		exists, err := e.databaseExists(ctx)
		if err != nil {
			return state, nil, err
		}

		if !exists {
			return state, nil, nil
		}
	}

	state.databaseExists = true
	db, err := e.open(ctx)
	if err != nil {
		return state, nil, err
	}

	state.configured, err = e.store.IsConfigured(ctx, db)
	if err != nil {
		return state, db, err
	}

	if state.configured {
		state.versions, err = e.store.GetAllVersions(ctx, db)
		if err != nil {
			return state, db, err
		}
	}

	return state, db, nil
}

func (e *Engine) open(ctx context.Context) (*sql.DB, error) {
	db, err := e.platform.Open(e.cfg.ConnectionString)
	if err != nil {
		return nil, err
	}

	serverVersion, err := e.platform.ServerVersion(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to connect to the target database")
	}

	e.logger.Debug("Connected", "server_version", serverVersion)
	return db, nil
}

func (e *Engine) databaseExists(ctx context.Context) (bool, error) {
	master, err := e.platform.OpenMaster(e.cfg.ConnectionString)
	if err != nil {
		return false, err
	}
	defer func() { _ = master.Close() }()

	return e.store.IsDatabaseExists(ctx, master)
}

func (e *Engine) createDatabase(ctx context.Context) error {
	master, err := e.platform.OpenMaster(e.cfg.ConnectionString)
	if err != nil {
		return err
	}
	defer func() { _ = master.Close() }()

	if err := e.store.CreateDatabase(ctx, master); err != nil {
		return err
	}

	e.logger.Info("Created database")
	return nil
}

// checkDrift warns about applied versions whose scripts changed since.
func (e *Engine) checkDrift(p *plan, applied *metadata.VersionSet) {
	for _, vp := range p.versions {
		row := applied.Get(vp.name)
		if row == nil || row.IsFailed() || row.AdditionalArtifacts == "" {
			continue
		}

		recorded, err := workspace.LoadSumFile(strings.NewReader(row.AdditionalArtifacts))
		if err != nil {
			e.logger.Debug("Ignoring unreadable checksums", "version", vp.name, "error", err)
			continue
		}

		if recorded.TotalHash != vp.sum.TotalHash {
			e.logger.Warn("Scripts changed after the version was applied, changes will not run",
				"version", vp.name,
				"applied_on", row.AppliedOn,
			)
		}
	}
}

func (e *Engine) versionTokens(vp *versionPlan) tokens.Reserved {
	r := e.reserved
	r.Version = vp.name
	r.AdditionalArtifacts = vp.sum.String()
	return r
}

func currentUser() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		return "unknown"
	}

	return u.Username
}

func targetName(p *plan) string {
	if p.target == nil {
		return ""
	}

	return p.target.String()
}
