package migrator

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/executor"
	"github.com/pseudomuto/groundskeeper/pkg/metadata"
	"github.com/pseudomuto/groundskeeper/pkg/platform"
	"github.com/pseudomuto/groundskeeper/pkg/utils"
	"github.com/pseudomuto/groundskeeper/pkg/workspace"
)

// Transaction strategies.
const (
	// Session runs the whole run in one transaction.
	Session Strategy = iota

	// PerVersion runs each version, and each other phase, in its own
	// transaction.
	PerVersion

	// NoTransaction lets every statement commit on its own. Failures are
	// recorded so the run can be resumed.
	NoTransaction

	// ExplicitOverride runs a single version with a _transaction directory
	// in a transaction while the rest of the run uses NoTransaction.
	ExplicitOverride
)

type (
	// Strategy is how transactions wrap the phases of a run.
	Strategy int

	// run is the state of one Engine.Run once the database is ready.
	run struct {
		engine   *Engine
		db       *sql.DB
		plan     *plan
		pending  []*versionPlan
		resume   *resumeContext
		strategy Strategy
		init     bool
		report   *Report
	}

	// step is a unit of work run inside one scope.
	step func(ctx context.Context, q platform.Querier) error
)

func (s Strategy) String() string {
	switch s {
	case Session:
		return "session"
	case PerVersion:
		return "version"
	case NoTransaction:
		return "none"
	case ExplicitOverride:
		return "explicit"
	default:
		return "unknown"
	}
}

func (r *run) execute(ctx context.Context) error {
	steps := r.steps()

	if r.strategy != Session {
		for _, s := range steps {
			if err := s(ctx, r.db); err != nil {
				return err
			}
		}

		return nil
	}

	commit := !r.engine.cfg.VerifyOnly
	return r.inTransaction(ctx, commit, func(ctx context.Context, q platform.Querier) error {
		for _, s := range steps {
			if err := s(ctx, q); err != nil {
				return err
			}
		}

		return nil
	})
}

// steps returns the phases of the run in order. Under Session every step
// receives the run's transaction, otherwise the connection pool.
func (r *run) steps() []step {
	var steps []step
	if r.init {
		steps = append(steps, r.phase(workspace.InitDir, r.plan.init))
	}

	steps = append(steps, r.phase(workspace.PreDir, r.plan.pre))
	for _, vp := range r.pending {
		steps = append(steps, r.version(vp))
	}

	return append(steps,
		r.phase(workspace.DraftDir, r.plan.draft),
		r.phase(workspace.PostDir, r.plan.post),
	)
}

func (r *run) phase(name string, scripts []workspace.ScriptFile) step {
	return func(ctx context.Context, q platform.Querier) error {
		if len(scripts) == 0 {
			return nil
		}

		body := func(ctx context.Context, q platform.Querier) error {
			for _, s := range scripts {
				if err := r.script(ctx, q, name, nil, s); err != nil {
					return err
				}
			}

			return nil
		}

		if r.strategy == PerVersion {
			return r.inTransaction(ctx, true, body)
		}

		return body(ctx, q)
	}
}

func (r *run) version(vp *versionPlan) step {
	return func(ctx context.Context, q platform.Querier) error {
		resume := r.resume.forVersion(vp.name)

		switch r.scopeOf(vp) {
		case PerVersion, ExplicitOverride:
			return r.inTransaction(ctx, true, func(ctx context.Context, tx platform.Querier) error {
				return r.applyVersion(ctx, tx, vp, resume)
			})
		case NoTransaction:
			start := r.engine.now()
			err := r.applyVersion(ctx, q, vp, resume)

			var execErr *ExecutionError
			if errors.As(err, &execErr) {
				r.recordFailure(ctx, q, vp, execErr, start, resume != nil)
			}

			return err
		default:
			return r.applyVersion(ctx, q, vp, resume)
		}
	}
}

// scopeOf returns the strategy a version runs under.
func (r *run) scopeOf(vp *versionPlan) Strategy {
	if r.strategy == NoTransaction && vp.explicitTx {
		return ExplicitOverride
	}

	return r.strategy
}

func (r *run) applyVersion(ctx context.Context, q platform.Querier, vp *versionPlan, resume *resumeContext) error {
	e := r.engine
	start := e.now()
	logger := e.logger.With("version", vp.name)
	logger.Info("Applying version", "scripts", len(vp.scripts), "strategy", r.scopeOf(vp))

	for _, s := range vp.scripts {
		if resume.skip(s.RelPath) {
			logger.Info("Skipping script applied before the previous failure", "script", s.RelPath)
			continue
		}

		if err := r.script(ctx, q, vp.name, vp, s); err != nil {
			return err
		}
	}

	row := r.row(vp, start)
	if err := e.store.InsertOrUpsertVersion(ctx, q, row, resume != nil); err != nil {
		return err
	}

	if resume != nil {
		r.report.Resumed = vp.name
	}

	r.report.Versions = append(r.report.Versions, vp.name)
	logger.Info("Applied version", "duration_ms", row.DurationMs)
	return nil
}

func (r *run) script(ctx context.Context, q platform.Querier, phase string, vp *versionPlan, s workspace.ScriptFile) error {
	e := r.engine

	reserved := e.reserved
	if vp != nil {
		reserved = e.versionTokens(vp)
	}

	res, err := e.exec.Run(ctx, q, s, reserved)
	if err != nil {
		return r.executionError(phase, vp, s, err)
	}

	r.report.add(phase, res.Statements, res.Rows)
	return nil
}

func (r *run) executionError(phase string, vp *versionPlan, s workspace.ScriptFile, err error) *ExecutionError {
	execErr := &ExecutionError{
		Phase:   phase,
		Script:  s.RelPath,
		Message: err.Error(),
		Err:     err,
	}

	if vp != nil {
		execErr.Version = vp.name
	}

	var scriptErr *executor.ScriptError
	if errors.As(err, &scriptErr) {
		execErr.Statement = scriptErr.Statement
		execErr.Message = scriptErr.Message
	}

	return execErr
}

// recordFailure stores a Failed row for a version that failed without a
// transaction. The original failure is what the caller returns, so a
// problem recording it is only logged.
func (r *run) recordFailure(
	ctx context.Context,
	q platform.Querier,
	vp *versionPlan,
	execErr *ExecutionError,
	start time.Time,
	resuming bool,
) {
	e := r.engine

	row := r.row(vp, start)
	row.Status = metadata.Failed
	row.FailedScriptPath = utils.Ptr(execErr.Script)
	row.FailedScriptError = utils.Ptr(execErr.Message)

	if err := e.store.InsertOrUpsertVersion(ctx, q, row, resuming); err != nil {
		e.logger.Error("Failed to record the failed version", "version", vp.name, "error", err)
		return
	}

	e.logger.Warn("Recorded failed version, fix the script and run again with continue-after-failure",
		"version", vp.name,
		"script", execErr.Script,
	)
}

func (r *run) row(vp *versionPlan, start time.Time) *metadata.DbVersion {
	e := r.engine
	now := e.now()

	return &metadata.DbVersion{
		Version:              vp.name,
		AppliedOn:            now,
		AppliedByUser:        e.user,
		AppliedByTool:        e.cfg.AppliedByTool,
		AppliedByToolVersion: e.cfg.AppliedByToolVersion,
		Status:               metadata.Successful,
		DurationMs:           now.Sub(start).Milliseconds(),
		AdditionalArtifacts:  vp.sum.String(),
	}
}

// inTransaction runs fn in a transaction on a dedicated connection. The
// transaction commits when fn succeeds and commit is set, and rolls back
// otherwise.
func (r *run) inTransaction(ctx context.Context, commit bool, fn step) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to acquire a connection")
	}
	defer func() { _ = conn.Close() }()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.engine.logger.Error("Failed to roll back", "error", rbErr)
		}

		return err
	}

	if !commit {
		r.engine.logger.Info("Rolling back verify-only run")
		return errors.Wrap(tx.Rollback(), "failed to roll back")
	}

	return errors.Wrap(tx.Commit(), "failed to commit")
}
