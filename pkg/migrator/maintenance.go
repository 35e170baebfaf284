package migrator

import (
	"context"

	"github.com/pseudomuto/groundskeeper/pkg/metadata"
	"github.com/pseudomuto/groundskeeper/pkg/workspace"
)

// Erase runs the _erase scripts, which remove the objects created by the
// workspace while keeping the database. On platforms with transactional DDL
// the scripts run in a single transaction.
func (e *Engine) Erase(ctx context.Context) (*Report, error) {
	scripts, err := e.phaseScripts(workspace.EraseDir)
	if err != nil {
		return nil, err
	}

	db, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	strategy := NoTransaction
	if e.platform.IsAtomicDDLSupported() {
		strategy = Session
	}

	r := &run{
		engine:   e,
		db:       db,
		strategy: strategy,
		report:   &Report{RunID: e.runID, Strategy: strategy},
	}

	step := r.phase(workspace.EraseDir, scripts)
	if strategy == Session {
		err = r.inTransaction(ctx, true, step)
	} else {
		err = step(ctx, db)
	}
	if err != nil {
		return r.report, err
	}

	e.logger.Info("Erased database objects", "scripts", r.report.Scripts)
	return r.report, nil
}

// Destroy runs the _drop scripts on the administrative connection, usually
// to drop the target database named by ${GK_DB_NAME}.
func (e *Engine) Destroy(ctx context.Context) (*Report, error) {
	scripts, err := e.phaseScripts(workspace.DropDir)
	if err != nil {
		return nil, err
	}

	master, err := e.platform.OpenMaster(e.cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	defer func() { _ = master.Close() }()

	r := &run{
		engine:   e,
		db:       master,
		strategy: NoTransaction,
		report:   &Report{RunID: e.runID, Strategy: NoTransaction},
	}

	if err := r.phase(workspace.DropDir, scripts)(ctx, master); err != nil {
		return r.report, err
	}

	e.logger.Warn("Destroyed database", "scripts", r.report.Scripts)
	return r.report, nil
}

// List returns every tracked version in the order it was recorded. A
// database without a tracking table has none.
func (e *Engine) List(ctx context.Context) ([]*metadata.DbVersion, error) {
	db, err := e.open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	configured, err := e.store.IsConfigured(ctx, db)
	if err != nil || !configured {
		return nil, err
	}

	vs, err := e.store.GetAllVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	return vs.All(), nil
}

// phaseScripts locates the scripts of a maintenance directory and resolves
// their tokens before anything runs.
func (e *Engine) phaseScripts(dir string) ([]workspace.ScriptFile, error) {
	scripts, err := e.locator.Phase(dir)
	if err != nil {
		return nil, invalid(err)
	}

	for _, s := range scripts {
		if _, err := e.exec.Prepare(s, e.reserved); err != nil {
			return nil, invalid(err)
		}
	}

	return scripts, nil
}
