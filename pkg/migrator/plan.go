package migrator

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/metadata"
	"github.com/pseudomuto/groundskeeper/pkg/tokens"
	"github.com/pseudomuto/groundskeeper/pkg/version"
	"github.com/pseudomuto/groundskeeper/pkg/workspace"
)

type (
	// plan is everything a run will consider, read from the workspace before
	// the database is touched.
	plan struct {
		init, pre, draft, post []workspace.ScriptFile

		// versions holds the version directories up to the target, ascending.
		versions []*versionPlan
		target   *version.Local
	}

	versionPlan struct {
		version version.Local
		name    string

		// explicitTx is set when the scripts live in a _transaction directory.
		explicitTx bool

		// scripts are in execution order: subdirectories depth first, then
		// each level's SQL followed by its CSV files.
		scripts []workspace.ScriptFile
		sum     *workspace.SumFile
	}
)

// buildPlan reads and validates the workspace layout.
func (e *Engine) buildPlan() (*plan, error) {
	p := new(plan)

	phases := []struct {
		name string
		dest *[]workspace.ScriptFile
	}{
		{name: workspace.InitDir, dest: &p.init},
		{name: workspace.PreDir, dest: &p.pre},
		{name: workspace.DraftDir, dest: &p.draft},
		{name: workspace.PostDir, dest: &p.post},
	}

	for _, ph := range phases {
		scripts, err := e.locator.Phase(ph.name)
		if err != nil {
			return nil, invalid(err)
		}

		*ph.dest = scripts
	}

	if e.cfg.RequireClearedDraft && len(p.draft) > 0 {
		paths := make([]string, len(p.draft))
		for i, s := range p.draft {
			paths[i] = s.RelPath
		}

		return nil, invalid(&workspace.ValidationError{
			Reason: "draft scripts must be moved into a version before running",
			Paths:  paths,
		})
	}

	local, err := e.ws.Versions()
	if err != nil {
		return nil, invalid(err)
	}

	target, err := e.resolveTarget(local)
	if err != nil {
		return nil, err
	}
	p.target = target

	for _, v := range local {
		if target == nil || target.Less(v) {
			continue
		}

		vp, err := e.planVersion(v)
		if err != nil {
			return nil, err
		}

		p.versions = append(p.versions, vp)
	}

	return p, nil
}

// resolveTarget returns the configured target version, or the latest local
// version when none is configured. It returns nil for a workspace without
// versions.
func (e *Engine) resolveTarget(local []version.Local) (*version.Local, error) {
	if e.cfg.TargetVersion == "" {
		latest, ok := version.Latest(local)
		if !ok {
			return nil, nil
		}

		return &latest, nil
	}

	target, err := version.Parse(e.cfg.TargetVersion)
	if err != nil {
		return nil, &ValidationError{Reason: "invalid target version", Err: err}
	}

	for _, v := range local {
		if version.Compare(v, target) == 0 {
			return &target, nil
		}
	}

	return nil, &ValidationError{Reason: "target version " + target.String() + " does not exist in the workspace"}
}

func (e *Engine) planVersion(v version.Local) (*versionPlan, error) {
	vp := &versionPlan{version: v, name: v.String()}
	dir := e.ws.VersionDir(v)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() && entry.Name() == workspace.TransactionDir {
			vp.explicitTx = true
		}
	}

	if vp.explicitTx {
		if len(entries) != 1 {
			return nil, invalid(&workspace.ValidationError{
				Reason: "a version with a " + workspace.TransactionDir + " directory cannot contain anything else",
				Paths:  []string{vp.name},
			})
		}

		dir = filepath.Join(dir, workspace.TransactionDir)
	}

	vp.scripts, err = e.collect(dir, v, true)
	if err != nil {
		return nil, err
	}

	vp.sum, err = workspace.Checksum(vp.scripts)
	if err != nil {
		return nil, err
	}

	return vp, nil
}

// collect returns the scripts below dir in execution order.
func (e *Engine) collect(dir string, v version.Local, root bool) ([]workspace.ScriptFile, error) {
	subdirs, err := e.locator.Subdirectories(dir)
	if err != nil {
		return nil, err
	}

	var scripts []workspace.ScriptFile
	for _, sub := range subdirs {
		if filepath.Base(sub) == workspace.TransactionDir && !root {
			return nil, invalid(&workspace.ValidationError{
				Reason: workspace.TransactionDir + " is only allowed directly inside a version directory",
				Paths:  []string{sub},
			})
		}

		nested, err := e.collect(sub, v, false)
		if err != nil {
			return nil, err
		}

		scripts = append(scripts, nested...)
	}

	level, err := e.locator.Scripts(dir, v)
	if err != nil {
		return nil, invalid(err)
	}

	return append(scripts, level...), nil
}

// pending returns the versions not yet applied, in order.
func (p *plan) pending(applied *metadata.VersionSet) []*versionPlan {
	out := make([]*versionPlan, 0, len(p.versions))
	for _, vp := range p.versions {
		if !applied.IsApplied(vp.name) {
			out = append(out, vp)
		}
	}

	return out
}

func (p *plan) version(name string) *versionPlan {
	for _, vp := range p.versions {
		if vp.name == name {
			return vp
		}
	}

	return nil
}

func (vp *versionPlan) hasScript(rel string) bool {
	for _, s := range vp.scripts {
		if s.RelPath == rel {
			return true
		}
	}

	return false
}

// prepare resolves the tokens of every script that is going to run so that a
// missing token fails the run before anything is executed.
func (e *Engine) prepare(p *plan, pending []*versionPlan, initialize bool) error {
	check := func(scripts []workspace.ScriptFile, reserved tokens.Reserved) error {
		for _, s := range scripts {
			if s.Kind != workspace.SQL {
				continue
			}

			if _, err := e.exec.Prepare(s, reserved); err != nil {
				return invalid(err)
			}
		}

		return nil
	}

	phases := [][]workspace.ScriptFile{p.pre, p.draft, p.post}
	if initialize {
		phases = append(phases, p.init)
	}

	for _, scripts := range phases {
		if err := check(scripts, e.reserved); err != nil {
			return err
		}
	}

	for _, vp := range pending {
		if err := check(vp.scripts, e.versionTokens(vp)); err != nil {
			return err
		}
	}

	return nil
}

func invalid(err error) error {
	return &ValidationError{Err: err}
}
