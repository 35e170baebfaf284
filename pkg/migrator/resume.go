package migrator

import (
	"github.com/pseudomuto/groundskeeper/pkg/metadata"
	"github.com/pseudomuto/groundskeeper/pkg/version"
)

// resumeContext replays a version that failed in an earlier run, skipping the
// scripts up to and including the one that failed.
type resumeContext struct {
	version string
	script  string
	matched bool
}

// resumeFrom checks the tracking table for a failed version and decides how
// the run proceeds.
//
// A failed version stops the run unless continue-after-failure is set. Asking
// to continue with nothing to continue from, or under a strategy that never
// records failures, is an error as well.
func (e *Engine) resumeFrom(p *plan, applied *metadata.VersionSet, strategy Strategy) (*resumeContext, error) {
	failed := applied.Failed()
	proceed := e.cfg.ContinueAfterFailure

	if failed == nil {
		if proceed {
			return nil, &ResumeProtocolError{
				Reason: "continue-after-failure was requested but no failed version is recorded",
			}
		}

		return nil, nil
	}

	script := ""
	if failed.FailedScriptPath != nil {
		script = *failed.FailedScriptPath
	}

	perr := &ResumeProtocolError{Version: failed.Version, Script: script}

	if !proceed {
		perr.Reason = "fix the script and run again with continue-after-failure to resume after it"
		return nil, perr
	}

	if strategy != NoTransaction {
		perr.Reason = "continue-after-failure needs transaction mode none, the run would use " + strategy.String()
		return nil, perr
	}

	failedVersion, err := version.Parse(failed.Version)
	if err != nil {
		perr.Reason = "the recorded version name is invalid"
		return nil, perr
	}

	if p.target == nil || p.target.Less(failedVersion) {
		perr.Reason = "the failed version is above the target version " + targetName(p)
		return nil, perr
	}

	vp := p.version(failed.Version)
	if vp == nil {
		perr.Reason = "the failed version no longer exists in the workspace"
		return nil, perr
	}

	if !vp.hasScript(script) {
		perr.Reason = "the failed script no longer exists in the version"
		return nil, perr
	}

	e.logger.Info("Resuming failed version", "version", failed.Version, "after", script)
	return &resumeContext{version: failed.Version, script: script}, nil
}

// forVersion returns the context when it applies to version.
func (rc *resumeContext) forVersion(version string) *resumeContext {
	if rc == nil || rc.version != version {
		return nil
	}

	return rc
}

// skip reports whether script ran before the failure, marking the context as
// matched once the failed script itself is reached.
func (rc *resumeContext) skip(script string) bool {
	if rc == nil || rc.matched {
		return false
	}

	if script == rc.script {
		rc.matched = true
	}

	return true
}
