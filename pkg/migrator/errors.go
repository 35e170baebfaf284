package migrator

import (
	"fmt"
	"strings"
)

type (
	// ValidationError is returned when the workspace or configuration cannot be
	// run. It is always raised before the database is changed.
	ValidationError struct {
		Reason string
		Err    error
	}

	// PlatformCapabilityError is returned when the run asks for something the
	// platform cannot guarantee.
	PlatformCapabilityError struct {
		Platform string
		Reason   string
	}

	// ExecutionError is returned when a script fails while running.
	ExecutionError struct {
		// Phase is the directory being run, e.g. _pre or v1.00.
		Phase string

		// Version is empty outside version directories.
		Version string

		// Script is the workspace relative path of the failing script.
		Script string

		// Statement is the 1 based index of the failing statement, 0 when the
		// script failed as a whole.
		Statement int

		// Message is the platform's description of the failure.
		Message string

		Err error
	}

	// ResumeProtocolError is returned when a previous failure and the
	// continue-after-failure setting do not agree.
	ResumeProtocolError struct {
		Version string
		Script  string
		Reason  string
	}
)

func (e *ValidationError) Error() string {
	switch {
	case e.Err == nil:
		return "invalid workspace: " + e.Reason
	case e.Reason == "":
		return "invalid workspace: " + e.Err.Error()
	default:
		return fmt.Sprintf("invalid workspace: %s: %v", e.Reason, e.Err)
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *PlatformCapabilityError) Error() string {
	return fmt.Sprintf("platform %s: %s", e.Platform, e.Reason)
}

func (e *ExecutionError) Error() string {
	var sb strings.Builder
	sb.WriteString("failed to run ")
	sb.WriteString(e.Script)
	if e.Statement > 0 {
		fmt.Fprintf(&sb, " (statement %d)", e.Statement)
	}
	if e.Version != "" {
		fmt.Fprintf(&sb, " in version %s", e.Version)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)

	return sb.String()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func (e *ResumeProtocolError) Error() string {
	if e.Version == "" {
		return e.Reason
	}

	return fmt.Sprintf("version %s failed at %s: %s", e.Version, e.Script, e.Reason)
}
