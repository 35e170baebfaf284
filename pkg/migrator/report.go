package migrator

import (
	"time"
)

// Report summarizes a run.
type Report struct {
	// RunID identifies the run in log records.
	RunID string

	// Strategy is the transaction strategy that was used.
	Strategy Strategy

	// VerifyOnly is set when every change was rolled back.
	VerifyOnly bool

	// DatabaseCreated and TrackingCreated record the bootstrap steps taken.
	DatabaseCreated bool
	TrackingCreated bool

	// Phases lists the directories that ran, in order.
	Phases []string

	// Versions lists the versions applied.
	Versions []string

	// Resumed is the version resumed after a previous failure, if any.
	Resumed string

	Scripts    int
	Statements int
	Rows       int
	Duration   time.Duration
}

func (r *Report) add(phase string, statements, rows int) {
	if len(r.Phases) == 0 || r.Phases[len(r.Phases)-1] != phase {
		r.Phases = append(r.Phases, phase)
	}

	r.Scripts++
	r.Statements += statements
	r.Rows += rows
}
