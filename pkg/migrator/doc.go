// Package migrator applies a workspace of versioned scripts to a database.
//
// A run moves through fixed phases: _init (only when the tracking table is
// created by the run), _pre, every pending version up to the target in
// ascending order, _draft and finally _post. Inside a version directory the
// subdirectories run first, depth first, and each directory level runs its
// SQL scripts before its CSV imports. Every applied version is recorded in the
// tracking table so a second run skips it.
//
// Transactions are selected by the run's transaction mode:
//   - session: the whole run is one transaction, any failure rolls back all of
//     it and nothing is recorded.
//   - version: every version (and every other phase) is its own transaction,
//     so a failure only rolls back the version that failed.
//   - none: statements commit on their own. A failure is recorded as a Failed
//     version naming the script, and a later run with continue-after-failure
//     skips the scripts up to and including that one.
//
// Platforms without transactional DDL always use none. On those platforms a
// version may put its scripts in a _transaction directory to run them in one
// transaction anyway.
//
// Everything that can be checked without the database (version names,
// environment tags, sequence files, tokens, the draft policy) is checked
// before the database is changed.
//
// Example usage:
//
//	engine, err := migrator.New(cfg, platform, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	report, err := engine.Run(ctx)
//	if err != nil {
//		var execErr *migrator.ExecutionError
//		if errors.As(err, &execErr) {
//			log.Fatalf("%s failed: %s", execErr.Script, execErr.Message)
//		}
//
//		log.Fatal(err)
//	}
//
//	fmt.Printf("applied %d versions\n", len(report.Versions))
package migrator
