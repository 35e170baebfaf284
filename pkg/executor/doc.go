// Package executor runs individual workspace scripts against a database.
//
// A SQL script is read from disk, its ${NAME} tokens are resolved, it is split
// into statements by the platform, and each statement is executed with its own
// command timeout. A CSV script is loaded into the table named after the file
// through the platform's bulk importer.
//
// The executor never decides transaction boundaries. It runs every statement
// on the Querier it is handed, which may be a transaction, a dedicated
// connection, or the connection pool.
//
// Example usage:
//
//	exec, err := executor.New(executor.Config{
//		Platform:       p,
//		Tokens:         []tokens.Token{{Key: "OWNER", Value: "app"}},
//		CommandTimeout: 30 * time.Second,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := exec.Run(ctx, tx, script, tokens.Reserved{Version: "v1.00"})
//	if err != nil {
//		var scriptErr *executor.ScriptError
//		if errors.As(err, &scriptErr) {
//			fmt.Printf("%s failed at statement %d: %s\n", scriptErr.Path, scriptErr.Statement, scriptErr.Message)
//		}
//	}
package executor
