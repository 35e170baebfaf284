// Package platform defines what the migration engine needs from a database
// platform.
//
// Each supported database lives in a sub-package (postgres, sqlite,
// clickhouse) and is looked up by name through the registry package. Adapters
// are linked statically, there is no runtime plugin loading.
package platform

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/bulk"
	"github.com/pseudomuto/groundskeeper/pkg/tokens"
)

type (
	// Querier executes statements. Satisfied by *sql.DB, *sql.Conn and *sql.Tx,
	// so the same code runs inside or outside a transaction.
	Querier interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	}

	// Platform is a database the engine can migrate.
	Platform interface {
		Dialect

		// Name is the registry identifier, e.g. postgresql.
		Name() string

		// Open connects to the database named in the connection string.
		Open(connStr string) (*sql.DB, error)

		// OpenMaster connects to the administrative database of the server, used
		// to check for, create and drop the target database.
		OpenMaster(connStr string) (*sql.DB, error)

		// DatabaseName extracts the target database from the connection string.
		DatabaseName(connStr string) (string, error)

		// ServerVersion reports the version of the database server.
		ServerVersion(ctx context.Context, q Querier) (string, error)

		// IsAtomicDDLSupported reports whether DDL statements can be rolled back
		// as part of a transaction.
		IsAtomicDDLSupported() bool

		// BreakStatements splits a script into statements the driver can run one
		// at a time.
		BreakStatements(script string) ([]string, error)

		// TryParseError extracts the server message from a driver error.
		TryParseError(err error) (string, bool)

		// BulkImporter returns a CSV importer using this platform's bind
		// parameters and identifier quoting.
		BulkImporter(opts bulk.Options) (*bulk.Importer, error)
	}

	// Dialect holds the SQL used to manage the tracking table. Templates may use
	// the reserved tokens GK_DB_NAME, GK_SCHEMA_NAME and GK_TABLE_NAME, which are
	// replaced with quoted identifiers by Render.
	Dialect interface {
		// IsSchemaSupported reports whether tables live in schemas within a
		// database.
		IsSchemaSupported() bool

		// DefaultSchema is the schema used when none is configured.
		DefaultSchema() string

		// QuoteIdentifier quotes a single identifier.
		QuoteIdentifier(name string) string

		// Placeholder renders the n-th (1 based) bind parameter.
		Placeholder(n int) string

		// DatabaseExistsSQL returns a row when the database named by the single
		// bind parameter exists. Run on the master connection.
		DatabaseExistsSQL() string

		// CreateDatabaseSQL creates GK_DB_NAME. Run on the master connection.
		CreateDatabaseSQL() string

		// TableExistsSQL returns a row when the table exists. Its two bind
		// parameters are the schema (or database when schemas are not supported)
		// and the table name.
		TableExistsSQL() string

		// ConfigureSQL creates the tracking table.
		ConfigureSQL() []string

		// SelectVersionsSQL selects sequence_id, version, applied_on,
		// applied_by_user, applied_by_tool, applied_by_tool_version, status,
		// duration_ms, failed_script_path, failed_script_error and
		// additional_artifacts ordered by sequence_id.
		SelectVersionsSQL() string

		// InsertVersionSQL inserts a row. Bind parameters, in order: version,
		// applied_on, applied_by_user, applied_by_tool, applied_by_tool_version,
		// status, duration_ms, failed_script_path, failed_script_error,
		// additional_artifacts.
		InsertVersionSQL() string

		// UpdateVersionSQL updates the row of a version, taking the same
		// parameters as InsertVersionSQL.
		UpdateVersionSQL() string
	}

	// Target names the tracking table of a run.
	Target struct {
		Database string
		Schema   string
		Table    string
	}
)

// Render replaces the reserved identifier tokens of a dialect template with
// the quoted names of the target.
func Render(d Dialect, t Target, template string) (string, error) {
	reserved := tokens.Reserved{
		Database: quoted(d, t.Database),
		Schema:   quoted(d, t.Schema),
		Table:    quoted(d, t.Table),
	}

	out, err := tokens.Replace(reserved.Tokens(), template)
	if err != nil {
		return "", errors.Wrap(err, "failed to render platform statement")
	}

	return out, nil
}

func quoted(d Dialect, name string) string {
	if name == "" {
		return ""
	}

	return d.QuoteIdentifier(name)
}
