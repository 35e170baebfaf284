// Package sqlite implements the SQLite platform on the pure Go
// modernc.org/sqlite driver.
//
// The connection string is a database file path, optionally prefixed with
// file: and followed by query parameters. Opening a missing file creates it,
// so the database always exists.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/bulk"
	"github.com/pseudomuto/groundskeeper/pkg/parser"
	"github.com/pseudomuto/groundskeeper/pkg/platform"
	"modernc.org/sqlite"
)

// Name is the registry identifier.
const Name = "sqlite"

const (
	configureSQL = `CREATE TABLE IF NOT EXISTS ${GK_TABLE_NAME} (
    sequence_id INTEGER PRIMARY KEY AUTOINCREMENT,
    version TEXT NOT NULL UNIQUE,
    applied_on DATETIME NOT NULL,
    applied_by_user TEXT NOT NULL,
    applied_by_tool TEXT NOT NULL,
    applied_by_tool_version TEXT NOT NULL,
    status TEXT NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    failed_script_path TEXT NULL,
    failed_script_error TEXT NULL,
    additional_artifacts TEXT NULL
)`

	selectVersionsSQL = `SELECT sequence_id, version, applied_on, applied_by_user, applied_by_tool,
    applied_by_tool_version, status, duration_ms, failed_script_path, failed_script_error,
    additional_artifacts
FROM ${GK_TABLE_NAME}
ORDER BY sequence_id`

	insertVersionSQL = `INSERT INTO ${GK_TABLE_NAME} (version, applied_on, applied_by_user, applied_by_tool,
    applied_by_tool_version, status, duration_ms, failed_script_path, failed_script_error,
    additional_artifacts)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?9, ?10)`

	updateVersionSQL = `UPDATE ${GK_TABLE_NAME}
SET applied_on = ?2, applied_by_user = ?3, applied_by_tool = ?4, applied_by_tool_version = ?5,
    status = ?6, duration_ms = ?7, failed_script_path = ?8, failed_script_error = ?9,
    additional_artifacts = ?10
WHERE version = ?1`
)

// Platform is the SQLite adapter.
type Platform struct {
	parser *parser.Parser
}

var _ platform.Platform = (*Platform)(nil)

// New returns the SQLite platform.
func New() *Platform {
	return &Platform{parser: parser.New(parser.Options{})}
}

func (p *Platform) Name() string { return Name }

func (p *Platform) Open(connStr string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}

	return db, nil
}

// OpenMaster opens the database itself, SQLite has no server level catalog.
func (p *Platform) OpenMaster(connStr string) (*sql.DB, error) {
	return p.Open(connStr)
}

// DatabaseName returns the file name without directory or extension.
func (p *Platform) DatabaseName(connStr string) (string, error) {
	path := strings.TrimPrefix(connStr, "file:")
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}

	if path == "" {
		return "", errors.New("sqlite connection string has no file path")
	}

	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

func (p *Platform) ServerVersion(ctx context.Context, q platform.Querier) (string, error) {
	var v string
	if err := q.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v); err != nil {
		return "", errors.Wrap(err, "failed to query sqlite version")
	}

	return v, nil
}

func (p *Platform) IsAtomicDDLSupported() bool { return true }

func (p *Platform) IsSchemaSupported() bool { return false }

func (p *Platform) DefaultSchema() string { return "" }

func (p *Platform) BreakStatements(script string) ([]string, error) {
	return p.parser.Split(script)
}

func (p *Platform) TryParseError(err error) (string, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Error(), true
	}

	return "", false
}

func (p *Platform) BulkImporter(opts bulk.Options) (*bulk.Importer, error) {
	opts.Placeholder = p.Placeholder
	opts.Quote = p.QuoteIdentifier
	return bulk.New(opts)
}

func (p *Platform) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (p *Platform) Placeholder(n int) string {
	return fmt.Sprintf("?%d", n)
}

func (p *Platform) DatabaseExistsSQL() string {
	return "SELECT 1 WHERE ?1 IS NOT NULL"
}

func (p *Platform) CreateDatabaseSQL() string {
	return "SELECT 1"
}

func (p *Platform) TableExistsSQL() string {
	return "SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?2 AND ?1 IS NOT NULL"
}

func (p *Platform) ConfigureSQL() []string {
	return []string{configureSQL}
}

func (p *Platform) SelectVersionsSQL() string { return selectVersionsSQL }

func (p *Platform) InsertVersionSQL() string { return insertVersionSQL }

func (p *Platform) UpdateVersionSQL() string { return updateVersionSQL }
