package migrator_test

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/groundskeeper/pkg/config"
	"github.com/pseudomuto/groundskeeper/pkg/metadata"
	"github.com/pseudomuto/groundskeeper/pkg/migrator"
	"github.com/pseudomuto/groundskeeper/pkg/platform"
	"github.com/pseudomuto/groundskeeper/pkg/platform/sqlite"
	"github.com/pseudomuto/groundskeeper/pkg/testutil"
	"github.com/stretchr/testify/require"
)

type (
	// nonAtomic is SQLite pretending DDL cannot be rolled back, which is how
	// the engine sees ClickHouse.
	nonAtomic struct {
		*sqlite.Platform
	}

	// missingDatabase is SQLite reporting that the target database does not
	// exist yet.
	missingDatabase struct {
		*sqlite.Platform
	}

	// fixture is a workspace and the SQLite database it is applied to.
	fixture struct {
		t      *testing.T
		root   string
		dbPath string
		p      platform.Platform
		logs   *bytes.Buffer
	}
)

func (nonAtomic) IsAtomicDDLSupported() bool { return false }

func (missingDatabase) DatabaseExistsSQL() string { return "SELECT 1 WHERE ?1 IS NULL" }

func newFixture(t *testing.T, files testutil.Files) *fixture {
	t.Helper()

	return &fixture{
		t:      t,
		root:   testutil.WriteWorkspace(t, files),
		dbPath: filepath.Join(t.TempDir(), "app.db"),
		p:      sqlite.New(),
		logs:   new(bytes.Buffer),
	}
}

func (f *fixture) config(modify ...func(*config.Config)) config.Config {
	cfg := config.Config{
		Workspace:            f.root,
		Platform:             f.p.Name(),
		ConnectionString:     f.dbPath,
		AppliedByToolVersion: "test",
		Tokens:               map[string]string{"OWNER": "app"},
	}

	for _, m := range modify {
		m(&cfg)
	}

	return cfg
}

func (f *fixture) engine(modify ...func(*config.Config)) *migrator.Engine {
	f.t.Helper()

	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	engine, err := migrator.New(f.config(modify...), f.p, logger)
	require.NoError(f.t, err)

	return engine
}

func (f *fixture) run(modify ...func(*config.Config)) (*migrator.Report, error) {
	f.t.Helper()
	return f.engine(modify...).Run(context.Background())
}

func (f *fixture) write(files testutil.Files) {
	f.t.Helper()
	testutil.WriteFiles(f.t, f.root, files)
}

func (f *fixture) db() *sql.DB {
	f.t.Helper()

	db, err := f.p.Open(f.dbPath)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { _ = db.Close() })

	return db
}

func (f *fixture) tableExists(name string) bool {
	f.t.Helper()

	rows, err := f.db().Query("SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?", name)
	require.NoError(f.t, err)
	defer func() { _ = rows.Close() }()

	return rows.Next()
}

func (f *fixture) versions() []*metadata.DbVersion {
	f.t.Helper()

	rows, err := f.engine().List(context.Background())
	require.NoError(f.t, err)

	return rows
}

func (f *fixture) strings(query string) []string {
	f.t.Helper()

	rows, err := f.db().Query(query)
	require.NoError(f.t, err)
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(f.t, rows.Scan(&s))
		out = append(out, s)
	}

	require.NoError(f.t, rows.Err())
	return out
}

func (f *fixture) runLog() []string {
	return f.strings("SELECT entry FROM run_log ORDER BY id")
}

func withMode(mode config.TransactionMode) func(*config.Config) {
	return func(c *config.Config) { c.TransactionMode = mode }
}

func withTarget(v string) func(*config.Config) {
	return func(c *config.Config) { c.TargetVersion = v }
}

func continueAfterFailure(c *config.Config) { c.ContinueAfterFailure = true }

func verifyOnly(c *config.Config) { c.VerifyOnly = true }
