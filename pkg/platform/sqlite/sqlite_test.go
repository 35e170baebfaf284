package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/groundskeeper/pkg/platform"
	. "github.com/pseudomuto/groundskeeper/pkg/platform/sqlite"
	"github.com/stretchr/testify/require"
)

func TestDatabaseName(t *testing.T) {
	p := New()

	tests := []struct {
		connStr string
		want    string
	}{
		{connStr: "app.db", want: "app"},
		{connStr: "/var/data/app.sqlite", want: "app"},
		{connStr: "file:data/orders.db?_pragma=foreign_keys(1)", want: "orders"},
	}

	for _, tt := range tests {
		t.Run(tt.connStr, func(t *testing.T) {
			got, err := p.DatabaseName(tt.connStr)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := p.DatabaseName("file:")
	require.Error(t, err)
}

func TestConfigureAndQuery(t *testing.T) {
	ctx := context.Background()
	p := New()
	target := platform.Target{Database: "app", Table: "__versions"}

	db, err := p.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	v, err := p.ServerVersion(ctx, db)
	require.NoError(t, err)
	require.NotEmpty(t, v)

	exists, err := platform.Render(p, target, p.TableExistsSQL())
	require.NoError(t, err)

	rows, err := db.QueryContext(ctx, exists, target.Database, target.Table)
	require.NoError(t, err)
	require.False(t, rows.Next())
	require.NoError(t, rows.Close())

	for _, stmt := range p.ConfigureSQL() {
		sql, err := platform.Render(p, target, stmt)
		require.NoError(t, err)
		require.Contains(t, sql, `"__versions"`)

		_, err = db.ExecContext(ctx, sql)
		require.NoError(t, err)
	}

	var one int
	require.NoError(t, db.QueryRowContext(ctx, exists, target.Database, target.Table).Scan(&one))
	require.Equal(t, 1, one)
}

func TestTryParseError(t *testing.T) {
	ctx := context.Background()
	p := New()

	db, err := p.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)

	msg, ok := p.TryParseError(err)
	require.True(t, ok)
	require.Contains(t, msg, "missing_table")

	_, ok = p.TryParseError(context.Canceled)
	require.False(t, ok)
}

func TestBreakStatements(t *testing.T) {
	stmts, err := New().BreakStatements("CREATE TABLE a (id INT);\nGO\nCREATE TABLE b (id INT);\n")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
}
