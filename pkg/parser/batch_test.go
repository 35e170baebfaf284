package parser_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/pseudomuto/groundskeeper/pkg/parser"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func TestStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "separator lines",
			script: "SELECT 1;\nSELECT 2;\nGO\n\n--GO\nSELECT 3;\nGO\n",
			want:   []string{"SELECT 1;\nSELECT 2;", "SELECT 3;"},
		},
		{
			name:   "no separator",
			script: "CREATE TABLE t (id INT);\nINSERT INTO t VALUES (1);",
			want:   []string{"CREATE TABLE t (id INT);\nINSERT INTO t VALUES (1);"},
		},
		{
			name:   "separator is case insensitive and may be indented",
			script: "SELECT 1\n  go  \nSELECT 2\r\nGo\r\n",
			want:   []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:   "separator inside line comment",
			script: "SELECT 1 -- GO\nGO",
			want:   []string{"SELECT 1 -- GO"},
		},
		{
			name:   "separator inside block comment",
			script: "/*\nGO\n*/\nSELECT 1\nGO\nSELECT 2",
			want:   []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:   "separator inside string literal",
			script: "SELECT 'a\nGO\nb'\nGO\n",
			want:   []string{"SELECT 'a\nGO\nb'"},
		},
		{
			name:   "separator inside quoted identifier",
			script: "SELECT \"a\nGO\n\" FROM t\nGO",
			want:   []string{"SELECT \"a\nGO\n\" FROM t"},
		},
		{
			name:   "doubled quote escape",
			script: "SELECT 'it''s\nGO\nstill a string'\nGO",
			want:   []string{"SELECT 'it''s\nGO\nstill a string'"},
		},
		{
			name:   "comment only batches are dropped",
			script: "-- header\nGO\n/* nothing */\nGO\n\n\nGO\nSELECT 1",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "block comments do not nest",
			script: "/* outer /* inner */ SELECT 1\nGO",
			want:   []string{"/* outer /* inner */ SELECT 1"},
		},
		{
			name:   "unterminated block comment runs to the end",
			script: "SELECT 1\nGO\n/* open\nGO\nSELECT 2",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "word containing separator",
			script: "SELECT GOAL FROM GOALS\nGO",
			want:   []string{"SELECT GOAL FROM GOALS"},
		},
		{
			name:   "separator followed by other text is not a separator",
			script: "SELECT 1\nGO 5\nSELECT 2",
			want:   []string{"SELECT 1\nGO 5\nSELECT 2"},
		},
		{
			name:   "empty script",
			script: "",
			want:   nil,
		},
	}

	p := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Split(tt.script)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStatementsCustomSeparator(t *testing.T) {
	p := New(Options{Separator: "BATCH"})

	got, err := p.Split("SELECT 1\nGO\nSELECT 2\nbatch\nSELECT 3")
	require.NoError(t, err)
	require.Equal(t, []string{"SELECT 1\nGO\nSELECT 2", "SELECT 3"}, got)
}

func TestStatementsTerminator(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		script string
		want   []string
	}{
		{
			name:   "splits on semicolons",
			script: "CREATE DATABASE a;\nCREATE TABLE a.t (id UInt64) ENGINE = Memory;",
			want:   []string{"CREATE DATABASE a", "CREATE TABLE a.t (id UInt64) ENGINE = Memory"},
		},
		{
			name:   "ignores semicolons in strings and comments",
			script: "SELECT ';' -- a;b\n;\n/* ; */ SELECT `x;y`;",
			want:   []string{"SELECT ';' -- a;b", "/* ; */ SELECT `x;y`"},
		},
		{
			name:   "missing final semicolon",
			script: "SELECT 1; SELECT 2",
			want:   []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:   "empty statements are skipped",
			script: ";;\n  ;SELECT 1;;",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "backslash escapes",
			opts:   Options{BackslashEscapes: true},
			script: `SELECT 'a\';b'; SELECT 2`,
			want:   []string{`SELECT 'a\';b'`, "SELECT 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Terminator = true
			got, err := New(tt.opts).Split(tt.script)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStatementsDollarQuotes(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		script string
		want   []string
	}{
		{
			name:   "apostrophe inside body",
			script: "COMMENT ON TABLE t IS $$don't$$;\nGO\nSELECT 2",
			want:   []string{"COMMENT ON TABLE t IS $$don't$$;", "SELECT 2"},
		},
		{
			name: "tagged body holding separators and other delimiters",
			script: "CREATE FUNCTION f() RETURNS int AS $fn$\nBEGIN\n  -- it's\nGO\n  RETURN $$1$$;\nEND\n$fn$ LANGUAGE plpgsql;\nGO\nSELECT 3",
			want: []string{
				"CREATE FUNCTION f() RETURNS int AS $fn$\nBEGIN\n  -- it's\nGO\n  RETURN $$1$$;\nEND\n$fn$ LANGUAGE plpgsql;",
				"SELECT 3",
			},
		},
		{
			name:   "positional parameters",
			script: "SELECT $1, $2\nGO\nSELECT 2",
			want:   []string{"SELECT $1, $2", "SELECT 2"},
		},
		{
			name:   "unterminated body runs to the end",
			script: "SELECT $$ open\nGO\nSELECT 2",
			want:   []string{"SELECT $$ open\nGO\nSELECT 2"},
		},
		{
			name:   "terminator mode",
			opts:   Options{Terminator: true},
			script: "DO $$ BEGIN PERFORM 1; END $$; SELECT 2;",
			want:   []string{"DO $$ BEGIN PERFORM 1; END $$", "SELECT 2"},
		},
		{
			name:   "with backslash escapes",
			opts:   Options{BackslashEscapes: true},
			script: "SELECT 'a\\'b', $$x'$$\nGO\nSELECT 2",
			want:   []string{"SELECT 'a\\'b', $$x'$$", "SELECT 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.DollarQuotes = true
			got, err := New(tt.opts).Split(tt.script)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStatementsIsRestartable(t *testing.T) {
	seq := New(Options{}).Statements("SELECT 1\nGO\nSELECT 2\nGO\nSELECT 3")

	collect := func() []string {
		var out []string
		for stmt, err := range seq {
			require.NoError(t, err)
			out = append(out, stmt)
		}
		return out
	}

	first := collect()
	require.Equal(t, first, collect())

	// stopping early must not panic or leak state
	for stmt := range seq {
		require.Equal(t, "SELECT 1", stmt)
		break
	}
}

func TestStatementsGolden(t *testing.T) {
	tests := []struct {
		file string
		opts Options
	}{
		{file: "procedure", opts: Options{}},
		{file: "clickhouse", opts: Options{Terminator: true, BackslashEscapes: true}},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			script, err := os.ReadFile(filepath.Join("testdata", "batch", tt.file+".sql"))
			require.NoError(t, err)

			stmts, err := New(tt.opts).Split(string(script))
			require.NoError(t, err)

			var out strings.Builder
			for i, stmt := range stmts {
				fmt.Fprintf(&out, "-- [%d]\n%s\n\n", i+1, stmt)
			}

			golden.Assert(t, out.String(), filepath.Join("batch", tt.file+".golden"))
		})
	}
}
