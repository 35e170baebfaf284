// Package bulk loads CSV files into database tables with batched multi-row
// INSERT statements.
//
// The first record of a file is the header and names the target columns. The
// literal value NULL (in any case) is sent as a SQL NULL, every other value is
// sent as text and converted by the database.
package bulk

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/consts"
)

type (
	// Execer runs a statement. Satisfied by *sql.DB, *sql.Conn and *sql.Tx.
	Execer interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	}

	// Options configure an Importer.
	Options struct {
		// Separator is the field delimiter. "\t" or "tab" select a tab. Defaults
		// to a comma.
		Separator string

		// BatchSize is the number of rows per INSERT. Defaults to 500.
		BatchSize int

		// Placeholder renders the n-th (1 based) bind parameter of a statement.
		// Defaults to ?.
		Placeholder func(n int) string

		// Quote quotes a table or column identifier. Defaults to double quotes.
		Quote func(name string) string
	}

	// Importer loads CSV data into a table.
	Importer struct {
		opts  Options
		comma rune
	}
)

// New returns an Importer, applying defaults to unset options.
func New(opts Options) (*Importer, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = consts.DefaultBulkBatchSize
	}

	if opts.Placeholder == nil {
		opts.Placeholder = func(int) string { return "?" }
	}

	if opts.Quote == nil {
		opts.Quote = func(name string) string { return `"` + strings.ReplaceAll(name, `"`, `""`) + `"` }
	}

	comma, err := separatorRune(opts.Separator)
	if err != nil {
		return nil, err
	}

	return &Importer{opts: opts, comma: comma}, nil
}

// Import reads CSV data from r and inserts it into table, returning the number
// of rows inserted. A table name containing a dot is treated as schema.table.
//
// Example:
//
//	imp, _ := bulk.New(bulk.Options{Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }})
//	rows, err := imp.Import(ctx, tx, "people", file)
func (i *Importer) Import(ctx context.Context, q Execer, table string, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.Comma = i.comma
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return 0, errors.Errorf("csv for %s has no header row", table)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read csv header for %s", table)
	}

	columns := make([]string, len(header))
	for idx, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" {
			return 0, errors.Errorf("csv for %s has an empty column name at position %d", table, idx+1)
		}
		columns[idx] = i.opts.Quote(name)
	}

	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", i.quoteTable(table), strings.Join(columns, ", "))

	var (
		total int
		batch [][]string
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		query, args := i.insert(prefix, len(columns), batch)
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrapf(err, "failed to insert rows %d-%d into %s", total+1, total+len(batch), table)
		}

		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, errors.Wrapf(err, "failed to read csv for %s", table)
		}

		batch = append(batch, record)
		if len(batch) >= i.opts.BatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	if err := flush(); err != nil {
		return total, err
	}

	return total, nil
}

func (i *Importer) insert(prefix string, width int, rows [][]string) (string, []any) {
	var (
		sb   strings.Builder
		args = make([]any, 0, width*len(rows))
		n    = 1
	)

	sb.WriteString(prefix)
	for r, row := range rows {
		if r > 0 {
			sb.WriteString(", ")
		}

		sb.WriteByte('(')
		for c, value := range row {
			if c > 0 {
				sb.WriteString(", ")
			}

			sb.WriteString(i.opts.Placeholder(n))
			n++

			if strings.EqualFold(value, "NULL") {
				args = append(args, nil)
			} else {
				args = append(args, value)
			}
		}
		sb.WriteByte(')')
	}

	return sb.String(), args
}

func (i *Importer) quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for idx, part := range parts {
		parts[idx] = i.opts.Quote(part)
	}

	return strings.Join(parts, ".")
}

func separatorRune(sep string) (rune, error) {
	switch sep {
	case "":
		return ',', nil
	case `\t`, "tab", "\t":
		return '\t', nil
	}

	r, size := utf8.DecodeRuneInString(sep)
	if r == utf8.RuneError || size != len(sep) || r == '"' || r == '\r' || r == '\n' {
		return 0, errors.Errorf("invalid csv separator %q", sep)
	}

	return r, nil
}
