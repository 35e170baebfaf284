// Package parser splits SQL scripts into the statements or batches that are
// sent to the database one at a time.
//
// Scripts are tokenized with a participle lexer (github.com/alecthomas/participle/v2)
// so that separators inside string literals, quoted identifiers and comments
// are never mistaken for statement boundaries.
//
// Two modes are supported:
//
//   - Batch mode (the default): a line holding only the separator word, GO by
//     default, ends a batch. Everything between separators is one batch.
//   - Terminator mode: every top level semicolon ends a statement and is
//     dropped from it, which is how ClickHouse expects scripts to be sent.
//
// Either mode can also read PostgreSQL dollar quoted bodies ($$...$$ or
// $tag$...$tag$) as single literals with Options.DollarQuotes.
//
// Batches made only of whitespace and comments are dropped.
//
// Basic usage:
//
//	p := parser.New(parser.Options{})
//	batches, err := p.Split("CREATE TABLE a (id int);\nGO\nINSERT INTO a VALUES (1);\n")
//	// batches == []string{"CREATE TABLE a (id int);", "INSERT INTO a VALUES (1);"}
//
//	ch := parser.New(parser.Options{Terminator: true, BackslashEscapes: true})
//	stmts, err := ch.Split("SELECT 'a;b';\nSELECT 2;")
//	// stmts == []string{"SELECT 'a;b'", "SELECT 2"}
package parser
