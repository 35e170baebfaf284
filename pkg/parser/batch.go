package parser

import (
	"iter"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// DefaultSeparator is the batch separator used when none is configured.
const DefaultSeparator = "GO"

const (
	standardStrings  = `'(?:[^']|'')*'?`
	backslashStrings = `'(?:[^'\\]|\\(?s:.)|'')*'?`
)

var (
	// batchLexer tokenizes scripts using the standard SQL doubled quote escape.
	batchLexer = lexer.MustSimple(batchRules(standardStrings, false))

	// backslashLexer additionally treats \' as an escaped quote inside strings.
	backslashLexer = lexer.MustSimple(batchRules(backslashStrings, false))

	// dollarLexer additionally reads PostgreSQL $tag$...$tag$ bodies as one
	// literal.
	dollarLexer = dollarQuoted(standardStrings)
)

func batchRules(stringPattern string, dollar bool) []lexer.SimpleRule {
	word := "[^\\s'\"`;/\\-]+"
	if dollar {
		word = "[^\\s'\"`;/\\-$]+"
	}

	return []lexer.SimpleRule{
		{Name: "Comment", Pattern: `--[^\n]*`},
		{Name: "MultilineComment", Pattern: `/\*[^*]*\*+([^/*][^*]*\*+)*/`},
		{Name: "OpenComment", Pattern: `/\*(?s:.*)`},
		{Name: "String", Pattern: stringPattern},
		{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"?`},
		{Name: "BacktickIdent", Pattern: "`(?:[^`]|``)*`?"},
		{Name: "Newline", Pattern: `\n`},
		{Name: "Whitespace", Pattern: `[^\S\n]+`},
		{Name: "Terminator", Pattern: `;`},
		{Name: "Word", Pattern: word},
		{Name: "Char", Pattern: `.`},
	}
}

// dollarQuoted builds a lexer that enters a DollarQuote state on $$ or $tag$
// and leaves it only on the same delimiter. An unterminated body runs to EOF.
func dollarQuoted(stringPattern string) *lexer.StatefulDefinition {
	root := []lexer.Rule{
		{Name: "DollarQuote", Pattern: `\$([A-Za-z_]\w*|)\$`, Action: lexer.Push("DollarQuote")},
	}

	for _, r := range batchRules(stringPattern, true) {
		root = append(root, lexer.Rule{Name: r.Name, Pattern: r.Pattern})
	}

	return lexer.MustStateful(lexer.Rules{
		"Root": root,
		"DollarQuote": {
			{Name: "DollarEnd", Pattern: `\$\1\$`, Action: lexer.Pop()},
			{Name: "DollarBody", Pattern: `[^$]+|\$`},
		},
	})
}

type (
	// Options control how a script is broken into statements.
	Options struct {
		// Separator is the word that, alone on a line, ends a batch. Ignored when
		// Terminator is set. Defaults to GO.
		Separator string

		// Terminator splits on every top level semicolon instead of separator
		// lines. The semicolon is not part of the emitted statement.
		Terminator bool

		// BackslashEscapes treats \' inside string literals as an escaped quote.
		BackslashEscapes bool

		// DollarQuotes reads PostgreSQL dollar quoted bodies ($$...$$ or
		// $tag$...$tag$) as single literals.
		DollarQuotes bool
	}

	// Parser splits SQL scripts into executable statements while ignoring
	// separators that appear inside comments, string literals or quoted
	// identifiers.
	Parser struct {
		opts    Options
		def     *lexer.StatefulDefinition
		symbols symbols
	}

	symbols struct {
		comment, multiline, open lexer.TokenType
		newline, whitespace      lexer.TokenType
		terminator, word         lexer.TokenType
	}

	line struct {
		tokens  []lexer.Token
		newline bool
	}
)

// New creates a Parser with the given options.
//
// Example usage:
//
//	p := parser.New(parser.Options{Separator: "GO"})
//	for stmt, err := range p.Statements(script) {
//		if err != nil {
//			return err
//		}
//
//		if _, err := db.ExecContext(ctx, stmt); err != nil {
//			return err
//		}
//	}
func New(opts Options) *Parser {
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}

	var def *lexer.StatefulDefinition
	switch {
	case opts.DollarQuotes && opts.BackslashEscapes:
		def = dollarQuoted(backslashStrings)
	case opts.DollarQuotes:
		def = dollarLexer
	case opts.BackslashEscapes:
		def = backslashLexer
	default:
		def = batchLexer
	}

	syms := def.Symbols()
	return &Parser{
		opts: opts,
		def:  def,
		symbols: symbols{
			comment:    syms["Comment"],
			multiline:  syms["MultilineComment"],
			open:       syms["OpenComment"],
			newline:    syms["Newline"],
			whitespace: syms["Whitespace"],
			terminator: syms["Terminator"],
			word:       syms["Word"],
		},
	}
}

// Split returns every statement of script in source order.
func (p *Parser) Split(script string) ([]string, error) {
	var out []string
	for stmt, err := range p.Statements(script) {
		if err != nil {
			return nil, err
		}

		out = append(out, stmt)
	}

	return out, nil
}

// Statements returns a lazy sequence of the statements in script. Each range
// over the sequence lexes the script again from the start.
//
// Statements are trimmed and never empty. Lines holding only comments are
// dropped, so a batch made only of comments produces nothing. A script with no
// separator at all is returned as a single statement.
func (p *Parser) Statements(script string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		lex, err := p.def.LexString("", script)
		if err != nil {
			yield("", errors.Wrap(err, "failed to tokenize script"))
			return
		}

		var (
			buf     strings.Builder
			hasCode bool
		)

		flush := func() bool {
			stmt := strings.TrimSpace(buf.String())
			code := hasCode
			buf.Reset()
			hasCode = false

			if !code || stmt == "" {
				return true
			}

			return yield(stmt, nil)
		}

		for {
			ln, done, err := p.nextLine(lex)
			if err != nil {
				yield("", errors.Wrap(err, "failed to tokenize script"))
				return
			}

			switch {
			case !p.opts.Terminator && p.isSeparator(ln):
				if !flush() {
					return
				}
			case p.isCommentOnly(ln):
			default:
				for _, tok := range ln.tokens {
					if p.opts.Terminator && tok.Type == p.symbols.terminator {
						if !flush() {
							return
						}

						continue
					}

					buf.WriteString(tok.Value)
					if !p.isTrivia(tok) {
						hasCode = true
					}
				}

				if ln.newline {
					buf.WriteByte('\n')
				}
			}

			if done {
				flush()
				return
			}
		}
	}
}

// nextLine reads tokens up to and including the next newline token. Comments
// and strings spanning several physical lines stay on the line they start on.
func (p *Parser) nextLine(lex lexer.Lexer) (line, bool, error) {
	var ln line
	for {
		tok, err := lex.Next()
		if err != nil {
			return ln, true, err
		}

		if tok.EOF() {
			return ln, true, nil
		}

		if tok.Type == p.symbols.newline {
			ln.newline = true
			return ln, false, nil
		}

		ln.tokens = append(ln.tokens, tok)
	}
}

func (p *Parser) isSeparator(ln line) bool {
	var word *lexer.Token
	for i := range ln.tokens {
		tok := &ln.tokens[i]
		if tok.Type == p.symbols.whitespace {
			continue
		}

		if word != nil || tok.Type != p.symbols.word {
			return false
		}

		word = tok
	}

	return word != nil && strings.EqualFold(word.Value, p.opts.Separator)
}

func (p *Parser) isCommentOnly(ln line) bool {
	comments := 0
	for _, tok := range ln.tokens {
		switch tok.Type {
		case p.symbols.whitespace:
		case p.symbols.comment, p.symbols.multiline, p.symbols.open:
			comments++
		default:
			return false
		}
	}

	return comments > 0
}

func (p *Parser) isTrivia(tok lexer.Token) bool {
	switch tok.Type {
	case p.symbols.whitespace, p.symbols.comment, p.symbols.multiline, p.symbols.open:
		return true
	default:
		return false
	}
}
