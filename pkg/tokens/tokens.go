// Package tokens replaces ${NAME} placeholders in script text.
//
// Replacement is literal and fails fast: once every known token has been
// substituted, any ${...} left in the text is reported as a ResolutionError
// instead of being sent to the database.
package tokens

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Reserved token names supplied by the engine at each call site.
const (
	DatabaseName         = "GK_DB_NAME"
	SchemaName           = "GK_SCHEMA_NAME"
	TableName            = "GK_TABLE_NAME"
	Version              = "GK_VERSION"
	AppliedByTool        = "GK_APPLIED_BY_TOOL"
	AppliedByToolVersion = "GK_APPLIED_BY_TOOL_VERSION"
	AdditionalArtifacts  = "GK_ADDITIONAL_ARTIFACTS"
)

var (
	reservedNames = []string{
		DatabaseName,
		SchemaName,
		TableName,
		Version,
		AppliedByTool,
		AppliedByToolVersion,
		AdditionalArtifacts,
	}

	leftover = regexp.MustCompile(`\$\{[^}]*\}`)
)

type (
	// Token is a single KEY=VALUE substitution.
	Token struct {
		Key   string
		Value string
	}

	// Reserved holds the values the engine knows about at a given call site.
	// Empty fields are not emitted.
	Reserved struct {
		Database             string
		Schema               string
		Table                string
		Version              string
		AppliedByTool        string
		AppliedByToolVersion string
		AdditionalArtifacts  string
	}

	// ResolutionError is returned when text still contains placeholders after
	// replacement.
	ResolutionError struct {
		Unresolved []string

		// Lines are the trimmed lines of Text holding a placeholder.
		Lines []string
		Text  string
	}
)

// maxExcerpt bounds each line quoted in a ResolutionError message.
const maxExcerpt = 120

func (e *ResolutionError) Error() string {
	quoted := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		quoted[i] = fmt.Sprintf("%q", l)
	}

	return fmt.Sprintf("unresolved tokens %s in %s; supply them with --token KEY=VALUE or the tokens section of the config",
		strings.Join(e.Unresolved, ", "),
		strings.Join(quoted, ", "),
	)
}

// Replace substitutes every ${Key} in text with its value, in the order the
// tokens are given. It returns a *ResolutionError if any ${...} remains.
//
// Example:
//
//	out, err := tokens.Replace([]tokens.Token{{Key: "OWNER", Value: "app"}}, "GRANT ALL TO ${OWNER};")
//	// out == "GRANT ALL TO app;"
func Replace(toks []Token, text string) (string, error) {
	for _, t := range toks {
		text = strings.ReplaceAll(text, "${"+t.Key+"}", t.Value)
	}

	found := leftover.FindAllString(text, -1)
	if len(found) == 0 {
		return text, nil
	}

	unresolved := make([]string, 0, len(found))
	for _, f := range found {
		if !slices.Contains(unresolved, f) {
			unresolved = append(unresolved, f)
		}
	}

	return "", &ResolutionError{Unresolved: unresolved, Lines: excerpts(text), Text: text}
}

func excerpts(text string) []string {
	var out []string
	for line := range strings.Lines(text) {
		if !leftover.MatchString(line) {
			continue
		}

		line = strings.TrimSpace(line)
		if len(line) > maxExcerpt {
			loc := leftover.FindStringIndex(line)
			start := max(0, min(loc[0]-maxExcerpt/2, len(line)-maxExcerpt))
			end := start + maxExcerpt

			cut := line[start:end]
			if start > 0 {
				cut = "..." + cut
			}
			if end < len(line) {
				cut += "..."
			}

			line = cut
		}

		out = append(out, line)
	}

	return out
}

// Parse parses a KEY=VALUE pair. The value may contain further = signs.
func Parse(kv string) (Token, error) {
	key, value, ok := strings.Cut(kv, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return Token{}, errors.Errorf("invalid token %q, expected KEY=VALUE", kv)
	}

	return Token{Key: key, Value: value}, nil
}

// FromMap converts a map into tokens ordered by key.
func FromMap(m map[string]string) []Token {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	toks := make([]Token, len(keys))
	for i, k := range keys {
		toks[i] = Token{Key: k, Value: m[k]}
	}

	return toks
}

// IsReserved reports whether key is one of the engine supplied names.
func IsReserved(key string) bool {
	return slices.Contains(reservedNames, key)
}

// CheckUser returns an error if any user supplied token uses a reserved name.
func CheckUser(toks []Token) error {
	for _, t := range toks {
		if IsReserved(t.Key) {
			return errors.Errorf("token %s is reserved and cannot be supplied", t.Key)
		}
	}

	return nil
}

// Tokens returns the non-empty reserved values as tokens.
func (r Reserved) Tokens() []Token {
	pairs := []Token{
		{Key: DatabaseName, Value: r.Database},
		{Key: SchemaName, Value: r.Schema},
		{Key: TableName, Value: r.Table},
		{Key: Version, Value: r.Version},
		{Key: AppliedByTool, Value: r.AppliedByTool},
		{Key: AppliedByToolVersion, Value: r.AppliedByToolVersion},
		{Key: AdditionalArtifacts, Value: r.AdditionalArtifacts},
	}

	toks := make([]Token, 0, len(pairs))
	for _, p := range pairs {
		if p.Value != "" {
			toks = append(toks, p)
		}
	}

	return toks
}

// With returns the reserved tokens followed by user tokens.
func (r Reserved) With(user []Token) []Token {
	return append(r.Tokens(), user...)
}
