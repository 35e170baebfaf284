package workspace

import (
	"bufio"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/version"
)

// Script kinds.
const (
	SQL Kind = iota
	CSV
)

type (
	// Kind is the type of a script file.
	Kind int

	// ScriptFile is a script selected to run.
	ScriptFile struct {
		// Path is the absolute file path.
		Path string

		// RelPath is the slash separated path relative to the workspace root.
		// It is the identity recorded for failed scripts.
		RelPath string

		// Version is the owning version, nil outside version directories.
		Version *version.Local

		// Depth is the number of directories between the phase or version root
		// and the file.
		Depth int

		// Environment is the nearest environment tag above the file, if any.
		Environment string

		Kind Kind
	}

	// Locator finds and orders the scripts of a workspace for one environment.
	Locator struct {
		ws          *Workspace
		environment string
		logger      *slog.Logger
	}
)

// Ext returns the file extension for the kind.
func (k Kind) Ext() string {
	if k == CSV {
		return ".csv"
	}

	return ".sql"
}

func (k Kind) String() string {
	if k == CSV {
		return "csv"
	}

	return "sql"
}

// TableName returns the target table of a CSV script: its base name without
// the extension.
func (f ScriptFile) TableName() string {
	base := filepath.Base(f.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Locator returns a Locator for the given environment code. An empty code
// means no environment, in which case environment tagged scripts are an error.
func (w *Workspace) Locator(environment string, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Locator{
		ws:          w,
		environment: strings.TrimPrefix(environment, "_"),
		logger:      logger,
	}
}

// Phase returns the SQL scripts below a non-version directory such as _pre or
// _post, recursively. A missing directory has no scripts.
func (l *Locator) Phase(name string) ([]ScriptFile, error) {
	dir := l.ws.Dir(name)
	if !isDir(dir) {
		return nil, nil
	}

	var files []ScriptFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !hasExt(d.Name(), SQL) {
			return nil
		}

		rel, err := filepath.Rel(dir, filepath.Dir(path))
		if err != nil {
			return err
		}

		f, err := l.scriptFile(path, nil, depthOf(rel), SQL)
		if err != nil {
			return err
		}

		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", dir)
	}

	files, err = l.filter(files)
	if err != nil {
		return nil, err
	}

	return l.order(dir, files)
}

// Level returns the scripts of the given kind directly inside dir, which must
// be the version directory of v or one of its descendants.
func (l *Locator) Level(dir string, v version.Local, kind Kind) ([]ScriptFile, error) {
	scripts, err := l.Scripts(dir, v)
	if err != nil {
		return nil, err
	}

	return slices.DeleteFunc(scripts, func(f ScriptFile) bool { return f.Kind != kind }), nil
}

// Scripts returns the SQL and CSV scripts directly inside dir, SQL first. A
// _sequence.ini in dir orders both kinds and may list either.
func (l *Locator) Scripts(dir string, v version.Local) ([]ScriptFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", dir)
	}

	rel, err := filepath.Rel(l.ws.VersionDir(v), dir)
	if err != nil {
		return nil, errors.Wrapf(err, "%s is not inside %s", dir, v)
	}

	var files []ScriptFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		for _, kind := range []Kind{SQL, CSV} {
			if !hasExt(entry.Name(), kind) {
				continue
			}

			f, err := l.scriptFile(filepath.Join(dir, entry.Name()), &v, depthOf(rel), kind)
			if err != nil {
				return nil, err
			}

			files = append(files, f)
		}
	}

	files, err = l.filter(files)
	if err != nil {
		return nil, err
	}

	files, err = l.order(dir, files)
	if err != nil {
		return nil, err
	}

	// SQL before CSV, keeping the sequence order within each kind.
	slices.SortStableFunc(files, func(a, b ScriptFile) int { return int(a.Kind) - int(b.Kind) })
	return files, nil
}

// Subdirectories returns the child directories of dir sorted by name.
func (l *Locator) Subdirectories(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", dir)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, filepath.Join(dir, entry.Name()))
		}
	}

	slices.Sort(dirs)
	return dirs, nil
}

func (l *Locator) scriptFile(path string, v *version.Local, depth int, kind Kind) (ScriptFile, error) {
	rel, err := filepath.Rel(l.ws.root, path)
	if err != nil {
		return ScriptFile{}, errors.Wrapf(err, "%s is outside the workspace", path)
	}

	rel = filepath.ToSlash(rel)
	return ScriptFile{
		Path:        path,
		RelPath:     rel,
		Version:     v,
		Depth:       depth,
		Environment: environmentOf(rel),
		Kind:        kind,
	}, nil
}

// filter drops scripts tagged for other environments. Tagged scripts with no
// environment configured are an error.
func (l *Locator) filter(files []ScriptFile) ([]ScriptFile, error) {
	var (
		kept     = make([]ScriptFile, 0, len(files))
		untagged []string
	)

	for _, f := range files {
		switch {
		case f.Environment == "":
			kept = append(kept, f)
		case l.environment == "":
			untagged = append(untagged, f.RelPath)
		case strings.EqualFold(strings.TrimPrefix(f.Environment, "_"), l.environment):
			kept = append(kept, f)
		}
	}

	if len(untagged) > 0 {
		return nil, &ValidationError{
			Reason: "environment specific scripts found but no environment was given",
			Paths:  untagged,
		}
	}

	return kept, nil
}

// order applies the _sequence.ini manifest of dir when present, otherwise sorts
// by full path.
func (l *Locator) order(dir string, files []ScriptFile) ([]ScriptFile, error) {
	entries, err := readManifest(filepath.Join(dir, SequenceFile))
	if err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b ScriptFile) int { return strings.Compare(a.Path, b.Path) })
	if entries == nil {
		return files, nil
	}

	var (
		ordered  = make([]ScriptFile, 0, len(entries))
		selected = make([]bool, len(files))
	)

	for _, entry := range entries {
		idx := -1
		for i, f := range files {
			if !selected[i] && (f.RelPath == entry || strings.HasSuffix(f.RelPath, "/"+entry)) {
				idx = i
				break
			}
		}

		if idx < 0 {
			return nil, &ValidationError{
				Reason: "sequence entry " + entry + " does not match any script",
				Paths:  []string{filepath.Join(dir, SequenceFile)},
			}
		}

		selected[idx] = true
		ordered = append(ordered, files[idx])
	}

	var excluded []string
	for i, f := range files {
		if !selected[i] {
			excluded = append(excluded, f.RelPath)
		}
	}

	if len(excluded) > 0 {
		l.logger.Warn("Scripts not listed in sequence file will not run",
			"sequence", filepath.Join(dir, SequenceFile),
			"excluded", excluded,
		)
	}

	return ordered, nil
}

func readManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer func() { _ = f.Close() }()

	entries := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		entries = append(entries, strings.TrimPrefix(filepath.ToSlash(line), "./"))
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	return entries, nil
}

// environmentOf returns the nearest directory segment of a slash path that
// starts with an underscore and is not reserved.
func environmentOf(rel string) string {
	segments := strings.Split(rel, "/")
	for i := len(segments) - 2; i >= 0; i-- {
		s := segments[i]
		if strings.HasPrefix(s, "_") && !IsReserved(s) {
			return s
		}
	}

	return ""
}

func depthOf(rel string) int {
	if rel == "." || rel == "" {
		return 0
	}

	return len(strings.Split(filepath.ToSlash(rel), "/"))
}

func hasExt(name string, kind Kind) bool {
	return strings.EqualFold(filepath.Ext(name), kind.Ext())
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
