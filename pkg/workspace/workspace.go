package workspace

import (
	_ "embed"
	"os"
	"path/filepath"
	"sort"
	"testing/fstest"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/consts"
	"github.com/pseudomuto/groundskeeper/pkg/version"
)

// Reserved directory names.
const (
	InitDir        = "_init"
	PreDir         = "_pre"
	DraftDir       = "_draft"
	PostDir        = "_post"
	EraseDir       = "_erase"
	DropDir        = "_drop"
	TransactionDir = "_transaction"

	// SequenceFile lists the scripts of a directory in execution order.
	SequenceFile = "_sequence.ini"

	// ConfigFile is the run configuration at the workspace root.
	ConfigFile = consts.ConfigFile
)

var (
	reserved = []string{InitDir, PreDir, DraftDir, PostDir, EraseDir, DropDir, TransactionDir}

	//go:embed embed/groundskeeper.yaml
	defaultConfig []byte

	//go:embed embed/README.md
	defaultReadme []byte

	image = fstest.MapFS{
		InitDir:     {Mode: os.ModeDir | consts.ModeDir},
		PreDir:      {Mode: os.ModeDir | consts.ModeDir},
		"v0.00":     {Mode: os.ModeDir | consts.ModeDir},
		DraftDir:    {Mode: os.ModeDir | consts.ModeDir},
		PostDir:     {Mode: os.ModeDir | consts.ModeDir},
		EraseDir:    {Mode: os.ModeDir | consts.ModeDir},
		DropDir:     {Mode: os.ModeDir | consts.ModeDir},
		ConfigFile:  {Data: defaultConfig},
		"README.md": {Data: defaultReadme},
	}
)

// Workspace is a directory of migration scripts.
type Workspace struct {
	root string
}

// New returns a Workspace rooted at path. The directory is not read until a
// method needs it.
//
// Example:
//
//	ws := workspace.New("/path/to/db")
//	if err := ws.Init(); err != nil {
//		log.Fatal(err)
//	}
//
//	versions, err := ws.Versions()
//	if err != nil {
//		log.Fatal(err)
//	}
func New(path string) *Workspace {
	return &Workspace{root: path}
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Dir returns the absolute path of a directory directly below the root.
func (w *Workspace) Dir(name string) string {
	return filepath.Join(w.root, name)
}

// VersionDir returns the directory holding the scripts of v.
func (w *Workspace) VersionDir(v version.Local) string {
	return w.Dir(v.String())
}

// IsReserved reports whether name is one of the reserved directory names.
func IsReserved(name string) bool {
	for _, r := range reserved {
		if r == name {
			return true
		}
	}

	return false
}

// Init creates the standard workspace layout. Existing files and directories
// are left untouched, so running it again is safe.
func (w *Workspace) Init() error {
	if err := os.MkdirAll(w.root, consts.ModeDir); err != nil {
		return errors.Wrapf(err, "failed to create workspace %s", w.root)
	}

	paths := make([]string, 0, len(image))
	for path := range image {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		entry := image[path]
		fullPath := filepath.Join(w.root, path)

		if _, err := os.Stat(fullPath); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to stat %s", fullPath)
		}

		if entry.Mode.IsDir() {
			if err := os.MkdirAll(fullPath, entry.Mode.Perm()); err != nil {
				return errors.Wrapf(err, "failed to create directory %s", fullPath)
			}

			continue
		}

		if err := os.WriteFile(fullPath, entry.Data, consts.ModeFile); err != nil {
			return errors.Wrapf(err, "failed to write file %s", fullPath)
		}
	}

	return nil
}

// Versions returns every version directory in ascending order.
//
// Directory names that look like versions but do not parse, are not in
// canonical form (v01.00 instead of v1.00) or collide with another directory
// after parsing produce a *ValidationError. Other directories are ignored.
func (w *Workspace) Versions() ([]version.Local, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read workspace %s", w.root)
	}

	var (
		versions []version.Local
		invalid  []string
		seen     = make(map[version.Local]string)
	)

	for _, entry := range entries {
		if !entry.IsDir() || !version.IsVersionName(entry.Name()) {
			continue
		}

		v, err := version.Parse(entry.Name())
		if err != nil || v.String() != entry.Name() {
			invalid = append(invalid, entry.Name())
			continue
		}

		if other, ok := seen[v]; ok {
			invalid = append(invalid, other+" and "+entry.Name())
			continue
		}

		seen[v] = entry.Name()
		versions = append(versions, v)
	}

	if len(invalid) > 0 {
		return nil, &ValidationError{
			Reason: "invalid version directories, expected canonical v<major>.<minor> names",
			Paths:  invalid,
		}
	}

	version.Sort(versions)
	return versions, nil
}

// NextMajor creates the directory for the next major version.
func (w *Workspace) NextMajor(label string) (version.Local, error) {
	return w.next(version.IncrementMajor, label)
}

// NextMinor creates the directory for the next minor version.
func (w *Workspace) NextMinor(label string) (version.Local, error) {
	return w.next(version.IncrementMinor, label)
}

func (w *Workspace) next(inc func([]version.Local, string) (version.Local, error), label string) (version.Local, error) {
	existing, err := w.Versions()
	if err != nil {
		return version.Local{}, err
	}

	v, err := inc(existing, label)
	if err != nil {
		return version.Local{}, err
	}

	if err := os.Mkdir(w.VersionDir(v), consts.ModeDir); err != nil {
		return version.Local{}, errors.Wrapf(err, "failed to create %s", v)
	}

	return v, nil
}
