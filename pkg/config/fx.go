package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/consts"
	"go.uber.org/fx"
)

var Module = fx.Module("config", fx.Provide(NewLoader))

// Loader reads the configuration file of a workspace.
type Loader struct {
	fileName string
}

// NewLoader returns a Loader for groundskeeper.yaml files.
func NewLoader() *Loader {
	return &Loader{fileName: consts.ConfigFile}
}

// Load reads the configuration file at the root of workspace. A workspace
// without one gets the defaults, so every setting can come from flags.
func (l *Loader) Load(workspace string) (*Config, error) {
	path := filepath.Join(workspace, l.fileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := &Config{Workspace: workspace}
		cfg.ApplyDefaults()
		return cfg, nil
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}

	cfg.Workspace = workspace
	return cfg, nil
}
