// Package registry maps platform names to their statically linked adapters.
package registry

import (
	"slices"
	"strings"

	"github.com/pseudomuto/groundskeeper/pkg/platform"
	"github.com/pseudomuto/groundskeeper/pkg/platform/clickhouse"
	"github.com/pseudomuto/groundskeeper/pkg/platform/postgres"
	"github.com/pseudomuto/groundskeeper/pkg/platform/sqlite"
)

type (
	// Options carry platform specific connection settings.
	Options struct {
		ClickHouse clickhouse.ClientOptions
	}

	// Registry resolves platform names.
	Registry struct {
		factories map[string]func() platform.Platform
		aliases   map[string]string
	}
)

// New returns a Registry holding every supported platform.
//
// Example usage:
//
//	p, err := registry.New(registry.Options{}).Lookup("postgresql")
//	if err != nil {
//		log.Fatal(err)
//	}
func New(opts Options) *Registry {
	return &Registry{
		factories: map[string]func() platform.Platform{
			postgres.Name:   func() platform.Platform { return postgres.New() },
			sqlite.Name:     func() platform.Platform { return sqlite.New() },
			clickhouse.Name: func() platform.Platform { return clickhouse.New(opts.ClickHouse) },
		},
		aliases: map[string]string{
			"postgres": postgres.Name,
			"pgsql":    postgres.Name,
			"sqlite3":  sqlite.Name,
			"ch":       clickhouse.Name,
		},
	}
}

// Lookup returns the platform registered under name (case-insensitive).
func (r *Registry) Lookup(name string) (platform.Platform, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := r.aliases[key]; ok {
		key = alias
	}

	factory, ok := r.factories[key]
	if !ok {
		return nil, &platform.UnknownError{Name: name, Supported: r.Names()}
	}

	return factory(), nil
}

// Names returns the registered platform names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}
