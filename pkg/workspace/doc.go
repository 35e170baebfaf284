// Package workspace manages the on-disk layout of a migration workspace and
// locates the scripts that belong to each phase of a run.
//
// # Layout
//
// A workspace looks like this:
//
//	workspace-root/
//	├── groundskeeper.yaml   # run configuration
//	├── _init/               # runs once, when the tracking table is created
//	├── _pre/                # runs before pending versions, every run
//	├── v0.00/               # version directories, applied once each
//	│   ├── 01-schema.sql
//	│   ├── people.csv       # bulk imported into table "people"
//	│   └── _dev/            # only applied with environment "dev"
//	├── v0.01/
//	├── _draft/              # work in progress, runs every run
//	├── _post/               # runs after everything else, every run
//	├── _erase/              # used by the erase command
//	└── _drop/               # used by the destroy command
//
// # Environments
//
// Any directory whose name starts with an underscore and is not one of the
// reserved names above tags the scripts below it with an environment. Tagged
// scripts run only when the same environment code is supplied, and supplying no
// code at all while tagged scripts exist is an error.
//
// # Ordering
//
// Scripts run in lexicographic order of their full path unless the directory
// holds a _sequence.ini file. In that case each non-blank line of the file
// names a script (a path suffix) and only the listed scripts run, in listed
// order.
package workspace
