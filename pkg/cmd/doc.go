// Package cmd provides the CLI commands of the groundskeeper tool.
//
// Each command is a function returning a *cli.Command (urfave/cli/v3) and is
// provided into the fx "commands" group by Module. Run registers the root
// command to start with the fx app.
//
// # Available Commands
//
//   - init: create the directory layout of a new workspace
//   - vnext: create the next version directory
//   - run: apply pending versions to the target database
//   - verify: run pending versions and roll everything back
//   - list: show the versions recorded in the tracking table
//   - erase: run the _erase scripts
//   - destroy: run the _drop scripts on the administrative connection
//
// # Configuration
//
// Commands read groundskeeper.yaml from the workspace (--workspace, default
// the current directory). Flags override file settings, and most flags can
// also be set through GROUNDSKEEPER_* environment variables, e.g.
// GROUNDSKEEPER_CONNECTION_STRING. Tokens are merged from the file and any
// number of --token KEY=VALUE flags.
//
//	groundskeeper run -w ./db -p postgresql -c "postgres://app@localhost/app" -k OWNER=app
package cmd
