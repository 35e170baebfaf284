package cmd

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/groundskeeper/pkg/config"
	"github.com/pseudomuto/groundskeeper/pkg/testutil"
	"github.com/urfave/cli/v3"
)

func testParams() commandParams {
	return commandParams{
		Loader:  config.NewLoader(),
		Version: &Version{Version: "v0.0.0-test"},
	}
}

// runCommand runs command as the only command of a test app and returns what
// it wrote.
func runCommand(t *testing.T, command *cli.Command, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	app := &cli.Command{
		Name:      "test",
		Flags:     command.Flags,
		Action:    command.Action,
		Writer:    &buf,
		ErrWriter: io.Discard,
	}

	err := app.Run(context.Background(), append([]string{"test"}, args...))
	return buf.String(), err
}

// sqliteWorkspace writes a workspace configured for a SQLite database in the
// same temp dir and returns its root.
func sqliteWorkspace(t *testing.T, files testutil.Files) string {
	t.Helper()

	root := testutil.WriteWorkspace(t, files)
	testutil.WriteFiles(t, root, testutil.Files{
		"groundskeeper.yaml": "platform: sqlite\nconnection_string: " + filepath.Join(root, "app.db") + "\n",
	})

	return root
}
