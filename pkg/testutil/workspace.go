// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pseudomuto/groundskeeper/pkg/consts"
	"github.com/stretchr/testify/require"
)

// Files maps slash separated paths to file contents. A path ending in a slash
// creates an empty directory.
type Files map[string]string

// WriteWorkspace creates a temporary workspace holding files and returns its
// root.
func WriteWorkspace(t *testing.T, files Files) string {
	t.Helper()

	root := t.TempDir()
	WriteFiles(t, root, files)
	return root
}

// WriteFiles writes files below root, creating parent directories.
func WriteFiles(t *testing.T, root string, files Files) {
	t.Helper()

	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if strings.HasSuffix(path, "/") {
			require.NoError(t, os.MkdirAll(full, consts.ModeDir))
			continue
		}

		require.NoError(t, os.MkdirAll(filepath.Dir(full), consts.ModeDir))
		require.NoError(t, os.WriteFile(full, []byte(content), consts.ModeFile))
	}
}

// RequireValidWorkspace asserts that the standard layout exists below root.
func RequireValidWorkspace(t *testing.T, root string) {
	t.Helper()

	for _, dir := range []string{"_init", "_pre", "v0.00", "_draft", "_post", "_erase", "_drop"} {
		require.DirExists(t, filepath.Join(root, dir), "%s directory should exist", dir)
	}

	require.FileExists(t, filepath.Join(root, "groundskeeper.yaml"), "groundskeeper.yaml should exist")
	require.FileExists(t, filepath.Join(root, "README.md"), "README.md should exist")
}

// RequireFileContains asserts that the file at path contains expected.
func RequireFileContains(t *testing.T, path, expected string) {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read file: %s", path)
	require.Contains(t, string(content), expected)
}
