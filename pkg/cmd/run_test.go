package cmd

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/migrator"
	"github.com/pseudomuto/groundskeeper/pkg/testutil"
	"github.com/stretchr/testify/require"
)

var peopleWorkspace = testutil.Files{
	"v0.00/01_people.sql": "CREATE TABLE people (name TEXT, owner TEXT);",
	"v1.00/01_seed.sql":   "INSERT INTO people VALUES ('ada', '${OWNER}');",
}

func TestRunCommand(t *testing.T) {
	root := sqliteWorkspace(t, peopleWorkspace)

	out, err := runCommand(t, runCmd(testParams()), "-w", root, "-k", "OWNER=app")
	require.NoError(t, err)
	require.Contains(t, out, "Created tracking table")
	require.Contains(t, out, "Applied 2 version(s): v0.00, v1.00")
	require.Contains(t, out, "transactions: session")

	out, err = runCommand(t, runCmd(testParams()), "-w", root, "-k", "OWNER=app")
	require.NoError(t, err)
	require.Contains(t, out, "No pending versions")

	out, err = runCommand(t, list(testParams()), "-w", root)
	require.NoError(t, err)
	require.Contains(t, out, "VERSION")
	require.Contains(t, out, "v0.00")
	require.Contains(t, out, "v1.00")
	require.Contains(t, out, "Successful")
	require.Contains(t, out, "groundskeeper v0.0.0-test")
}

func TestRunCommand_EnvironmentVariables(t *testing.T) {
	root := testutil.WriteWorkspace(t, peopleWorkspace)
	t.Setenv("GROUNDSKEEPER_WORKSPACE", root)
	t.Setenv("GROUNDSKEEPER_PLATFORM", "sqlite3")
	t.Setenv("GROUNDSKEEPER_CONNECTION_STRING", root+"/env.db")
	t.Setenv("GROUNDSKEEPER_TARGET_VERSION", "v0.00")

	out, err := runCommand(t, runCmd(testParams()))
	require.NoError(t, err)
	require.Contains(t, out, "Applied 1 version(s): v0.00")
}

func TestRunCommand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, err error)
	}{
		{
			name: "missing token",
			check: func(t *testing.T, err error) {
				var verr *migrator.ValidationError
				require.True(t, errors.As(err, &verr))
				require.Contains(t, err.Error(), "${OWNER}")
			},
		},
		{
			name: "invalid token flag",
			args: []string{"-k", "OWNER"},
			check: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "invalid --token")
			},
		},
		{
			name: "reserved token",
			args: []string{"-k", "OWNER=app", "-k", "GK_VERSION=v9.00"},
			check: func(t *testing.T, err error) {
				var verr *migrator.ValidationError
				require.True(t, errors.As(err, &verr))
			},
		},
		{
			name: "invalid transaction mode",
			args: []string{"-k", "OWNER=app", "-m", "sometimes"},
			check: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "sometimes")
			},
		},
		{
			name: "unknown platform",
			args: []string{"-k", "OWNER=app", "-p", "oracle"},
			check: func(t *testing.T, err error) {
				require.ErrorContains(t, err, "oracle")
			},
		},
		{
			name: "continue without failure",
			args: []string{"-k", "OWNER=app", "--continue-after-failure"},
			check: func(t *testing.T, err error) {
				var rerr *migrator.ResumeProtocolError
				require.True(t, errors.As(err, &rerr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := sqliteWorkspace(t, peopleWorkspace)

			_, err := runCommand(t, runCmd(testParams()), append([]string{"-w", root}, tt.args...)...)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRunCommand_NoPlatform(t *testing.T) {
	root := testutil.WriteWorkspace(t, peopleWorkspace)

	_, err := runCommand(t, runCmd(testParams()), "-w", root)
	require.ErrorContains(t, err, "no platform configured")
}

func TestVerifyCommand(t *testing.T) {
	root := sqliteWorkspace(t, peopleWorkspace)

	out, err := runCommand(t, verify(testParams()), "-w", root, "-k", "OWNER=app", "-m", "none")
	require.NoError(t, err)
	require.Contains(t, out, "Applied 2 version(s)")
	require.Contains(t, out, "Verify only: all changes were rolled back")

	out, err = runCommand(t, list(testParams()), "-w", root)
	require.NoError(t, err)
	require.Contains(t, out, "No versions recorded")
}
