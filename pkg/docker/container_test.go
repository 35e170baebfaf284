package docker_test

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/pseudomuto/groundskeeper/pkg/docker"
	"github.com/pseudomuto/groundskeeper/pkg/platform/clickhouse"
	"github.com/stretchr/testify/require"
)

// skipIfNoDocker skips the test if Docker is not available
func skipIfNoDocker(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Docker test in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("Docker not available")
	}

	if err := exec.Command("docker", "ps").Run(); err != nil {
		t.Skip("Docker daemon not running")
	}
}

func TestClickHouse_StartStop(t *testing.T) {
	skipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	server := docker.NewClickHouse(docker.Options{Database: "events"})
	require.False(t, server.IsRunning())

	_, err := server.ConnectionString(ctx, "")
	require.ErrorContains(t, err, "not running")

	require.NoError(t, server.Start(ctx))
	defer func() { _ = server.Stop(ctx) }()
	require.True(t, server.IsRunning())
	require.ErrorContains(t, server.Start(ctx), "already running")

	dsn, err := server.ConnectionString(ctx, "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dsn, "clickhouse://default@"))
	require.True(t, strings.HasSuffix(dsn, "/events"))

	p := clickhouse.New(clickhouse.ClientOptions{})
	name, err := p.DatabaseName(dsn)
	require.NoError(t, err)
	require.Equal(t, "events", name)

	db, err := p.Open(dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	version, err := p.ServerVersion(ctx, db)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(version, "25.7"), version)

	require.NoError(t, server.Stop(ctx))
	require.False(t, server.IsRunning())
	require.NoError(t, server.Stop(ctx))
}
