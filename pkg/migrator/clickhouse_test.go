package migrator_test

import (
	"context"
	"log/slog"
	"os/exec"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/config"
	"github.com/pseudomuto/groundskeeper/pkg/docker"
	"github.com/pseudomuto/groundskeeper/pkg/metadata"
	. "github.com/pseudomuto/groundskeeper/pkg/migrator"
	"github.com/pseudomuto/groundskeeper/pkg/platform/clickhouse"
	"github.com/pseudomuto/groundskeeper/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func TestClickHouseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ClickHouse integration test in short mode")
	}

	if err := exec.Command("docker", "ps").Run(); err != nil {
		t.Skip("Docker daemon not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	server := docker.NewClickHouse(docker.Options{})
	require.NoError(t, server.Start(ctx))
	t.Cleanup(func() { _ = server.Stop(context.Background()) })

	// A database that does not exist yet, created by the run.
	dsn, err := server.ConnectionString(ctx, "analytics")
	require.NoError(t, err)

	root := testutil.WriteWorkspace(t, testutil.Files{
		"v1.00/01_events.sql": `CREATE TABLE ${GK_DB_NAME}.events
(
    id UInt64,
    name String,
    owner String DEFAULT '${OWNER}'
)
ENGINE = MergeTree
ORDER BY id;`,
		"v1.01/events.csv": "id,name\n1,signup\n2,login\n",
		"v1.02/01.sql":     "INSERT INTO ${GK_DB_NAME}.events (id, name) VALUES (3, 'logout');",
		"v1.02/02.sql":     "INSERT INTO ${GK_DB_NAME}.missing VALUES (1);",
		"v1.02/03.sql":     "INSERT INTO ${GK_DB_NAME}.events (id, name) VALUES (4, 'purchase');",
	})

	p := clickhouse.New(clickhouse.ClientOptions{})
	engine := func(modify ...func(*config.Config)) *Engine {
		cfg := config.Config{
			Workspace:            root,
			Platform:             p.Name(),
			ConnectionString:     dsn,
			AutoCreateDatabase:   true,
			AppliedByToolVersion: "test",
			Tokens:               map[string]string{"OWNER": "app"},
		}
		for _, m := range modify {
			m(&cfg)
		}

		e, err := New(cfg, p, slog.New(slog.DiscardHandler))
		require.NoError(t, err)
		return e
	}

	rep, err := engine().Run(ctx)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	require.Equal(t, "v1.02/02.sql", execErr.Script)
	require.Contains(t, execErr.Message, "missing")
	require.True(t, rep.DatabaseCreated)
	require.Equal(t, NoTransaction, rep.Strategy)
	require.Equal(t, []string{"v1.00", "v1.01"}, rep.Versions)
	require.Equal(t, 2, rep.Rows)

	rows, err := engine().List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, metadata.Failed, rows[2].Status)

	_, err = engine().Run(ctx)
	var rerr *ResumeProtocolError
	require.True(t, errors.As(err, &rerr))

	rep, err = engine(continueAfterFailure).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, "v1.02", rep.Resumed)

	db, err := p.Open(dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count uint64
	require.NoError(t, db.QueryRowContext(ctx, "SELECT count() FROM analytics.events").Scan(&count))
	require.Equal(t, uint64(4), count)

	var owner string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT owner FROM analytics.events WHERE id = 4").Scan(&owner))
	require.Equal(t, "app", owner)

	rows, err = engine().List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.Equal(t, metadata.Successful, row.Status, row.Version)
	}
}
