package metadata_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	. "github.com/pseudomuto/groundskeeper/pkg/metadata"
	"github.com/pseudomuto/groundskeeper/pkg/platform"
	"github.com/pseudomuto/groundskeeper/pkg/platform/sqlite"
	"github.com/pseudomuto/groundskeeper/pkg/utils"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()

	p := sqlite.New()
	db, err := p.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewStore(p, platform.Target{Database: "app", Table: "__versions"}), db
}

func TestStoreConfigure(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t)

	exists, err := store.IsDatabaseExists(ctx, db)
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, store.CreateDatabase(ctx, db))

	configured, err := store.IsConfigured(ctx, db)
	require.NoError(t, err)
	require.False(t, configured)

	require.NoError(t, store.Configure(ctx, db))
	require.NoError(t, store.Configure(ctx, db))

	configured, err = store.IsConfigured(ctx, db)
	require.NoError(t, err)
	require.True(t, configured)

	current, err := store.GetCurrentVersion(ctx, db)
	require.NoError(t, err)
	require.Empty(t, current)
}

func TestStoreRecordsVersions(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t)
	require.NoError(t, store.Configure(ctx, db))

	appliedOn := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	record := func(name string, status Status, path *string, resuming bool) {
		t.Helper()

		v := &DbVersion{
			Version:              name,
			AppliedOn:            appliedOn,
			AppliedByUser:        "ops",
			AppliedByTool:        "groundskeeper",
			AppliedByToolVersion: "1.2.3",
			Status:               status,
			FailedScriptPath:     path,
			DurationMs:           42,
			AdditionalArtifacts:  "abc 01.sql",
		}
		if status == Failed {
			v.FailedScriptError = utils.Ptr("no such table: widgets")
		}

		require.NoError(t, store.InsertOrUpsertVersion(ctx, db, v, resuming))
	}

	record("v0.00", Successful, nil, false)
	record("v1.10", Successful, nil, false)
	record("v1.09", Successful, nil, false)
	record("v2.00", Failed, utils.Ptr("v2.00/02.sql"), false)

	vs, err := store.GetAllVersions(ctx, db)
	require.NoError(t, err)
	require.Equal(t, 4, vs.Count())
	require.Equal(t, "v1.10", vs.Current())

	failed := vs.Failed()
	require.NotNil(t, failed)
	require.Equal(t, "v2.00/02.sql", *failed.FailedScriptPath)
	require.Equal(t, "no such table: widgets", *failed.FailedScriptError)
	require.True(t, failed.AppliedOn.Equal(appliedOn))

	applied := vs.Get("v0.00")
	require.Equal(t, "ops", applied.AppliedByUser)
	require.Equal(t, int64(42), applied.DurationMs)
	require.Equal(t, "abc 01.sql", applied.AdditionalArtifacts)
	require.Nil(t, applied.FailedScriptPath)

	record("v2.00", Successful, nil, true)

	all, err := store.GetAllAppliedVersions(ctx, db)
	require.NoError(t, err)
	require.Len(t, all, 4)

	current, err := store.GetCurrentVersion(ctx, db)
	require.NoError(t, err)
	require.Equal(t, "v2.00", current)
}

func TestStoreRejectsFailedWithoutScript(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t)
	require.NoError(t, store.Configure(ctx, db))

	err := store.InsertOrUpsertVersion(ctx, db, &DbVersion{Version: "v1.00", Status: Failed}, false)
	require.ErrorContains(t, err, "must name the script")
}

func TestStoreInsertDuplicateFails(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t)
	require.NoError(t, store.Configure(ctx, db))

	v := &DbVersion{Version: "v1.00", AppliedOn: time.Now()}
	require.NoError(t, store.InsertOrUpsertVersion(ctx, db, v, false))
	require.Error(t, store.InsertOrUpsertVersion(ctx, db, v, false))
}

func TestStoreExecuteSQLInTransaction(t *testing.T) {
	ctx := context.Background()
	store, db := newStore(t)
	require.NoError(t, store.Configure(ctx, db))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, store.InsertOrUpsertVersion(ctx, tx, &DbVersion{Version: "v1.00", AppliedOn: time.Now()}, false))
	require.NoError(t, tx.Rollback())

	vs, err := store.GetAllVersions(ctx, db)
	require.NoError(t, err)
	require.Zero(t, vs.Count())
}
