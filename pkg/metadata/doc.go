// Package metadata records which versions have been applied to a database.
//
// Every run keeps one row per version in a tracking table. The row holds who
// applied the version and with which tool, how long it took, and whether it
// succeeded. A Failed row also carries the path and error of the script that
// failed, which is what a later run resumes from.
//
// The SQL for the tracking table comes from the platform dialect, so the
// same Store works against every supported database:
//
//	store := metadata.NewStore(p, platform.Target{Database: "app", Table: "__groundskeeper_version"})
//	if err := store.Configure(ctx, db); err != nil {
//		log.Fatal(err)
//	}
//
//	versions, err := store.GetAllVersions(ctx, db)
package metadata
