// Package docker runs throwaway ClickHouse servers in Docker for integration
// tests, using the testcontainers ClickHouse module.
//
// # Usage Example
//
//	server := docker.NewClickHouse(docker.Options{Database: "app"})
//	if err := server.Start(ctx); err != nil {
//		t.Skip(err)
//	}
//	t.Cleanup(func() { _ = server.Stop(context.Background()) })
//
//	dsn, err := server.ConnectionString(ctx, "")
//	// clickhouse://default@localhost:32768/app
package docker
