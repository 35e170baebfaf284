package docker

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultVersion is the ClickHouse image tag started when none is given.
	DefaultVersion = "25.7"

	// DefaultDatabase is created when the server starts.
	DefaultDatabase = "groundskeeper"

	nativePort = nat.Port("9000/tcp")
	httpPort   = nat.Port("8123/tcp")
)

type (
	// Options configure a ClickHouse server.
	Options struct {
		// Version is the clickhouse-server image tag.
		Version string

		// Database is created at startup and used by ConnectionString.
		Database string

		// ConfigDir is an optional directory mounted as the server's config.d.
		ConfigDir string
	}

	// ClickHouse is a throwaway ClickHouse server running in Docker.
	ClickHouse struct {
		options   Options
		container *clickhouse.ClickHouseContainer
	}
)

// NewClickHouse returns a server that starts on Start.
//
// Example:
//
//	server := docker.NewClickHouse(docker.Options{Database: "app"})
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer server.Stop(ctx)
//
//	dsn, err := server.ConnectionString(ctx)
func NewClickHouse(opts Options) *ClickHouse {
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}

	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}

	return &ClickHouse{options: opts}
}

// Start runs the container and waits until the HTTP interface answers.
func (c *ClickHouse) Start(ctx context.Context) error {
	if c.container != nil {
		return errors.New("container is already running")
	}

	customizers := []testcontainers.ContainerCustomizer{
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		clickhouse.WithDatabase(c.options.Database),
		testcontainers.WithEnv(map[string]string{"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1"}),
		testcontainers.WithWaitStrategyAndDeadline(
			5*time.Minute,
			wait.
				NewHTTPStrategy("/").
				WithPort(httpPort).
				WithStatusCodeMatcher(func(status int) bool {
					return status == 200
				}),
		),
	}

	if c.options.ConfigDir != "" {
		dir, err := filepath.Abs(c.options.ConfigDir)
		if err != nil {
			return errors.Wrapf(err, "failed to get absolute path for %s", c.options.ConfigDir)
		}

		customizers = append(customizers,
			testcontainers.WithHostConfigModifier(func(hostConfig *container.HostConfig) {
				hostConfig.Mounts = []mount.Mount{
					{
						Type:   mount.TypeBind,
						Source: dir,
						Target: "/etc/clickhouse-server/config.d",
					},
				}
			}),
		)
	}

	ch, err := clickhouse.Run(ctx,
		fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", c.options.Version),
		customizers...,
	)
	if err != nil {
		return errors.Wrap(err, "failed to start ClickHouse container")
	}

	c.container = ch
	return nil
}

// Stop removes the container. Stopping a server that is not running is a
// no-op.
func (c *ClickHouse) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil
	}

	err := c.container.Terminate(ctx)
	c.container = nil

	return errors.Wrap(err, "failed to stop ClickHouse container")
}

// ConnectionString returns a native protocol DSN for database, or the
// server's default database when empty.
func (c *ClickHouse) ConnectionString(ctx context.Context, database string) (string, error) {
	if c.container == nil {
		return "", errors.New("container is not running")
	}

	if database == "" {
		database = c.options.Database
	}

	host, err := c.container.Host(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to get container host")
	}

	port, err := c.container.MappedPort(ctx, nativePort)
	if err != nil {
		return "", errors.Wrap(err, "failed to get container port")
	}

	dsn := url.URL{
		Scheme: "clickhouse",
		User:   url.User("default"),
		Host:   fmt.Sprintf("%s:%s", host, port.Port()),
		Path:   "/" + database,
	}

	return dsn.String(), nil
}

// IsRunning reports whether Start succeeded and Stop has not been called.
func (c *ClickHouse) IsRunning() bool {
	return c.container != nil
}
