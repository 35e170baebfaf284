package clickhouse

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/platform"
)

var versionRegex = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// VersionInfo represents parsed ClickHouse server version information.
type VersionInfo struct {
	Major int
	Minor int
	Patch int
	Raw   string
}

// String returns the version as major.minor.patch.
func (v VersionInfo) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsAtLeast reports whether this version is at least major.minor.
func (v VersionInfo) IsAtLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}

	return v.Minor >= minor
}

// GetVersion queries and parses the server version.
func GetVersion(ctx context.Context, q platform.Querier) (*VersionInfo, error) {
	var raw string
	if err := q.QueryRowContext(ctx, "SELECT version()").Scan(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to query ClickHouse version")
	}

	info, err := parseVersion(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse ClickHouse version: %s", raw)
	}

	return info, nil
}

// parseVersion accepts forms such as 21.10.3.9, 22.8.2.11-testing and
// 21.10.3.9 (official build).
func parseVersion(raw string) (*VersionInfo, error) {
	cleaned := strings.TrimSpace(raw)
	if idx := strings.IndexAny(cleaned, " -"); idx != -1 {
		cleaned = cleaned[:idx]
	}

	m := versionRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return nil, errors.Errorf("invalid version format: %s", raw)
	}

	info := &VersionInfo{Raw: raw}
	for i, dst := range []*int{&info.Major, &info.Minor, &info.Patch} {
		if m[i+1] == "" {
			continue
		}

		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid version component %s", m[i+1])
		}
		*dst = n
	}

	return info, nil
}
