package metadata

import (
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/version"
)

// Status values stored in the tracking table.
const (
	Successful Status = "Successful"
	Failed     Status = "Failed"
)

type (
	// Status is the outcome of applying a version.
	Status string

	// DbVersion is a row of the tracking table.
	DbVersion struct {
		SequenceID           int64
		Version              string
		AppliedOn            time.Time
		AppliedByUser        string
		AppliedByTool        string
		AppliedByToolVersion string
		Status               Status

		// FailedScriptPath is the workspace relative path of the script that
		// failed. Always set when Status is Failed.
		FailedScriptPath *string

		// FailedScriptError holds the platform message of the failure.
		FailedScriptError *string

		// AdditionalArtifacts is the checksum listing of the version's scripts
		// at the time it was applied.
		AdditionalArtifacts string

		DurationMs int64
	}

	// VersionSet is the content of the tracking table with lookups by version.
	VersionSet struct {
		versions []*DbVersion
		byName   map[string]*DbVersion
	}

	// timestamp scans the applied_on column, which drivers return either as a
	// time.Time or as text.
	timestamp struct {
		time.Time
	}
)

// IsFailed reports whether the version failed to apply.
func (v *DbVersion) IsFailed() bool {
	return v.Status == Failed
}

// NewVersionSet indexes the rows in the order given. A later row for the same
// version replaces an earlier one.
func NewVersionSet(rows []*DbVersion) *VersionSet {
	vs := &VersionSet{
		versions: make([]*DbVersion, 0, len(rows)),
		byName:   make(map[string]*DbVersion, len(rows)),
	}

	for _, row := range rows {
		if prev, ok := vs.byName[row.Version]; ok {
			vs.versions = slices.DeleteFunc(vs.versions, func(v *DbVersion) bool { return v == prev })
		}

		vs.byName[row.Version] = row
		vs.versions = append(vs.versions, row)
	}

	return vs
}

// All returns every row in tracking order.
func (vs *VersionSet) All() []*DbVersion {
	return slices.Clone(vs.versions)
}

// Applied returns the Successful rows in tracking order.
func (vs *VersionSet) Applied() []*DbVersion {
	out := make([]*DbVersion, 0, len(vs.versions))
	for _, v := range vs.versions {
		if !v.IsFailed() {
			out = append(out, v)
		}
	}

	return out
}

// Failed returns the most recent Failed row, or nil.
func (vs *VersionSet) Failed() *DbVersion {
	for i := len(vs.versions) - 1; i >= 0; i-- {
		if vs.versions[i].IsFailed() {
			return vs.versions[i]
		}
	}

	return nil
}

// Get returns the row of a version, or nil.
func (vs *VersionSet) Get(name string) *DbVersion {
	return vs.byName[name]
}

// IsApplied reports whether the version was applied successfully.
func (vs *VersionSet) IsApplied(name string) bool {
	v, ok := vs.byName[name]
	return ok && !v.IsFailed()
}

// Count returns the number of tracked versions.
func (vs *VersionSet) Count() int {
	return len(vs.versions)
}

// Current returns the highest applied version, compared numerically, or an
// empty string when nothing has been applied.
func (vs *VersionSet) Current() string {
	var (
		current *version.Local
		name    string
	)

	for _, row := range vs.Applied() {
		v, err := version.Parse(row.Version)
		if err != nil {
			continue
		}

		if current == nil || current.Less(v) {
			current = &v
			name = row.Version
		}
	}

	return name
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Scan implements sql.Scanner.
func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return errors.Errorf("cannot scan %T into a timestamp", src)
	}
}

func (t *timestamp) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}

	return errors.Errorf("unrecognized timestamp %q", s)
}
