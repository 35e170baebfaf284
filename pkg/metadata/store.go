package metadata

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/pseudomuto/groundskeeper/pkg/platform"
)

// Store reads and writes the tracking table of a target database.
//
// Every method takes the Querier to run against, so callers decide whether a
// statement runs inside a transaction, on a pooled connection, or on the
// administrative connection.
type Store struct {
	dialect platform.Dialect
	target  platform.Target
}

// NewStore returns a Store for the tracking table named by target. An empty
// schema falls back to the dialect's default.
func NewStore(d platform.Dialect, target platform.Target) *Store {
	if target.Schema == "" {
		target.Schema = d.DefaultSchema()
	}

	return &Store{dialect: d, target: target}
}

// Target returns the tracking table location.
func (s *Store) Target() platform.Target {
	return s.target
}

// IsDatabaseExists reports whether the target database exists. It must be
// called with the administrative connection.
func (s *Store) IsDatabaseExists(ctx context.Context, master platform.Querier) (bool, error) {
	found, err := s.exists(ctx, master, s.dialect.DatabaseExistsSQL(), s.target.Database)
	return found, errors.Wrapf(err, "failed to check whether database %s exists", s.target.Database)
}

// CreateDatabase creates the target database using the administrative
// connection.
func (s *Store) CreateDatabase(ctx context.Context, master platform.Querier) error {
	return errors.Wrapf(
		s.ExecuteSQL(ctx, master, s.dialect.CreateDatabaseSQL()),
		"failed to create database %s",
		s.target.Database,
	)
}

// IsConfigured reports whether the tracking table exists.
func (s *Store) IsConfigured(ctx context.Context, q platform.Querier) (bool, error) {
	owner := s.target.Schema
	if !s.dialect.IsSchemaSupported() {
		owner = s.target.Database
	}

	found, err := s.exists(ctx, q, s.dialect.TableExistsSQL(), owner, s.target.Table)
	return found, errors.Wrap(err, "failed to check for the tracking table")
}

// Configure creates the tracking table (and its schema when supported).
func (s *Store) Configure(ctx context.Context, q platform.Querier) error {
	for _, stmt := range s.dialect.ConfigureSQL() {
		if err := s.ExecuteSQL(ctx, q, stmt); err != nil {
			return errors.Wrap(err, "failed to create the tracking table")
		}
	}

	return nil
}

// GetAllVersions loads every tracking row.
func (s *Store) GetAllVersions(ctx context.Context, q platform.Querier) (*VersionSet, error) {
	query, err := platform.Render(s.dialect, s.target, s.dialect.SelectVersionsSQL())
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tracked versions")
	}
	defer func() { _ = rows.Close() }()

	var versions []*DbVersion
	for rows.Next() {
		var (
			v                     DbVersion
			appliedOn             timestamp
			status                string
			failedPath, failedErr sql.NullString
			artifacts             sql.NullString
		)

		err := rows.Scan(
			&v.SequenceID,
			&v.Version,
			&appliedOn,
			&v.AppliedByUser,
			&v.AppliedByTool,
			&v.AppliedByToolVersion,
			&status,
			&v.DurationMs,
			&failedPath,
			&failedErr,
			&artifacts,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan tracked version row")
		}

		v.AppliedOn = appliedOn.Time
		v.Status = Status(status)
		v.AdditionalArtifacts = artifacts.String
		if failedPath.Valid {
			v.FailedScriptPath = &failedPath.String
		}
		if failedErr.Valid {
			v.FailedScriptError = &failedErr.String
		}

		versions = append(versions, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate tracked version rows")
	}

	return NewVersionSet(versions), nil
}

// GetAllAppliedVersions returns the Successful rows in tracking order.
func (s *Store) GetAllAppliedVersions(ctx context.Context, q platform.Querier) ([]*DbVersion, error) {
	vs, err := s.GetAllVersions(ctx, q)
	if err != nil {
		return nil, err
	}

	return vs.Applied(), nil
}

// GetCurrentVersion returns the highest applied version, or an empty string.
func (s *Store) GetCurrentVersion(ctx context.Context, q platform.Querier) (string, error) {
	vs, err := s.GetAllVersions(ctx, q)
	if err != nil {
		return "", err
	}

	return vs.Current(), nil
}

// InsertOrUpsertVersion records the outcome of applying a version. When
// resuming, the version already has a Failed row which is updated in place,
// otherwise a new row is inserted.
func (s *Store) InsertOrUpsertVersion(ctx context.Context, q platform.Querier, v *DbVersion, resuming bool) error {
	if v.Version == "" {
		return errors.New("tracked version has no name")
	}

	if v.IsFailed() && (v.FailedScriptPath == nil || *v.FailedScriptPath == "") {
		return errors.Errorf("failed version %s must name the script that failed", v.Version)
	}

	if v.Status == "" {
		v.Status = Successful
	}

	template := s.dialect.InsertVersionSQL()
	if resuming {
		template = s.dialect.UpdateVersionSQL()
	}

	err := s.ExecuteSQL(
		ctx,
		q,
		template,
		v.Version,
		v.AppliedOn.UTC(),
		v.AppliedByUser,
		v.AppliedByTool,
		v.AppliedByToolVersion,
		string(v.Status),
		v.DurationMs,
		nullable(v.FailedScriptPath),
		nullable(v.FailedScriptError),
		v.AdditionalArtifacts,
	)

	return errors.Wrapf(err, "failed to record version %s", v.Version)
}

// ExecuteSQL renders the reserved identifier tokens of stmt and executes it.
func (s *Store) ExecuteSQL(ctx context.Context, q platform.Querier, stmt string, args ...any) error {
	query, err := platform.Render(s.dialect, s.target, stmt)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (s *Store) exists(ctx context.Context, q platform.Querier, stmt string, args ...any) (bool, error) {
	query, err := platform.Render(s.dialect, s.target, stmt)
	if err != nil {
		return false, err
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return false, errors.WithStack(err)
	}
	defer func() { _ = rows.Close() }()

	found := rows.Next()
	return found, errors.WithStack(rows.Err())
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}

	return *s
}
