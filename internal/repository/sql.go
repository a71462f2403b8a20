package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/utils"
)

// Dialect renders the parts of a statement that differ between databases.
type Dialect interface {
	Name() string
	// Placeholder returns the bind parameter for the n-th argument,
	// starting at 1.
	Placeholder(n int) string
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string            { return "mysql" }
func (mysqlDialect) Placeholder(int) string { return "?" }

type postgresDialect struct{}

func (postgresDialect) Name() string              { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// MySQL and Postgres are the supported raw SQL dialects.
var (
	MySQL    Dialect = mysqlDialect{}
	Postgres Dialect = postgresDialect{}
)

var buildColumns = []string{
	"id", "name", "status", "sources",
	"classes", "packages", "fields", "methods", "pool_bytes", "unresolved_references",
	"deserialization_ms", "file_reading_ms", "class_reading_ms", "indexing_ms",
	"index_path", "index_url", "error", "created_at", "finished_at",
}

var finishColumnOrder = []string{
	"status", "classes", "packages", "fields", "methods", "pool_bytes", "unresolved_references",
	"deserialization_ms", "file_reading_ms", "class_reading_ms", "indexing_ms",
	"index_path", "error", "finished_at",
}

// SQLBuildRepository implements BuildRepository with database/sql for
// deployments that do not go through GORM.
type SQLBuildRepository struct {
	db      *sql.DB
	dialect Dialect
	clock   utils.Clock
}

// NewMySQLBuildRepository creates a BuildRepository for MySQL.
func NewMySQLBuildRepository(db *sql.DB) *SQLBuildRepository {
	return NewSQLBuildRepository(db, MySQL)
}

// NewPostgresBuildRepository creates a BuildRepository for PostgreSQL.
func NewPostgresBuildRepository(db *sql.DB) *SQLBuildRepository {
	return NewSQLBuildRepository(db, Postgres)
}

// NewSQLBuildRepository creates a BuildRepository for dialect.
func NewSQLBuildRepository(db *sql.DB, dialect Dialect) *SQLBuildRepository {
	return &SQLBuildRepository{db: db, dialect: dialect, clock: utils.NewRealClock()}
}

// WithClock replaces the clock used for creation times.
func (r *SQLBuildRepository) WithClock(clock utils.Clock) *SQLBuildRepository {
	r.clock = clock
	return r
}

func (r *SQLBuildRepository) placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = r.dialect.Placeholder(from + i)
	}
	return strings.Join(parts, ", ")
}

// CreateBuild inserts a running build.
func (r *SQLBuildRepository) CreateBuild(ctx context.Context, build *Build) error {
	row, err := newIndexBuild(build, r.clock.Now().UTC())
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to encode build sources", err)
	}

	query := fmt.Sprintf("INSERT INTO index_builds (%s) VALUES (%s)",
		strings.Join(buildColumns, ", "), r.placeholders(1, len(buildColumns)))

	_, err = r.db.ExecContext(ctx, query,
		row.ID, row.Name, row.Status, []byte(row.Sources),
		row.Classes, row.Packages, row.Fields, row.Methods, row.PoolBytes, row.UnresolvedReferences,
		row.DeserializationMillis, row.FileReadingMillis, row.ClassReadingMillis, row.IndexingMillis,
		row.IndexPath, row.IndexURL, row.Error, row.CreatedAt, row.FinishedAt,
	)
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeDatabaseError, err, "failed to create build %s", build.ID)
	}
	return nil
}

// FinishBuild stores the outcome of a build.
func (r *SQLBuildRepository) FinishBuild(ctx context.Context, build *Build) error {
	values := finishColumns(build)

	sets := make([]string, len(finishColumnOrder))
	args := make([]interface{}, 0, len(finishColumnOrder)+1)
	for i, column := range finishColumnOrder {
		sets[i] = column + " = " + r.dialect.Placeholder(i+1)
		args = append(args, values[column])
	}
	args = append(args, build.ID)

	query := fmt.Sprintf("UPDATE index_builds SET %s WHERE id = %s",
		strings.Join(sets, ", "), r.dialect.Placeholder(len(finishColumnOrder)+1))
	return r.execOne(ctx, build.ID, query, args...)
}

// SetPublished records the published location of a build's index.
func (r *SQLBuildRepository) SetPublished(ctx context.Context, id string, url string) error {
	query := fmt.Sprintf("UPDATE index_builds SET index_url = %s WHERE id = %s",
		r.dialect.Placeholder(1), r.dialect.Placeholder(2))
	return r.execOne(ctx, id, query, url, id)
}

// execOne runs an update that must touch the row of build id.
func (r *SQLBuildRepository) execOne(ctx context.Context, id, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeDatabaseError, err, "failed to update build %s", id)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeDatabaseError, err, "failed to update build %s", id)
	}
	if affected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "build not found: %s", id)
	}
	return nil
}

// GetBuild retrieves a build by its ID.
func (r *SQLBuildRepository) GetBuild(ctx context.Context, id string) (*Build, error) {
	query := fmt.Sprintf("SELECT %s FROM index_builds WHERE id = %s",
		strings.Join(buildColumns, ", "), r.dialect.Placeholder(1))

	row, err := scanBuild(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "build not found: %s", id)
		}
		return nil, apperrors.Wrapf(apperrors.CodeDatabaseError, err, "failed to get build %s", id)
	}
	return decodeRow(row)
}

// ListBuilds returns builds newest first.
func (r *SQLBuildRepository) ListBuilds(ctx context.Context, filter BuildFilter) ([]*Build, error) {
	var where []string
	var args []interface{}
	if filter.Name != "" {
		args = append(args, filter.Name)
		where = append(where, "name = "+r.dialect.Placeholder(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = "+r.dialect.Placeholder(len(args)))
	}
	args = append(args, filter.limit())

	query := "SELECT " + strings.Join(buildColumns, ", ") + " FROM index_builds"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + r.dialect.Placeholder(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list builds", err)
	}
	defer rows.Close()

	var builds []*Build
	for rows.Next() {
		row, err := scanBuild(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to scan build", err)
		}
		b, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list builds", err)
	}
	return builds, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBuild(s scanner) (*IndexBuild, error) {
	var row IndexBuild
	var indexPath, indexURL, errText sql.NullString
	var finishedAt sql.NullTime

	err := s.Scan(
		&row.ID, &row.Name, &row.Status, &row.Sources,
		&row.Classes, &row.Packages, &row.Fields, &row.Methods, &row.PoolBytes, &row.UnresolvedReferences,
		&row.DeserializationMillis, &row.FileReadingMillis, &row.ClassReadingMillis, &row.IndexingMillis,
		&indexPath, &indexURL, &errText, &row.CreatedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}

	row.IndexPath = indexPath.String
	row.IndexURL = indexURL.String
	row.Error = errText.String
	if finishedAt.Valid {
		row.FinishedAt = &finishedAt.Time
	}
	return &row, nil
}
