package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/job-portal-api/internal/models"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestUpdateSQLIsParameterised(t *testing.T) {
	m, err := BuildMutation(JobRegistry, "job-1", models.RoleEmployer, RawFields{
		"salary_min": 1,
		"title":      "x'); DROP TABLE jobs; --",
	})
	require.NoError(t, err)

	query, args := m.UpdateSQL()
	assert.Equal(t, "UPDATE jobs SET title = $1, salary_min = $2, updated_at = NOW() WHERE id = $3 RETURNING updated_at", query)
	assert.Equal(t, []interface{}{"x'); DROP TABLE jobs; --", float64(1), "job-1"}, args)
	assert.Equal(t, "DELETE FROM applications WHERE id = $1", DeleteSQL("applications"))
}

func TestApplyReturnsRevisionMarker(t *testing.T) {
	db, mock := newMockDB(t)
	m, err := BuildMutation(JobRegistry, "job-1", models.RoleEmployer, RawFields{"title": "Go Engineer"})
	require.NoError(t, err)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE jobs SET title = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at")).
		WithArgs("Go Engineer", "job-1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(ts))

	got, err := Apply(context.Background(), db, m)
	require.NoError(t, err)
	assert.Equal(t, ts, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyReplayYieldsNewMarker(t *testing.T) {
	db, mock := newMockDB(t)
	m, err := BuildMutation(JobRegistry, "job-1", models.RoleEmployer, RawFields{"title": "Go Engineer"})
	require.NoError(t, err)
	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	second := first.Add(time.Second)

	query := regexp.QuoteMeta("UPDATE jobs SET title = $1")
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(first))
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(second))

	a, err := Apply(context.Background(), db, m)
	require.NoError(t, err)
	b, err := Apply(context.Background(), db, m)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyErrors(t *testing.T) {
	db, mock := newMockDB(t)
	m := &Mutation{Table: "jobs", TargetID: "missing", Clauses: []SetClause{{Field: "title", Value: "x"}}}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE jobs")).WillReturnError(sql.ErrNoRows)
	_, err := Apply(context.Background(), db, m)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE jobs")).WillReturnError(errors.New(`pq: column "title" does not exist`))
	_, err = Apply(context.Background(), db, m)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInternal.Status, appErr.Status)
	assert.NotContains(t, appErr.Message, "pq:")

	_, err = Apply(context.Background(), db, &Mutation{Table: "jobs", TargetID: "x"})
	assert.Equal(t, ErrNoFields, err)

	_, err = Apply(context.Background(), db, &Mutation{Table: "jobs", TargetID: "x", Clauses: []SetClause{{Field: "title = 'x' --", Value: 1}}})
	assert.Equal(t, appErrors.ErrInternal.Status, appErrors.FromError(err).Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDelete(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM applications WHERE id = $1")).
		WithArgs("app-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, ApplyDelete(context.Background(), db, "applications", "app-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM applications WHERE id = $1")).
		WithArgs("app-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, errors.Is(ApplyDelete(context.Background(), db, "applications", "app-2"), appErrors.ErrNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}
