package repository

import (
	"context"
	"database/sql"
	"net/http"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

const (
	jobOne = "0b8f6f2e-3c1a-4d5e-9a7b-1c2d3e4f5a61"
	jobTwo = "7d4e2a91-5b6c-4f08-8e1d-2a3b4c5d6e72"
)

var jobRowColumns = []string{"id", "employer_id", "title", "description", "requirements", "responsibilities", "job_type", "location", "salary_min", "salary_max", "salary_currency", "experience_required", "education_required", "application_deadline", "positions_available", "is_active", "skills_required", "company_name", "created_at", "updated_at"}

func TestListJobsAppliesFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(jobRowColumns).
		AddRow(jobOne, "e1", "Go Developer", "Build APIs", nil, nil, "full_time", "Jakarta", 1000.0, 2000.0, "USD", nil, nil, nil, 1, true, "go, sql", "Acme", now, now)
	mock.ExpectQuery(`SELECT .* FROM jobs j JOIN users u ON u.id = j.employer_id WHERE j.is_active = TRUE AND \(LOWER\(j.title\) LIKE \$1 .*\) AND LOWER\(COALESCE\(j.location, ''\)\) LIKE \$2 AND j.job_type = \$3 ORDER BY j.created_at DESC LIMIT 10 OFFSET 10`).
		WithArgs("%go%", "%jakarta%", "full_time").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM jobs j JOIN users u")).
		WithArgs("%go%", "%jakarta%", "full_time").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	jobs, total, err := repo.List(context.Background(), models.JobFilter{Search: " Go ", Location: "Jakarta", JobType: "full_time", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 11, total)
	require.NotNil(t, jobs[0].CompanyName)
	assert.Equal(t, "Acme", *jobs[0].CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListJobsDefaultsPaging(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	mock.ExpectQuery(`WHERE j.is_active = TRUE ORDER BY j.created_at DESC LIMIT 20 OFFSET 0`).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	jobs, total, err := repo.List(context.Background(), models.JobFilter{PageSize: 500})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnerOf(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT employer_id FROM jobs WHERE id = $1")).
		WithArgs(jobOne).
		WillReturnRows(sqlmock.NewRows([]string{"employer_id"}).AddRow("e1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT employer_id FROM jobs WHERE id = $1")).
		WithArgs(jobTwo).
		WillReturnError(sql.ErrNoRows)

	owner, err := repo.OwnerOf(context.Background(), jobOne)
	require.NoError(t, err)
	assert.Equal(t, "e1", owner)

	_, err = repo.OwnerOf(context.Background(), jobTwo)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobApplyMutation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	m, err := pipeline.BuildMutation(pipeline.JobRegistry, jobOne, models.RoleEmployer, pipeline.RawFields{"title": "Senior Go Developer"})
	require.NoError(t, err)

	updated := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE jobs SET title = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at")).
		WithArgs("Senior Go Developer", jobOne).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updated))

	at, err := repo.ApplyMutation(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, updated, at)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteJobMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM jobs WHERE id = $1")).
		WithArgs(jobOne).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), jobOne)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateJob(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	mock.ExpectExec("INSERT INTO jobs").WillReturnResult(sqlmock.NewResult(0, 1))

	job := &models.Job{EmployerID: "e1", Title: "Go", Description: "APIs", PositionsAvailable: 1, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobLookupsSkipMalformedIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)
	ctx := context.Background()

	for _, id := range []string{"job-1", "", "1; DROP TABLE jobs", "urn:uuid:" + jobOne} {
		_, err := repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, sql.ErrNoRows, id)
		_, err = repo.OwnerOf(ctx, id)
		assert.ErrorIs(t, err, sql.ErrNoRows, id)
		assert.ErrorIs(t, repo.Delete(ctx, id), appErrors.ErrNotFound, id)

		m, err := pipeline.BuildMutation(pipeline.JobRegistry, id, models.RoleEmployer, pipeline.RawFields{"title": "Go"})
		require.NoError(t, err)
		_, err = repo.ApplyMutation(ctx, m)
		assert.ErrorIs(t, err, appErrors.ErrNotFound, id)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobApplyMutationMapsSalaryCheck(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	m, err := pipeline.BuildMutation(pipeline.JobRegistry, jobOne, models.RoleEmployer, pipeline.RawFields{"salary_max": 10})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE jobs SET salary_max = $1")).
		WillReturnError(&pq.Error{Code: "23514", Constraint: "jobs_salary_range"})

	_, err = repo.ApplyMutation(context.Background(), m)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, pipeline.ErrSalaryRange.Message, appErr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapCheckViolation(t *testing.T) {
	other := &pq.Error{Code: "23514", Constraint: "users_role_check"}
	err := mapCheckViolation(other)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, errConstraintViolation.Message, appErrors.FromError(err).Message)

	unique := &pq.Error{Code: "23505"}
	assert.Same(t, unique, mapCheckViolation(unique))
	assert.Nil(t, mapCheckViolation(nil))
}
