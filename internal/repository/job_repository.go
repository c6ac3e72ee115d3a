package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

const jobColumns = `j.id, j.employer_id, j.title, j.description, j.requirements, j.responsibilities, j.job_type, j.location, j.salary_min, j.salary_max, j.salary_currency, j.experience_required, j.education_required, j.application_deadline, j.positions_available, j.is_active, j.skills_required, u.company_name, j.created_at, j.updated_at`

// JobRepository provides database access for job postings.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// List returns active jobs matching filter together with the total count.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	conditions := []string{"j.is_active = TRUE"}
	var args []interface{}

	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+strings.ToLower(s)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(j.title) LIKE $%d OR LOWER(j.description) LIKE $%d OR LOWER(COALESCE(j.skills_required, '')) LIKE $%d)", len(args), len(args), len(args)))
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		args = append(args, "%"+strings.ToLower(loc)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(COALESCE(j.location, '')) LIKE $%d", len(args)))
	}
	if jt := strings.TrimSpace(filter.JobType); jt != "" {
		args = append(args, jt)
		conditions = append(conditions, fmt.Sprintf("j.job_type = $%d", len(args)))
	}

	base := "FROM jobs j JOIN users u ON u.id = j.employer_id WHERE " + strings.Join(conditions, " AND ")
	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY j.created_at DESC LIMIT %d OFFSET %d", jobColumns, base, pageSize, (page-1)*pageSize)

	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	return jobs, total, nil
}

// FindByID returns a job by identifier.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.Job, error) {
	if !validID(id) {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + jobColumns + ` FROM jobs j JOIN users u ON u.id = j.employer_id WHERE j.id = $1`
	var job models.Job
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find job: %w", err)
	}
	return &job, nil
}

// OwnerOf returns the employer id of a job.
func (r *JobRepository) OwnerOf(ctx context.Context, id string) (string, error) {
	if !validID(id) {
		return "", sql.ErrNoRows
	}
	var owner string
	if err := r.db.GetContext(ctx, &owner, `SELECT employer_id FROM jobs WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("find job owner: %w", err)
	}
	return owner, nil
}

// Create inserts a job posting.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	const query = `INSERT INTO jobs (id, employer_id, title, description, requirements, responsibilities, job_type, location, salary_min, salary_max, salary_currency, experience_required, education_required, application_deadline, positions_available, is_active, skills_required, created_at, updated_at)
VALUES (:id, :employer_id, :title, :description, :requirements, :responsibilities, :job_type, :location, :salary_min, :salary_max, :salary_currency, :experience_required, :education_required, :application_deadline, :positions_available, :is_active, :skills_required, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		if mapped := mapCheckViolation(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// ApplyMutation runs a validated mutation against the jobs table. A row
// rejected by a CHECK constraint yields a validation error.
func (r *JobRepository) ApplyMutation(ctx context.Context, m *pipeline.Mutation) (time.Time, error) {
	if !validID(m.TargetID) {
		return time.Time{}, appErrors.ErrNotFound
	}
	updatedAt, err := pipeline.Apply(ctx, r.db, m)
	if err != nil {
		return time.Time{}, mapCheckViolation(err)
	}
	return updatedAt, nil
}

// Delete removes a job; its applications cascade.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return appErrors.ErrNotFound
	}
	return pipeline.ApplyDelete(ctx, r.db, "jobs", id)
}

func normalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
