package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
)

const applicationDetailSelect = `SELECT a.id, a.job_id, a.applicant_id, a.cover_letter, a.resume_path, a.status, a.created_at, a.updated_at,
	j.title AS job_title, j.employer_id, u.full_name AS applicant_name, u.email AS applicant_email, u.phone AS applicant_phone
FROM applications a
JOIN jobs j ON j.id = a.job_id
JOIN users u ON u.id = a.applicant_id`

const lockApplicationQuery = `SELECT a.id, a.applicant_id, j.employer_id, a.status FROM applications a JOIN jobs j ON j.id = a.job_id WHERE a.id = $1 FOR UPDATE OF a`

// StateCheck decides whether a locked application may be changed.
type StateCheck func(state models.ApplicationState) error

// ReviewBuilder inspects a locked application and returns the mutation to
// apply. Returning an error aborts the transaction without writing.
type ReviewBuilder func(state models.ApplicationState) (*pipeline.Mutation, error)

// ApplicationRepository provides database access for job applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a new ApplicationRepository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts an application. A second application to the same job
// yields ErrDuplicate.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}

	const query = `INSERT INTO applications (id, job_id, applicant_id, cover_letter, resume_path, status, created_at, updated_at) VALUES (:id, :job_id, :applicant_id, :cover_letter, :resume_path, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID returns an application with its job and applicant columns.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	if !validID(id) {
		return nil, sql.ErrNoRows
	}
	var detail models.ApplicationDetail
	if err := r.db.GetContext(ctx, &detail, applicationDetailSelect+` WHERE a.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return &detail, nil
}

// ListByApplicant returns the applications of one job seeker, newest first.
func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID string) ([]models.ApplicationDetail, error) {
	var items []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &items, applicationDetailSelect+` WHERE a.applicant_id = $1 ORDER BY a.created_at DESC`, applicantID); err != nil {
		return nil, fmt.Errorf("list applications by applicant: %w", err)
	}
	return items, nil
}

// ListByJob returns the applications received by one job, oldest first.
func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID string) ([]models.ApplicationDetail, error) {
	var items []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &items, applicationDetailSelect+` WHERE a.job_id = $1 ORDER BY a.created_at ASC`, jobID); err != nil {
		return nil, fmt.Errorf("list applications by job: %w", err)
	}
	return items, nil
}

// Withdraw locks the application, runs check and deletes the row when the
// check passes. No DELETE is issued when check fails.
func (r *ApplicationRepository) Withdraw(ctx context.Context, id string, check StateCheck) (err error) {
	if !validID(id) {
		return sql.ErrNoRows
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin withdrawal: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	state, err := lockApplication(ctx, tx, id)
	if err != nil {
		return err
	}
	if err = check(state); err != nil {
		return err
	}
	if err = pipeline.ApplyDelete(ctx, tx, "applications", id); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit withdrawal: %w", err)
	}
	return nil
}

// Review locks the application, asks build for the mutation and applies it.
func (r *ApplicationRepository) Review(ctx context.Context, id string, build ReviewBuilder) (updatedAt time.Time, err error) {
	if !validID(id) {
		return time.Time{}, sql.ErrNoRows
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("begin review: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	state, err := lockApplication(ctx, tx, id)
	if err != nil {
		return time.Time{}, err
	}
	m, err := build(state)
	if err != nil {
		return time.Time{}, err
	}
	if updatedAt, err = pipeline.Apply(ctx, tx, m); err != nil {
		return time.Time{}, err
	}
	if err = tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("commit review: %w", err)
	}
	return updatedAt, nil
}

func lockApplication(ctx context.Context, tx *sqlx.Tx, id string) (models.ApplicationState, error) {
	var state models.ApplicationState
	if err := tx.GetContext(ctx, &state, lockApplicationQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state, err
		}
		return state, fmt.Errorf("lock application: %w", err)
	}
	return state, nil
}
