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

const userColumns = `id, email, password_hash, role, full_name, phone, skills, experience_years, education, bio, resume_path, profile_picture, company_name, company_website, company_description, company_logo, created_at, updated_at`

// UserRepository provides database access for accounts and profiles.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Create inserts a new account. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, role, full_name, phone, company_name, created_at, updated_at) VALUES (:id, :email, :password_hash, :role, :full_name, :phone, :company_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// ApplyMutation runs a validated mutation against the users table.
func (r *UserRepository) ApplyMutation(ctx context.Context, m *pipeline.Mutation) (time.Time, error) {
	return pipeline.Apply(ctx, r.db, m)
}

// UpdateProfile applies m while holding the row lock and returns the upload
// paths stored before the update. Concurrent profile updates of one user
// serialise here, so each previous file is handed out exactly once.
func (r *UserRepository) UpdateProfile(ctx context.Context, m *pipeline.Mutation) (updatedAt time.Time, previous models.ProfileFiles, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return time.Time{}, previous, fmt.Errorf("begin profile transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const lockQuery = `SELECT resume_path, profile_picture, company_logo FROM users WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &previous, lockQuery, m.TargetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, previous, err
		}
		return time.Time{}, previous, fmt.Errorf("lock profile: %w", err)
	}

	if updatedAt, err = pipeline.Apply(ctx, tx, m); err != nil {
		return time.Time{}, previous, err
	}

	if err = tx.Commit(); err != nil {
		return time.Time{}, previous, fmt.Errorf("commit profile: %w", err)
	}
	return updatedAt, previous, nil
}
