package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	"github.com/noah-isme/job-portal-api/internal/repository"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

var (
	errApplicationNotOwnedWithdraw = appErrors.Clone(appErrors.ErrNotFound, "Application not found or you don't have permission to withdraw it")
	errApplicationNotOwnedReview   = appErrors.Clone(appErrors.ErrNotFound, "Application not found or you don't have permission to update it")
	errApplicationNotFound         = appErrors.Clone(appErrors.ErrNotFound, "Application not found")
)

type applicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
	ListByApplicant(ctx context.Context, applicantID string) ([]models.ApplicationDetail, error)
	Withdraw(ctx context.Context, id string, check repository.StateCheck) error
	Review(ctx context.Context, id string, build repository.ReviewBuilder) (time.Time, error)
}

type applicationJobReader interface {
	FindByID(ctx context.Context, id string) (*models.Job, error)
}

type applicationUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ApplicationService implements job application use cases.
type ApplicationService struct {
	apps      applicationRepository
	jobs      applicationJobReader
	users     applicationUserReader
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewApplicationService constructs an ApplicationService.
func NewApplicationService(apps applicationRepository, jobs applicationJobReader, users applicationUserReader, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ApplicationService{apps: apps, jobs: jobs, users: users, audit: audit, validator: validate, logger: logger, now: time.Now}
}

// Apply submits an application for an open job. The applicant's current
// resume path is copied onto the application.
func (s *ApplicationService) Apply(ctx context.Context, rc pipeline.RequestContext, req dto.ApplyRequest) (*models.Application, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleJobSeeker {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only job seekers can apply for jobs")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	job, err := s.jobs.FindByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Job not found")
		}
		return nil, appErrors.Internal(err, "failed to load job")
	}
	if !job.OpenAt(s.now()) {
		return nil, appErrors.Validation("This job is no longer accepting applications")
	}

	applicant, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load applicant")
	}

	app := &models.Application{
		JobID:       job.ID,
		ApplicantID: actor.ID,
		CoverLetter: req.CoverLetter,
		ResumePath:  applicant.ResumePath,
		Status:      models.ApplicationPending,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "You have already applied for this job")
		}
		return nil, appErrors.Internal(err, "failed to create application")
	}
	s.record(ctx, actor, models.AuditActionCreate, app.ID, map[string]any{"job_id": job.ID})
	return app, nil
}

// ListMine returns the caller's applications.
func (s *ApplicationService) ListMine(ctx context.Context, rc pipeline.RequestContext) ([]models.ApplicationDetail, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, err
	}
	items, err := s.apps.ListByApplicant(ctx, actor.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list applications")
	}
	if items == nil {
		items = []models.ApplicationDetail{}
	}
	return items, nil
}

// Get returns an application visible to its applicant, the job's employer
// or an admin.
func (s *ApplicationService) Get(ctx context.Context, rc pipeline.RequestContext, id string) (*models.ApplicationDetail, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, err
	}
	detail, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errApplicationNotFound
		}
		return nil, appErrors.Internal(err, "failed to load application")
	}
	if actor.HasRole(models.RoleAdmin) || actor.ID == detail.ApplicantID || actor.ID == detail.EmployerID {
		return detail, nil
	}
	return nil, errApplicationNotFound
}

// UpdateStatus records an employer's review decision.
func (s *ApplicationService) UpdateStatus(ctx context.Context, rc pipeline.RequestContext, id string, req dto.UpdateApplicationStatusRequest) (*dto.UpdateResult, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, err
	}
	if !actor.HasRole(models.RoleEmployer, models.RoleAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only employers can update application status")
	}

	updatedAt, err := s.apps.Review(ctx, id, func(state models.ApplicationState) (*pipeline.Mutation, error) {
		if err := pipeline.CheckOwnership(actor, state.EmployerID, models.RoleAdmin); err != nil {
			return nil, errApplicationNotOwnedReview
		}
		m, err := pipeline.BuildMutation(pipeline.ApplicationReviewRegistry, id, actor.Role, pipeline.RawFields{"status": req.Status})
		if err != nil {
			return nil, err
		}
		if err := pipeline.ValidateStatusTransition(state.Status, models.ApplicationStatus(req.Status)); err != nil {
			return nil, err
		}
		return m, nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, appErrors.ErrNotFound) {
			return nil, errApplicationNotOwnedReview
		}
		return nil, err
	}
	s.record(ctx, actor, models.AuditActionUpdate, id, map[string]any{"status": req.Status})
	return &dto.UpdateResult{ID: id, UpdatedAt: updatedAt}, nil
}

// Withdraw deletes an undecided application of the calling job seeker. The
// status check and the delete run under one row lock.
func (s *ApplicationService) Withdraw(ctx context.Context, rc pipeline.RequestContext, id string) error {
	actor, err := rc.RequireActor()
	if err != nil {
		return err
	}
	if actor.Role != models.RoleJobSeeker {
		return appErrors.Clone(appErrors.ErrForbidden, "Only job seekers can withdraw applications")
	}

	err = s.apps.Withdraw(ctx, id, func(state models.ApplicationState) error {
		if err := pipeline.CheckOwnership(actor, state.ApplicantID); err != nil {
			return errApplicationNotOwnedWithdraw
		}
		return pipeline.ValidateWithdrawal(state.Status)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, appErrors.ErrNotFound) {
			return errApplicationNotOwnedWithdraw
		}
		return err
	}
	s.record(ctx, actor, models.AuditActionDelete, id, map[string]any{"reason": "withdrawn"})
	return nil
}

func (s *ApplicationService) record(ctx context.Context, actor *models.Actor, action, appID string, values map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     action,
		Resource:   "applications",
		ResourceID: &appID,
		NewValues:  marshalAuditValues(values),
	}); err != nil {
		s.logger.Warn("failed to record application audit log", zap.String("application_id", appID), zap.Error(err))
	}
}
