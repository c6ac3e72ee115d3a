package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

const jobListCachePattern = "jobs:list:*"

var (
	errJobNotOwnedUpdate = appErrors.Clone(appErrors.ErrNotFound, "Job not found or you don't have permission to update it")
	errJobNotOwnedDelete = appErrors.Clone(appErrors.ErrNotFound, "Job not found or you don't have permission to delete it")
	errJobNotOwnedView   = appErrors.Clone(appErrors.ErrNotFound, "Job not found or you don't have permission to view its applications")
)

type jobRepository interface {
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error)
	FindByID(ctx context.Context, id string) (*models.Job, error)
	OwnerOf(ctx context.Context, id string) (string, error)
	Create(ctx context.Context, job *models.Job) error
	ApplyMutation(ctx context.Context, m *pipeline.Mutation) (time.Time, error)
	Delete(ctx context.Context, id string) error
}

type jobApplicationLister interface {
	ListByJob(ctx context.Context, jobID string) ([]models.ApplicationDetail, error)
}

type jobListPage struct {
	Items      []models.Job      `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// JobService implements job posting use cases.
type JobService struct {
	jobs      jobRepository
	apps      jobApplicationLister
	cache     *CacheService
	metrics   *MetricsService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// JobServiceDeps groups the optional collaborators of JobService.
type JobServiceDeps struct {
	Cache    *CacheService
	Metrics  *MetricsService
	Audit    auditRecorder
	CacheTTL time.Duration
}

// NewJobService constructs a JobService.
func NewJobService(jobs jobRepository, apps jobApplicationLister, validate *validator.Validate, logger *zap.Logger, deps JobServiceDeps) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &JobService{
		jobs:      jobs,
		apps:      apps,
		cache:     deps.Cache,
		metrics:   deps.Metrics,
		audit:     deps.Audit,
		validator: validate,
		logger:    logger,
		cacheTTL:  deps.CacheTTL,
	}
}

// List returns a page of active jobs, served from cache when possible.
func (s *JobService) List(ctx context.Context, filter models.JobFilter) ([]models.Job, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	key := jobListCacheKey(filter)
	var cached jobListPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, &cached.Pagination, nil
	}

	start := time.Now()
	items, total, err := s.jobs.List(ctx, filter)
	s.metrics.ObserveDBQuery("jobs.list", time.Since(start))
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list jobs")
	}
	if items == nil {
		items = []models.Job{}
	}

	page := jobListPage{Items: items, Pagination: models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}}
	_ = s.cache.Set(ctx, key, page, s.cacheTTL)
	return page.Items, &page.Pagination, nil
}

// Get returns one job.
func (s *JobService) Get(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Job not found")
		}
		return nil, appErrors.Internal(err, "failed to load job")
	}
	return job, nil
}

// Create posts a job owned by the calling employer.
func (s *JobService) Create(ctx context.Context, rc pipeline.RequestContext, req dto.CreateJobRequest) (*models.Job, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleEmployer {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only employers can post jobs")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job payload")
	}
	if req.SalaryMin != nil && req.SalaryMax != nil && *req.SalaryMax < *req.SalaryMin {
		return nil, pipeline.ErrSalaryRange
	}

	job := &models.Job{
		EmployerID:         actor.ID,
		Title:              strings.TrimSpace(req.Title),
		Description:        req.Description,
		Requirements:       req.Requirements,
		Responsibilities:   req.Responsibilities,
		JobType:            req.JobType,
		Location:           req.Location,
		SalaryMin:          req.SalaryMin,
		SalaryMax:          req.SalaryMax,
		SalaryCurrency:     req.SalaryCurrency,
		ExperienceRequired: req.ExperienceRequired,
		EducationRequired:  req.EducationRequired,
		PositionsAvailable: 1,
		IsActive:           true,
	}
	if req.PositionsAvailable != nil {
		job.PositionsAvailable = *req.PositionsAvailable
	}
	if req.ApplicationDeadline != nil && *req.ApplicationDeadline != "" {
		deadline, err := time.Parse("2006-01-02", *req.ApplicationDeadline)
		if err != nil {
			return nil, appErrors.Validation("invalid value for application_deadline")
		}
		job.ApplicationDeadline = &deadline
	}
	if skills := joinSkills(req.SkillsRequired); skills != "" {
		job.SkillsRequired = &skills
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create job")
	}
	s.invalidate(ctx)
	s.record(ctx, actor, models.AuditActionCreate, job.ID, map[string]any{"title": job.Title})
	return job, nil
}

// Update applies a partial update to a job owned by the calling employer.
// Ownership is settled before the payload is looked at, and the salary rule
// runs before any statement is issued.
func (s *JobService) Update(ctx context.Context, rc pipeline.RequestContext, jobID string) (*dto.UpdateResult, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleEmployer {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Only employers can update jobs")
	}

	owner, err := s.jobs.OwnerOf(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errJobNotOwnedUpdate
		}
		return nil, appErrors.Internal(err, "failed to load job")
	}
	if err := pipeline.CheckOwnership(actor, owner); err != nil {
		return nil, errJobNotOwnedUpdate
	}

	m, err := pipeline.BuildMutation(pipeline.JobRegistry, jobID, actor.Role, rc.Fields)
	if err != nil {
		return nil, err
	}
	if err := pipeline.ValidateSalaryRange(m); err != nil {
		return nil, err
	}

	updatedAt, err := s.jobs.ApplyMutation(ctx, m)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, errJobNotOwnedUpdate
		}
		return nil, err
	}
	s.invalidate(ctx)
	s.record(ctx, actor, models.AuditActionUpdate, jobID, map[string]any{"fields": m.Fields()})
	return &dto.UpdateResult{ID: jobID, UpdatedAt: updatedAt}, nil
}

// Delete removes a job. Employers may delete their own jobs, admins any.
func (s *JobService) Delete(ctx context.Context, rc pipeline.RequestContext, jobID string) error {
	actor, err := rc.RequireActor()
	if err != nil {
		return err
	}
	if !actor.HasRole(models.RoleEmployer, models.RoleAdmin) {
		return appErrors.Clone(appErrors.ErrForbidden, "Only employers can delete jobs")
	}

	owner, err := s.jobs.OwnerOf(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errJobNotOwnedDelete
		}
		return appErrors.Internal(err, "failed to load job")
	}
	if err := pipeline.CheckOwnership(actor, owner, models.RoleAdmin); err != nil {
		return errJobNotOwnedDelete
	}

	if err := s.jobs.Delete(ctx, jobID); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return errJobNotOwnedDelete
		}
		return err
	}
	s.invalidate(ctx)
	s.record(ctx, actor, models.AuditActionDelete, jobID, nil)
	return nil
}

// Applications lists the applications received by a job.
func (s *JobService) Applications(ctx context.Context, rc pipeline.RequestContext, jobID string) ([]models.ApplicationDetail, error) {
	actor, err := rc.RequireActor()
	if err != nil {
		return nil, err
	}
	owner, err := s.jobs.OwnerOf(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errJobNotOwnedView
		}
		return nil, appErrors.Internal(err, "failed to load job")
	}
	if err := pipeline.CheckOwnership(actor, owner, models.RoleAdmin); err != nil {
		return nil, errJobNotOwnedView
	}

	items, err := s.apps.ListByJob(ctx, jobID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list applications")
	}
	if items == nil {
		items = []models.ApplicationDetail{}
	}
	return items, nil
}

func (s *JobService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, jobListCachePattern); err != nil {
		s.logger.Warn("job list cache not invalidated", zap.Error(err))
	}
}

func (s *JobService) record(ctx context.Context, actor *models.Actor, action, jobID string, values map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     action,
		Resource:   "jobs",
		ResourceID: &jobID,
		NewValues:  marshalAuditValues(values),
	}); err != nil {
		s.logger.Warn("failed to record job audit log", zap.String("job_id", jobID), zap.Error(err))
	}
}

func jobListCacheKey(f models.JobFilter) string {
	return fmt.Sprintf("jobs:list:%q:%q:%q:%d:%d",
		strings.ToLower(strings.TrimSpace(f.Search)),
		strings.ToLower(strings.TrimSpace(f.Location)),
		strings.TrimSpace(f.JobType),
		f.Page, f.PageSize)
}

func joinSkills(skills []string) string {
	out := make([]string, 0, len(skills))
	for _, sk := range skills {
		if sk = strings.TrimSpace(sk); sk != "" {
			out = append(out, sk)
		}
	}
	return strings.Join(out, ", ")
}
