package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

type mockJobRepo struct {
	jobs      map[string]*models.Job
	listCalls int
	applied   []*pipeline.Mutation
	deleted   []string
	created   []*models.Job
}

func newMockJobRepo(jobs ...*models.Job) *mockJobRepo {
	repo := &mockJobRepo{jobs: make(map[string]*models.Job)}
	for _, j := range jobs {
		repo.jobs[j.ID] = j
	}
	return repo
}

func (m *mockJobRepo) List(_ context.Context, _ models.JobFilter) ([]models.Job, int, error) {
	m.listCalls++
	out := make([]models.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.IsActive {
			out = append(out, *j)
		}
	}
	return out, len(out), nil
}

func (m *mockJobRepo) FindByID(_ context.Context, id string) (*models.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return j, nil
}

func (m *mockJobRepo) OwnerOf(_ context.Context, id string) (string, error) {
	j, ok := m.jobs[id]
	if !ok {
		return "", sql.ErrNoRows
	}
	return j.EmployerID, nil
}

func (m *mockJobRepo) Create(_ context.Context, job *models.Job) error {
	job.ID = "job-new"
	m.created = append(m.created, job)
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepo) ApplyMutation(_ context.Context, mut *pipeline.Mutation) (time.Time, error) {
	m.applied = append(m.applied, mut)
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), nil
}

func (m *mockJobRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.jobs[id]; !ok {
		return appErrors.ErrNotFound
	}
	delete(m.jobs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockApplicationLister struct {
	items []models.ApplicationDetail
}

func (m *mockApplicationLister) ListByJob(_ context.Context, jobID string) ([]models.ApplicationDetail, error) {
	var out []models.ApplicationDetail
	for _, it := range m.items {
		if it.JobID == jobID {
			out = append(out, it)
		}
	}
	return out, nil
}

type memCacheRepo struct {
	store       map[string][]byte
	invalidated []string
}

func (s *memCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *memCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *memCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range s.store {
		if strings.HasPrefix(k, prefix) {
			delete(s.store, k)
		}
	}
	return nil
}

func employerJob(id, owner string) *models.Job {
	return &models.Job{ID: id, EmployerID: owner, Title: "Go Developer", Description: "APIs", PositionsAvailable: 1, IsActive: true}
}

func newJobFixture(jobs ...*models.Job) (*JobService, *mockJobRepo, *memCacheRepo, *mockApplicationLister) {
	repo := newMockJobRepo(jobs...)
	cacheRepo := &memCacheRepo{}
	apps := &mockApplicationLister{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	svc := NewJobService(repo, apps, validator.New(), zap.NewNop(), JobServiceDeps{Cache: cache, Audit: &mockAuditRepo{}})
	return svc, repo, cacheRepo, apps
}

func employerCtx(id string, fields pipeline.RawFields) pipeline.RequestContext {
	return pipeline.RequestContext{Actor: &models.Actor{ID: id, Role: models.RoleEmployer}, Fields: fields}
}

func TestJobListUsesCacheUntilWrite(t *testing.T) {
	svc, repo, cacheRepo, _ := newJobFixture(employerJob("job-1", "emp-1"))
	ctx := context.Background()

	items, page, err := svc.List(ctx, models.JobFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 20, page.PageSize)

	_, _, err = svc.List(ctx, models.JobFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls, "second call is served from cache")

	_, err = svc.Update(ctx, employerCtx("emp-1", pipeline.RawFields{"title": "Senior"}), "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{jobListCachePattern}, cacheRepo.invalidated)

	_, _, err = svc.List(ctx, models.JobFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestJobUpdateAppliesWhitelistedFields(t *testing.T) {
	svc, repo, _, _ := newJobFixture(employerJob("job-1", "emp-1"))

	result, err := svc.Update(context.Background(), employerCtx("emp-1", pipeline.RawFields{
		"title":           "Staff Engineer",
		"employer_id":     "emp-2",
		"skills_required": []any{"go", " sql "},
	}), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", result.ID)
	assert.False(t, result.UpdatedAt.IsZero())

	require.Len(t, repo.applied, 1)
	assert.Equal(t, []string{"title", "skills_required"}, repo.applied[0].Fields())
	skills, _ := repo.applied[0].Value("skills_required")
	assert.Equal(t, "go, sql", skills)
}

func TestJobUpdateSalaryRangeRejectedBeforeApply(t *testing.T) {
	svc, repo, _, _ := newJobFixture(employerJob("job-1", "emp-1"))

	_, err := svc.Update(context.Background(), employerCtx("emp-1", pipeline.RawFields{"salary_min": 50000, "salary_max": 40000}), "job-1")
	require.Error(t, err)
	assert.Equal(t, pipeline.ErrSalaryRange.Message, appErrors.FromError(err).Message)
	assert.Empty(t, repo.applied)

	_, err = svc.Update(context.Background(), employerCtx("emp-1", pipeline.RawFields{"salary_min": 40000, "salary_max": 40000}), "job-1")
	require.NoError(t, err)
	assert.Len(t, repo.applied, 1)
}

func TestJobUpdateOwnershipAndRole(t *testing.T) {
	svc, repo, _, _ := newJobFixture(employerJob("job-1", "emp-1"))
	ctx := context.Background()

	_, err := svc.Update(ctx, employerCtx("emp-2", pipeline.RawFields{"title": "x"}), "job-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, errJobNotOwnedUpdate.Message, appErrors.FromError(err).Message)

	_, err = svc.Update(ctx, employerCtx("emp-1", pipeline.RawFields{"title": "x"}), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	seeker := pipeline.RequestContext{Actor: &models.Actor{ID: "s1", Role: models.RoleJobSeeker}, Fields: pipeline.RawFields{"title": "x"}}
	_, err = svc.Update(ctx, seeker, "job-1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Update(ctx, pipeline.RequestContext{Fields: pipeline.RawFields{"title": "x"}}, "job-1")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.Update(ctx, employerCtx("emp-1", pipeline.RawFields{"unknown": "x"}), "job-1")
	require.Error(t, err)
	assert.Equal(t, pipeline.ErrNoFields.Message, appErrors.FromError(err).Message)
	assert.Empty(t, repo.applied)
}

func TestJobDeleteOwnerOrAdmin(t *testing.T) {
	svc, repo, _, _ := newJobFixture(employerJob("job-1", "emp-1"), employerJob("job-2", "emp-1"))
	ctx := context.Background()

	err := svc.Delete(ctx, employerCtx("emp-2", nil), "job-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, employerCtx("emp-1", nil), "job-1"))

	admin := pipeline.RequestContext{Actor: &models.Actor{ID: "root", Role: models.RoleAdmin}}
	require.NoError(t, svc.Delete(ctx, admin, "job-2"))
	assert.Equal(t, []string{"job-1", "job-2"}, repo.deleted)

	seeker := pipeline.RequestContext{Actor: &models.Actor{ID: "s1", Role: models.RoleJobSeeker}}
	assert.ErrorIs(t, svc.Delete(ctx, seeker, "job-1"), appErrors.ErrForbidden)
}

func TestJobCreate(t *testing.T) {
	svc, repo, _, _ := newJobFixture()
	ctx := context.Background()
	deadline := "2026-12-31"
	lo, hi := 1000.0, 900.0

	_, err := svc.Create(ctx, employerCtx("emp-1", nil), dto.CreateJobRequest{Title: "Go", Description: "APIs", SalaryMin: &lo, SalaryMax: &hi})
	assert.ErrorIs(t, err, pipeline.ErrSalaryRange)

	job, err := svc.Create(ctx, employerCtx("emp-1", nil), dto.CreateJobRequest{
		Title:               " Go ",
		Description:         "APIs",
		ApplicationDeadline: &deadline,
		SkillsRequired:      []string{"go", "", "k8s"},
	})
	require.NoError(t, err)
	assert.Equal(t, "emp-1", job.EmployerID)
	assert.Equal(t, "Go", job.Title)
	require.NotNil(t, job.SkillsRequired)
	assert.Equal(t, "go, k8s", *job.SkillsRequired)
	require.NotNil(t, job.ApplicationDeadline)
	assert.Len(t, repo.created, 1)

	_, err = svc.Create(ctx, employerCtx("emp-1", nil), dto.CreateJobRequest{Title: "Go"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestJobApplicationsVisibleToOwnerAndAdmin(t *testing.T) {
	svc, _, _, apps := newJobFixture(employerJob("job-1", "emp-1"))
	apps.items = []models.ApplicationDetail{{Application: models.Application{ID: "a1", JobID: "job-1"}, ApplicantName: "Sam"}}
	ctx := context.Background()

	items, err := svc.Applications(ctx, employerCtx("emp-1", nil), "job-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = svc.Applications(ctx, employerCtx("emp-2", nil), "job-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	admin := pipeline.RequestContext{Actor: &models.Actor{ID: "root", Role: models.RoleAdmin}}
	items, err = svc.Applications(ctx, admin, "job-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
