package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/middleware"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	"github.com/noah-isme/job-portal-api/internal/service"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
	"github.com/noah-isme/job-portal-api/pkg/response"
)

type jobServiceMock struct {
	filter models.JobFilter
}

func (m *jobServiceMock) List(_ context.Context, filter models.JobFilter) ([]models.Job, *models.Pagination, error) {
	m.filter = filter
	return []models.Job{{ID: "job-1", Title: "Go Developer"}}, &models.Pagination{Page: 2, PageSize: 5, TotalCount: 6}, nil
}

func (m *jobServiceMock) Get(_ context.Context, id string) (*models.Job, error) {
	if id != "job-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Job not found")
	}
	return &models.Job{ID: id}, nil
}

func (m *jobServiceMock) Create(_ context.Context, _ pipeline.RequestContext, req dto.CreateJobRequest) (*models.Job, error) {
	return &models.Job{ID: "job-new", Title: req.Title}, nil
}

func (m *jobServiceMock) Update(_ context.Context, _ pipeline.RequestContext, jobID string) (*dto.UpdateResult, error) {
	return &dto.UpdateResult{ID: jobID}, nil
}

func (m *jobServiceMock) Delete(_ context.Context, _ pipeline.RequestContext, _ string) error {
	return nil
}

func (m *jobServiceMock) Applications(_ context.Context, _ pipeline.RequestContext, _ string) ([]models.ApplicationDetail, error) {
	return nil, nil
}

type exporterMock struct {
	format string
}

func (m *exporterMock) ExportApplicants(_ context.Context, _ pipeline.RequestContext, jobID, format string) (*service.ExportResult, error) {
	m.format = format
	if format == "xlsx" {
		return nil, appErrors.Validation("unsupported export format: xlsx")
	}
	return &service.ExportResult{Filename: "applicants_" + jobID + ".csv", ContentType: "text/csv; charset=utf-8", Data: []byte("Applicant\n")}, nil
}

func newJobRouter(jobs *jobServiceMock, exporter *exporterMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(middleware.ContextActorKey, &models.Actor{ID: "emp-1", Role: models.UserRole(role)})
		}
		c.Next()
	})
	RegisterRoutes(router, Handlers{Jobs: NewJobHandler(jobs, exporter)})
	return router
}

func TestJobHandlerListBindsFiltersAndPagination(t *testing.T) {
	jobs := &jobServiceMock{}
	router := newJobRouter(jobs, &exporterMock{})

	req, _ := http.NewRequest(http.MethodGet, "/jobs?search=go&location=Jakarta&job_type=full_time&page=2&page_size=5", nil)
	w := performRequest(router, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.JobFilter{Search: "go", Location: "Jakarta", JobType: "full_time", Page: 2, PageSize: 5}, jobs.filter)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 6, envelope.Pagination.TotalCount)

	req, _ = http.NewRequest(http.MethodGet, "/jobs?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, performRequest(router, req).Code)
}

func TestJobHandlerRoleGates(t *testing.T) {
	router := newJobRouter(&jobServiceMock{}, &exporterMock{})

	req, _ := http.NewRequest(http.MethodPost, "/jobs", nil)
	assert.Equal(t, http.StatusUnauthorized, performRequest(router, req).Code)

	req, _ = http.NewRequest(http.MethodPost, "/jobs", nil)
	req.Header.Set("X-Test-Role", string(models.RoleJobSeeker))
	assert.Equal(t, http.StatusForbidden, performRequest(router, req).Code)

	req, _ = http.NewRequest(http.MethodDelete, "/jobs/job-1", nil)
	req.Header.Set("X-Test-Role", string(models.RoleAdmin))
	assert.Equal(t, http.StatusOK, performRequest(router, req).Code)

	req, _ = http.NewRequest(http.MethodGet, "/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, performRequest(router, req).Code)
}

func TestJobHandlerExport(t *testing.T) {
	exporter := &exporterMock{}
	router := newJobRouter(&jobServiceMock{}, exporter)

	req, _ := http.NewRequest(http.MethodGet, "/jobs/job-1/applications/export?format=csv", nil)
	req.Header.Set("X-Test-Role", string(models.RoleEmployer))
	w := performRequest(router, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, `attachment; filename="applicants_job-1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Applicant\n", w.Body.String())

	req, _ = http.NewRequest(http.MethodGet, "/jobs/job-1/applications/export?format=xlsx", nil)
	req.Header.Set("X-Test-Role", string(models.RoleEmployer))
	assert.Equal(t, http.StatusBadRequest, performRequest(router, req).Code)
}
