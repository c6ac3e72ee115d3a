package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	"github.com/noah-isme/job-portal-api/internal/service"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
	"github.com/noah-isme/job-portal-api/pkg/response"
)

type jobService interface {
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	Create(ctx context.Context, rc pipeline.RequestContext, req dto.CreateJobRequest) (*models.Job, error)
	Update(ctx context.Context, rc pipeline.RequestContext, jobID string) (*dto.UpdateResult, error)
	Delete(ctx context.Context, rc pipeline.RequestContext, jobID string) error
	Applications(ctx context.Context, rc pipeline.RequestContext, jobID string) ([]models.ApplicationDetail, error)
}

type applicantExporter interface {
	ExportApplicants(ctx context.Context, rc pipeline.RequestContext, jobID, format string) (*service.ExportResult, error)
}

// JobHandler exposes job posting endpoints.
type JobHandler struct {
	jobs   jobService
	export applicantExporter
}

// NewJobHandler constructs the handler.
func NewJobHandler(jobs jobService, export applicantExporter) *JobHandler {
	return &JobHandler{jobs: jobs, export: export}
}

// List godoc
// @Summary List active jobs
// @Tags Jobs
// @Produce json
// @Param search query string false "Search in title, description and skills"
// @Param location query string false "Location filter"
// @Param job_type query string false "Job type"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	var filter models.JobFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}

	items, pagination, err := h.jobs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, "Jobs retrieved", items, pagination)
}

// Get godoc
// @Summary Get job
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Job retrieved", job)
}

// Create godoc
// @Summary Post a job
// @Tags Jobs
// @Accept json
// @Produce json
// @Param payload body dto.CreateJobRequest true "Job payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid job payload"))
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)}, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Job created successfully", job)
}

// Update godoc
// @Summary Partially update a job
// @Description Only whitelisted fields are applied; unknown fields are ignored.
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [put]
func (h *JobHandler) Update(c *gin.Context) {
	rc, err := requestContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.jobs.Update(c.Request.Context(), rc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Job updated successfully", res)
}

// Delete godoc
// @Summary Delete a job
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [delete]
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.jobs.Delete(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)}, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Job deleted successfully", nil)
}

// Applications godoc
// @Summary List applications of a job
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id}/applications [get]
func (h *JobHandler) Applications(c *gin.Context) {
	items, err := h.jobs.Applications(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)}, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Applications retrieved", items)
}

// Export godoc
// @Summary Export applicants
// @Tags Jobs
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Job ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id}/applications/export [get]
func (h *JobHandler) Export(c *gin.Context) {
	if h.export == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	result, err := h.export.ExportApplicants(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)}, c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
