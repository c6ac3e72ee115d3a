package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
	"github.com/noah-isme/job-portal-api/pkg/response"
)

type applicationService interface {
	Apply(ctx context.Context, rc pipeline.RequestContext, req dto.ApplyRequest) (*models.Application, error)
	ListMine(ctx context.Context, rc pipeline.RequestContext) ([]models.ApplicationDetail, error)
	Get(ctx context.Context, rc pipeline.RequestContext, id string) (*models.ApplicationDetail, error)
	UpdateStatus(ctx context.Context, rc pipeline.RequestContext, id string, req dto.UpdateApplicationStatusRequest) (*dto.UpdateResult, error)
	Withdraw(ctx context.Context, rc pipeline.RequestContext, id string) error
}

// ApplicationHandler exposes job application endpoints.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(svc applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: svc}
}

// Apply godoc
// @Summary Apply to a job
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.ApplyRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req dto.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application payload"))
		return
	}

	app, err := h.service.Apply(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)}, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Application submitted successfully", app)
}

// List godoc
// @Summary List my applications
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	items, err := h.service.ListMine(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Applications retrieved", items)
}

// Get godoc
// @Summary Get application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	app, err := h.service.Get(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)}, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Application retrieved", app)
}

// UpdateStatus godoc
// @Summary Review an application
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.UpdateApplicationStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id}/status [put]
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateApplicationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	res, err := h.service.UpdateStatus(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)}, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Application status updated", res)
}

// Withdraw godoc
// @Summary Withdraw an application
// @Description Applications that were accepted or rejected cannot be withdrawn.
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [delete]
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	if err := h.service.Withdraw(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)}, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Application withdrawn successfully", nil)
}
