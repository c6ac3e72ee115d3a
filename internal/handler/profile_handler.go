package handler

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
	"github.com/noah-isme/job-portal-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, rc pipeline.RequestContext) (*dto.ProfileResponse, error)
	Update(ctx context.Context, rc pipeline.RequestContext) (*dto.UpdateResult, error)
	ResolveDownload(token string) (string, error)
}

type fileOpener interface {
	Open(relPath string) (*os.File, error)
}

// ProfileHandler exposes the caller's profile and its stored files.
type ProfileHandler struct {
	service profileService
	files   fileOpener
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(svc profileService, files fileOpener) *ProfileHandler {
	return &ProfileHandler{service: svc, files: files}
}

// Get godoc
// @Summary Get my profile
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Profile retrieved", profile)
}

// Update godoc
// @Summary Partially update my profile
// @Description Accepts JSON or multipart/form-data. Files: resume and profile_picture for job seekers, company_logo for employers.
// @Tags Users
// @Accept json
// @Accept mpfd
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	rc, err := requestContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.service.Update(c.Request.Context(), rc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Profile updated successfully", res)
}

// Download godoc
// @Summary Download a stored upload
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/download [get]
func (h *ProfileHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "download token required"))
		return
	}
	relPath, err := h.service.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.files.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
			return
		}
		response.Error(c, appErrors.Internal(err, "failed to open file"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to stat file"))
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(path.Base(relPath)))
	http.ServeContent(c.Writer, c.Request, path.Base(relPath), info.ModTime(), file)
}
