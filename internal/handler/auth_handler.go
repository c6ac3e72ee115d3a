package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/middleware"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
	"github.com/noah-isme/job-portal-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req dto.RegisterRequest, meta dto.RequestMeta) (*dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest, meta dto.RequestMeta) (*dto.AuthResponse, error)
	Logout(ctx context.Context, actor *models.Actor, meta dto.RequestMeta) error
	Me(ctx context.Context, rc pipeline.RequestContext) (*models.User, error)
	ChangePassword(ctx context.Context, rc pipeline.RequestContext, req dto.ChangePasswordRequest, meta dto.RequestMeta) (*dto.UpdateResult, error)
}

// CookieConfig describes the session cookie.
type CookieConfig = middleware.SessionCookie

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	cookie  CookieConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{service: svc, cookie: cookie}
}

// Register godoc
// @Summary Register account
// @Description Create a job seeker or employer account and open a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	response.Created(c, "Registration successful", res)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, res.Token, res.ExpiresAt)
	response.OK(c, "Login successful", res)
}

// Logout godoc
// @Summary Logout current session
// @Description Destroy the session and clear its cookie. Succeeds without a session.
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), actorFromContext(c), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	h.clearSessionCookie(c)
	response.OK(c, "Logout successful", nil)
}

// Me godoc
// @Summary Current account
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Current user", user)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change the password of the current user. Other sessions are revoked.
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body dto.ChangePasswordRequest true "Password payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid password payload"))
		return
	}

	res, err := h.service.ChangePassword(c.Request.Context(), pipeline.RequestContext{Actor: actorFromContext(c)}, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Password changed successfully", res)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	if h.cookie.Name == "" {
		return
	}
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	h.cookie.Clear(c)
}
