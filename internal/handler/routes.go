package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/job-portal-api/internal/middleware"
	"github.com/noah-isme/job-portal-api/internal/models"
)

// Handlers groups the endpoint handlers mounted under the API prefix.
type Handlers struct {
	Auth         *AuthHandler
	Jobs         *JobHandler
	Applications *ApplicationHandler
	Profile      *ProfileHandler

	// DownloadMiddleware runs before file downloads, e.g. an audit hook.
	DownloadMiddleware []gin.HandlerFunc
}

// RegisterRoutes mounts the API. The session middleware must already be
// installed on api.
func RegisterRoutes(api gin.IRouter, h Handlers) {
	session := middleware.RequireSession()
	employer := middleware.RBAC(models.RoleEmployer)
	employerOrAdmin := middleware.RBAC(models.RoleEmployer, models.RoleAdmin)
	seeker := middleware.RBAC(models.RoleJobSeeker)

	if h.Auth != nil {
		auth := api.Group("/auth")
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/me", session, h.Auth.Me)

		api.PUT("/users/password", session, h.Auth.ChangePassword)
	}

	if h.Profile != nil {
		api.GET("/users/profile", session, h.Profile.Get)
		api.PUT("/users/profile", session, h.Profile.Update)

		download := append(append([]gin.HandlerFunc{}, h.DownloadMiddleware...), h.Profile.Download)
		api.GET("/files/download", download...)
	}

	if h.Jobs != nil {
		jobs := api.Group("/jobs")
		jobs.GET("", h.Jobs.List)
		jobs.GET("/:id", h.Jobs.Get)
		jobs.POST("", employer, h.Jobs.Create)
		jobs.PUT("/:id", employer, h.Jobs.Update)
		jobs.DELETE("/:id", employerOrAdmin, h.Jobs.Delete)
		jobs.GET("/:id/applications", employerOrAdmin, h.Jobs.Applications)
		jobs.GET("/:id/applications/export", employerOrAdmin, h.Jobs.Export)
	}

	if h.Applications != nil {
		apps := api.Group("/applications")
		apps.POST("", seeker, h.Applications.Apply)
		apps.GET("", seeker, h.Applications.List)
		apps.GET("/:id", session, h.Applications.Get)
		apps.PUT("/:id/status", employerOrAdmin, h.Applications.UpdateStatus)
		apps.DELETE("/:id", seeker, h.Applications.Withdraw)
	}
}
