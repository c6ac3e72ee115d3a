package dto

import (
	"time"

	"github.com/noah-isme/job-portal-api/internal/models"
)

// FileLink is a signed download link for a stored upload.
type FileLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProfileResponse returns the caller's profile with links to stored files
// keyed by column name.
type ProfileResponse struct {
	User  *models.User        `json:"user"`
	Files map[string]FileLink `json:"files,omitempty"`
}
