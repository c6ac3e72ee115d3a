package pipeline

import (
	"github.com/noah-isme/job-portal-api/internal/models"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

// RequestContext carries everything a pipeline run needs from the request.
// Handlers build it once per call.
type RequestContext struct {
	Actor  *models.Actor
	Fields RawFields
	Files  map[string]FileDescriptor
}

// RequireActor returns the authenticated actor or an authentication error.
func (rc RequestContext) RequireActor() (*models.Actor, error) {
	if rc.Actor == nil || rc.Actor.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	return rc.Actor, nil
}
