package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/job-portal-api/internal/models"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
	"github.com/noah-isme/job-portal-api/pkg/response"
)

// ContextActorKey is the gin context key storing the resolved *models.Actor.
const ContextActorKey = "currentActor"

type actorResolver interface {
	Authenticate(ctx context.Context, token string) (*models.Actor, error)
}

// SessionCookie describes the cookie carrying the session token.
type SessionCookie struct {
	Name   string
	Domain string
	Secure bool
}

// Clear expires the cookie on the client.
func (sc SessionCookie) Clear(c *gin.Context) {
	if sc.Name == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, "", -1, "/", sc.Domain, sc.Secure, true)
}

// Session attaches the caller resolved from the session cookie or a bearer
// token. Requests without credentials, or with credentials that no longer
// resolve, continue anonymously so public routes such as login stay
// reachable; a stale cookie is cleared. Store failures abort the request.
func Session(auth actorResolver, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookie.Name)
		if token == "" {
			c.Next()
			return
		}

		actor, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, appErrors.ErrUnauthorized) {
				if _, cerr := c.Cookie(cookie.Name); cerr == nil {
					cookie.Clear(c)
				}
				c.Next()
				return
			}
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// RequireSession rejects requests that carry no resolved actor.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFromContext(c) == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFromContext returns the actor attached by Session, or nil.
func ActorFromContext(c *gin.Context) *models.Actor {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return nil
	}
	actor, ok := value.(*models.Actor)
	if !ok {
		return nil
	}
	return actor
}

// SessionToken reads the session token from the cookie, falling back to an
// Authorization bearer header.
func SessionToken(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
			return cookie
		}
	}
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
