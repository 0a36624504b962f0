package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tradebook/internal/actor"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

// ActorMiddleware lifts the identity asserted by the session layer into the
// request context. Reads are allowed anonymously; writes require an actor.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if id != "" {
			a := actor.Actor{
				ID:   id,
				Name: strings.TrimSpace(c.GetHeader(HeaderActorName)),
				Role: strings.TrimSpace(c.GetHeader(HeaderActorRole)),
			}
			c.Request = c.Request.WithContext(actor.WithActor(c.Request.Context(), a))
		}
		c.Next()
	}
}

func requireActor(c *gin.Context) (actor.Actor, bool) {
	a, ok := actor.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return actor.Actor{}, false
	}
	return a, true
}

func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := requireActor(c)
		if !ok {
			return
		}
		if err := s.authz.Authorize(c.Request.Context(), a, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
