package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dwello.app/dealroom/common/logger"
	"dwello.app/dealroom/internal/store"
)

const actorIDKey = "actor_id"

// Auth resolves the bearer token to a participant via the session store.
// Sessions are issued by the identity service; this layer only reads them.
func Auth(sessions store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		session, err := sessions.GetByToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				slog.ErrorContext(c.Request.Context(), "session lookup failed", "error", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session lookup failed"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		if !session.IsValid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		c.Set(actorIDKey, session.ParticipantID)
		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{
			ActorID: logger.Ptr(session.ParticipantID),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// ActorID returns the authenticated participant set by Auth. Zero means the
// route was registered without the middleware, which is a wiring bug.
func ActorID(c *gin.Context) int64 {
	id, _ := c.Get(actorIDKey)
	actorID, _ := id.(int64)
	return actorID
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
