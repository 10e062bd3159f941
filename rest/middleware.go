package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bitbucket.org/mmdatafocus/clinic_backend/utils"
)

// RequestContextMiddleware seeds the request context with the audit actor
// from the x-user header (default "system") and a correlation id, which is
// echoed back so clients can quote it in bug reports.
func RequestContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		actor := c.GetHeader("x-user")
		if actor == "" {
			actor = utils.DefaultActor
		}
		ctx = utils.SetActorInContext(ctx, actor)

		correlationId := c.GetHeader("x-correlation-id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header("x-correlation-id", correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
