package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/metrics"
)

// RequireAdmin allows only users listed in ADMIN_IDS.
func RequireAdmin(adminIDs map[int64]struct{}, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			metrics.AuthRejections.WithLabelValues("missing").Inc()
			abort(c, errors.NewUnauthorizedError("Telegram init data required"), logger)
			return
		}
		if _, isAdmin := adminIDs[userID]; !isAdmin {
			metrics.AuthRejections.WithLabelValues("not_admin").Inc()
			abort(c, errors.NewForbiddenError("admin access required").WithUserID(userID), logger)
			return
		}
		c.Next()
	}
}
