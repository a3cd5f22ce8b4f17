package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/slotline/booking-backend/internal/services"
	"github.com/slotline/booking-backend/internal/utils"
)

// TouchSession refreshes the caller's presence row on every authenticated
// request so the connected-users report reflects actual activity, not just
// sign-ins. Runs after AuthMiddleware; requests without a user context pass
// through untouched.
func TouchSession(sessions *services.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userCtx, ok := GetUserContext(c); ok {
			sessions.Touch(userCtx.UserID, utils.GetUserAgent(c), utils.GetRealIP(c))
		}

		c.Next()
	}
}
