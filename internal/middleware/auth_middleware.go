package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/staylong/rental-backend/pkg/jwt"
)

// AdminContextKey is the key used to store the admin in the gin context
const AdminContextKey = "admin"

// AdminRole is required on every back-office route
const AdminRole = "admin"

// AdminContext represents the authenticated back-office user
type AdminContext struct {
	Subject string   `json:"subject"`
	Email   string   `json:"email"`
	Roles   []string `json:"roles"`
}

func abortUnauthorized(c *gin.Context, errCode, message, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   errCode,
		"message": message,
		"code":    code,
	})
}

// AdminAuthMiddleware validates the bearer admin token and requires the admin role
func AdminAuthMiddleware(jwtService *jwt.Service, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := logrus.Fields{"path": c.Request.URL.Path, "ip": c.ClientIP()}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.WithFields(fields).Warn("Auth failed: missing authorization header")
			abortUnauthorized(c, "unauthorized", "Authorization header is required", "MISSING_AUTH_HEADER")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			logger.WithFields(fields).Warn("Auth failed: invalid authorization format")
			abortUnauthorized(c, "unauthorized", "Invalid authorization header format. Expected: Bearer <token>", "INVALID_AUTH_FORMAT")
			return
		}

		claims, err := jwtService.ValidateAdminToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if jwt.IsExpired(err) {
				logger.WithFields(fields).Info("Auth failed: token expired")
				abortUnauthorized(c, "token_expired", "Access token has expired", "TOKEN_EXPIRED")
				return
			}
			logger.WithFields(fields).WithError(err).Warn("Auth failed: invalid token")
			abortUnauthorized(c, "invalid_token", "Invalid access token", "INVALID_TOKEN")
			return
		}

		if !claims.HasRole(AdminRole) {
			logger.WithFields(fields).WithField("subject", claims.Subject).Warn("Auth failed: missing admin role")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "You don't have permission to access this resource",
				"code":    "INSUFFICIENT_PERMISSIONS",
			})
			return
		}

		c.Set(AdminContextKey, AdminContext{
			Subject: claims.Subject,
			Email:   claims.Email,
			Roles:   claims.Roles,
		})
		c.Next()
	}
}

// GetAdminContext retrieves the admin set by AdminAuthMiddleware
func GetAdminContext(c *gin.Context) (AdminContext, bool) {
	value, exists := c.Get(AdminContextKey)
	if !exists {
		return AdminContext{}, false
	}
	admin, ok := value.(AdminContext)
	return admin, ok
}
