package middleware

import (
	"context"
	"strings"

	"salesdesk/pkg/access"
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/security"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PrincipalLoader resolves the user behind a verified token.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID snowflake.ID) (*access.Principal, error)
}

// Auth verifies the bearer token and stores the caller in the request context.
func Auth(issuer *security.TokenIssuer, loader PrincipalLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abort(c, errutil.Unauthorized("Unauthorized", nil))
			return
		}

		claims, err := issuer.Verify(token)
		if err != nil {
			zap.L().Debug("token verification failed", zap.Error(err))
			abort(c, errutil.Unauthorized("Unauthorized", nil))
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			abort(c, errutil.Unauthorized("Unauthorized", nil))
			return
		}

		principal, err := loader.LoadPrincipal(c.Request.Context(), userID)
		if err != nil {
			abort(c, err)
			return
		}
		if principal == nil {
			abort(c, errutil.Unauthorized("Unauthorized", nil))
			return
		}

		ctx := access.WithPrincipal(c.Request.Context(), principal)
		ctx = access.WithClient(ctx, access.Client{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authorize rejects callers whose role lacks resource:action.
func Authorize(enforcer access.Enforcer, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := access.FromContext(c.Request.Context())
		if !ok {
			abort(c, errutil.Unauthorized("Unauthorized", nil))
			return
		}

		if !enforcer.Can(principal.Role, resource, action) {
			abort(c, errutil.Forbidden("Forbidden", nil))
			return
		}

		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	be := errutil.FromError(err)
	c.AbortWithStatusJSON(be.Code.HTTPStatus(), be.JSON())
}
