package httpapi

import (
	"salesdesk/pkg/middleware"
	"salesdesk/pkg/security"

	"github.com/gin-gonic/gin"
)

// APIGroup is the authenticated /v1 route group.
type APIGroup struct {
	*gin.RouterGroup
}

// PublicGroup is the unauthenticated /v1 route group.
type PublicGroup struct {
	*gin.RouterGroup
}

func NewAPIGroup(r *gin.Engine, issuer *security.TokenIssuer, loader middleware.PrincipalLoader) APIGroup {
	return APIGroup{RouterGroup: r.Group("/v1", middleware.Auth(issuer, loader))}
}

func NewPublicGroup(r *gin.Engine) PublicGroup {
	return PublicGroup{RouterGroup: r.Group("/v1")}
}
