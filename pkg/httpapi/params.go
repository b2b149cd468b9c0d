package httpapi

import (
	"salesdesk/pkg/access"
	"salesdesk/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// ParamID parses the :id path parameter as a snowflake id.
func ParamID(c *gin.Context) (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errutil.BadRequest("invalid id", nil)
	}
	return id, nil
}

// Principal returns the authenticated caller stored by middleware.Auth.
func Principal(c *gin.Context) (*access.Principal, error) {
	p, ok := access.FromContext(c.Request.Context())
	if !ok {
		return nil, errutil.Unauthorized("Unauthorized", nil)
	}
	return p, nil
}
