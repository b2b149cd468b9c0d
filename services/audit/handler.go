package audit

import (
	"salesdesk/pkg/errutil"
	"salesdesk/pkg/httpapi"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query", err))
		return
	}

	res, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httpapi.OKWithMeta(c, res.Logs, map[string]any{"pagination": res.PageInfo})
}
