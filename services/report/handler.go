package report

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

func (h *Handler) Dashboard(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	stats, err := h.service.Dashboard(c.Request.Context(), principal)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, stats)
}

func (h *Handler) Activities(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	activities, err := h.service.Activities(c.Request.Context(), principal)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, activities)
}

func (h *Handler) Report(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req Request
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query", err))
		return
	}

	r, err := h.service.Report(c.Request.Context(), principal, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, r)
}
