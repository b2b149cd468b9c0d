package lead

import (
	"net/http"

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
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query", err))
		return
	}

	res, err := h.service.List(c.Request.Context(), principal, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OKWithMeta(c, res.Leads, map[string]any{"pagination": res.PageInfo})
}

func (h *Handler) Get(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	id, err := httpapi.ParamID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	l, err := h.service.Get(c.Request.Context(), principal, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, l)
}

func (h *Handler) Create(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var in LeadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	l, err := h.service.Create(c.Request.Context(), principal, in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.Created(c, l)
}

func (h *Handler) Update(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	id, err := httpapi.ParamID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var in LeadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	res, err := h.service.Update(c.Request.Context(), principal, id, in)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, res)
}

func (h *Handler) Delete(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	id, err := httpapi.ParamID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), principal, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AddNote(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	id, err := httpapi.ParamID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	l, err := h.service.AddNote(c.Request.Context(), principal, id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.Created(c, l)
}
