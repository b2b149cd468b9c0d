package user

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

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	u, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.Created(c, u)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, res)
}

func (h *Handler) Logout(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.service.Logout(c.Request.Context(), principal)
	c.Status(http.StatusNoContent)
}

func (h *Handler) Me(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	u, err := h.service.Get(c.Request.Context(), principal.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, u)
}

func (h *Handler) List(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	users, err := h.service.List(c.Request.Context(), principal)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, users)
}

func (h *Handler) Stats(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), principal)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, stats)
}

func (h *Handler) Create(c *gin.Context) {
	principal, err := httpapi.Principal(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	u, err := h.service.Create(c.Request.Context(), principal, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.Created(c, u)
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

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	u, err := h.service.Update(c.Request.Context(), principal, id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	httpapi.OK(c, u)
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
