package httpapi

import (
	"net/http"

	"salesdesk/pkg/config"
	"salesdesk/pkg/health"
	"salesdesk/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewRouter, NewAPIGroup, NewPublicGroup),
	fx.Invoke(registerHealthEndpoint, registerMetricsEndpoint),
)

func NewRouter(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Tracing(), middleware.Logger(), middleware.Error())
	return r
}

func registerHealthEndpoint(r *gin.Engine, h health.HealthService) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
}

func registerMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	if cfg.Metrics.Enable {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

type Envelope struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Data: data})
}

func OKWithMeta(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, Envelope{Data: data, Meta: meta})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Data: data})
}
