package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"salesdesk/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := &config.Config{}
	r := NewRouter(cfg)
	registerMetricsEndpoint(r, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	cfg.Metrics.Enable = true
	r = NewRouter(cfg)
	registerMetricsEndpoint(r, cfg)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestEnvelope(t *testing.T) {
	r := gin.New()
	r.GET("/list", func(c *gin.Context) {
		OKWithMeta(c, []int{1, 2}, map[string]any{"total": 2})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/list", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":[1,2],"meta":{"total":2}}`, w.Body.String())
}
