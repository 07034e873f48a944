package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/v1/posts/:post_id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/posts/:post_id", "200"))

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/posts/"+id, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/posts/:post_id", "200"))
	assert.Equal(t, 2.0, after-before)
}

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(contentOps.WithLabelValues("like", "liked"))
	RecordOperation("like", "liked")
	assert.Equal(t, 1.0, testutil.ToFloat64(contentOps.WithLabelValues("like", "liked"))-before)

	RecordOperation("publish", "")
	assert.GreaterOrEqual(t, testutil.ToFloat64(contentOps.WithLabelValues("publish", "ok")), 1.0)
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordCacheLookup("profile", true)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quill_cache_lookups_total")
}

func TestRecordCDCEvent(t *testing.T) {
	before := testutil.ToFloat64(cdcEvents.WithLabelValues("unknown", "invalid"))
	RecordCDCEvent("", "invalid")
	assert.Equal(t, 1.0, testutil.ToFloat64(cdcEvents.WithLabelValues("unknown", "invalid"))-before)
}
