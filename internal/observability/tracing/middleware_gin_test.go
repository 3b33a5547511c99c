package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/dreamforge/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareNamesSpanByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	r := gin.New()
	r.Use(GinMiddleware())
	r.POST("/api/dreams", func(c *gin.Context) {
		ctx := obscontext.WithAccountID(c.Request.Context(), "acc-1")
		c.Request = c.Request.WithContext(ctx)
		_ = c.Error(errors.New("replicate unavailable"))
		c.Status(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/dreams", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	dream := spans[0]
	assert.Equal(t, "POST /api/dreams", dream.Name())
	assert.Equal(t, codes.Error, dream.Status().Code)
	attrs := spanAttrs(dream)
	assert.Equal(t, int64(http.StatusBadGateway), attrs["http.response.status_code"].AsInt64())
	assert.Equal(t, "acc-1", attrs["account_id"].AsString())
	require.Len(t, dream.Events(), 1)

	missing := spans[1]
	assert.Equal(t, "GET unmatched", missing.Name())
	assert.Equal(t, codes.Unset, missing.Status().Code)
}
