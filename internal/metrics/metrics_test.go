package metrics

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/radialtree/pkg/errors"
)

func TestRenderHooks(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.OnLayout(ctx, 5, time.Millisecond)
	m.OnReconcile(ctx, 2, 3, 1, time.Millisecond)
	m.OnReconcile(ctx, 1, 0, 0, time.Millisecond)
	m.OnDispatch(ctx, "click", time.Millisecond, nil)
	m.OnDispatch(ctx, "hover", time.Millisecond, errors.New(errors.ErrCodeInvalidInput, "bad"))
	m.OnDispatch(ctx, "hover", time.Millisecond, fmt.Errorf("plain"))
	m.OnSkip(ctx, "empty viewport")

	if got := testutil.ToFloat64(m.visibleNodes); got != 5 {
		t.Errorf("visible nodes = %v", got)
	}
	if got := testutil.ToFloat64(m.reconciles.WithLabelValues("enter")); got != 3 {
		t.Errorf("enter = %v", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("hover", "invalid_input")); got != 1 {
		t.Errorf("hover invalid_input = %v", got)
	}
	if got := testutil.ToFloat64(m.events.WithLabelValues("hover", "internal_error")); got != 1 {
		t.Errorf("hover internal_error = %v", got)
	}
	if got := testutil.ToFloat64(m.skips.WithLabelValues("empty viewport")); got != 1 {
		t.Errorf("skips = %v", got)
	}
}

func TestPipelineAndCacheHooks(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.OnDecodeComplete(ctx, "json", 6, time.Millisecond, nil)
	m.OnRenderComplete(ctx, []string{"svg", "png"}, time.Second, fmt.Errorf("no converter"))
	m.OnCacheHit(ctx, "layout")
	m.OnCacheMiss(ctx, "artifact")
	m.OnCacheSet(ctx, "artifact", 128)

	if got := testutil.ToFloat64(m.decodes.WithLabelValues("json", "ok")); got != 1 {
		t.Errorf("decodes = %v", got)
	}
	if got := testutil.ToFloat64(m.renders.WithLabelValues("png", "error")); got != 1 {
		t.Errorf("renders = %v", got)
	}
	if got := testutil.ToFloat64(m.cacheBytes.WithLabelValues("artifact")); got != 128 {
		t.Errorf("cache bytes = %v", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.OnResponse(context.Background(), "POST", "/api/sessions", 201, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `radialtree_http_requests_total{method="POST",route="/api/sessions",status="201"} 1`) {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
}
