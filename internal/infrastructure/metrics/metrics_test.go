package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querykit/internal/core/apperror"
)

func TestObserveCompile(t *testing.T) {
	m := New()

	m.ObserveCompile("product", time.Millisecond, nil)
	m.ObserveCompile("product", time.Millisecond, nil)
	m.ObserveCompile("product", time.Millisecond, apperror.NewInvalidOperator("price__xx", "xx"))
	m.ObserveCompile("order", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.compiled.WithLabelValues("product")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compileFailures.WithLabelValues("product", apperror.CodeInvalidOperator)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compileFailures.WithLabelValues("order", apperror.CodeInternal)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.compiled.WithLabelValues("order")))
}

func TestObserveRowsAndRequests(t *testing.T) {
	m := New()
	m.ObserveRows("category", 7)
	m.ObserveRows("category", 3)
	m.ObserveRequest("/api/v1/categories", http.MethodGet, http.StatusOK, 10*time.Millisecond)

	assert.Equal(t, 10.0, testutil.ToFloat64(m.rows.WithLabelValues("category")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/v1/categories", "GET", "200")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCompile("product", time.Millisecond, nil)
	require.NoError(t, m.GaugeFunc("db_pool_acquired_conns", "Acquired connections.", func() float64 { return 3 }))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `querykit_queries_compiled_total{entity="product"} 1`))
	assert.True(t, strings.Contains(body, "querykit_db_pool_acquired_conns 3"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
