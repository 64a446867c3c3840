package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querykit/internal/domain"
	"querykit/internal/infrastructure/metrics"
	"querykit/internal/infrastructure/storage/memory"
	"querykit/internal/shop"
)

func testConfig(t *testing.T) RouterConfig {
	t.Helper()
	reg, err := shop.NewRegistry()
	require.NoError(t, err)

	store := memory.NewStore()
	for _, tbl := range shop.Fixtures().Tables() {
		require.NoError(t, store.Insert(tbl.Table, tbl.Rows...))
	}
	repo, err := memory.NewListRepo(store)
	require.NoError(t, err)

	m := metrics.New()
	return RouterConfig{
		Service:   domain.NewQueryService(domain.QueryServiceConfig{Repo: repo, Entities: reg, Observer: m}),
		Resources: shop.Resources(),
		Schemas:   shop.Schemas(),
		Entities:  reg,
		Metrics:   m,
	}
}

type listBody struct {
	Items []map[string]any `json:"items"`
	Meta  struct {
		CurrentPage  int `json:"current_page"`
		ItemsPerPage int `json:"items_per_page"`
		TotalPages   int `json:"total_pages"`
		TotalItems   int `json:"total_items"`
	} `json:"meta"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details struct {
		Errors []struct {
			Loc  []string `json:"loc"`
			Msg  string   `json:"msg"`
			Type string   `json:"type"`
		} `json:"errors"`
	} `json:"details"`
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func names(items []map[string]any, key string) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, it[key])
	}
	return out
}

func TestList(t *testing.T) {
	router := NewRouter(testConfig(t))

	tests := []struct {
		name   string
		target string
		key    string
		want   []any
	}{
		{"search", "/api/v1/categories?search=kit", "name", []any{"kitchen"}},
		{"ilike with range", "/api/v1/products?name__ilike=pan&price__lt=3000&price__gt=1500", "name", []any{"Frying Pan"}},
		{"nested many", "/api/v1/products?categories__id__in=1,2,3", "name", []any{"Frying Pan", "Toaster", "Table Soccer"}},
		{"repeated sequence key", "/api/v1/products?categories__id__in=1&categories__id__in=2&categories__id__in=3", "name", []any{"Frying Pan", "Toaster", "Table Soccer"}},
		{"order by relation", "/api/v1/orders?order_by=-shipping_address__line_1,-id", "id", []any{3.0, 4.0, 2.0, 1.0}},
		{"default order", "/api/v1/categories?size=3", "id", []any{1.0, 2.0, 3.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			body := decode[listBody](t, rec)
			assert.Equal(t, tt.want, names(body.Items, tt.key))
		})
	}
}

func TestList_Pagination(t *testing.T) {
	router := NewRouter(testConfig(t))

	body := decode[listBody](t, get(t, router, "/api/v1/categories?page=2&size=3"))
	assert.Len(t, body.Items, 3)
	assert.Equal(t, 2, body.Meta.CurrentPage)
	assert.Equal(t, 3, body.Meta.ItemsPerPage)
	assert.Equal(t, 3, body.Meta.TotalPages)
	assert.Equal(t, 7, body.Meta.TotalItems)

	body = decode[listBody](t, get(t, router, "/api/v1/orders?paging=offset&offset=2&limit=2"))
	assert.Equal(t, []any{3.0, 4.0}, names(body.Items, "id"))
	assert.Equal(t, 2, body.Meta.CurrentPage)

	body = decode[listBody](t, get(t, router, "/api/v1/categories?get_all=true&size=2"))
	assert.Len(t, body.Items, 7)
	assert.Equal(t, 1, body.Meta.TotalPages)
	assert.Equal(t, 7, body.Meta.ItemsPerPage)
}

func TestList_Errors(t *testing.T) {
	router := NewRouter(testConfig(t))

	t.Run("coercion", func(t *testing.T) {
		rec := get(t, router, "/api/v1/products?price__lt=abc&categories__id__in=x")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode[errorBody](t, rec)
		assert.Equal(t, "VALIDATION_ERROR", body.Code)
		require.Len(t, body.Details.Errors, 2)
		assert.Equal(t, []string{"query", "price__lt"}, body.Details.Errors[0].Loc)
		assert.Equal(t, "int_parsing", body.Details.Errors[0].Type)
	})

	t.Run("page bounds", func(t *testing.T) {
		rec := get(t, router, "/api/v1/products?size=500")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode[errorBody](t, rec)
		require.Len(t, body.Details.Errors, 1)
		assert.Equal(t, []string{"query", "size"}, body.Details.Errors[0].Loc)
		assert.Equal(t, "less_than_equal", body.Details.Errors[0].Type)
	})

	t.Run("invalid order is ignored", func(t *testing.T) {
		rec := get(t, router, "/api/v1/products?order_by=nope,-price")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[listBody](t, rec)
		assert.Equal(t, 52999.0, body.Items[0]["price"])
	})

	t.Run("unknown resource", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(t, router, "/api/v1/customers").Code)
	})
}

func TestCount(t *testing.T) {
	router := NewRouter(testConfig(t))

	rec := get(t, router, "/api/v1/products/count?price__gt=5000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":4}`, rec.Body.String())
}

func TestSchemas(t *testing.T) {
	router := NewRouter(testConfig(t))

	rec := get(t, router, "/api/v1/schemas/OrderFilters")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Name        string `json:"name"`
		SearchField string `json:"search_field"`
		Fields      []struct {
			Key  string `json:"key"`
			Wire string `json:"wire"`
		} `json:"fields"`
	}](t, rec)
	assert.Equal(t, "OrderFilters", body.Name)
	assert.Equal(t, "search", body.SearchField)

	keys := make(map[string]string)
	for _, f := range body.Fields {
		keys[f.Key] = f.Wire
	}
	assert.Contains(t, keys, "shipping_address__zip_code__in")
	assert.Contains(t, keys, "items__qty__gte")
	assert.Equal(t, "string", keys["shipping_address__zip_code__in"])

	rec = get(t, router, "/api/v1/schemas/Nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, rec).Code)

	rec = get(t, router, "/api/v1/meta/order")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"shipping_address"`)
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(testConfig(t))

	assert.Equal(t, http.StatusOK, get(t, router, "/health/live").Code)
	assert.Equal(t, http.StatusOK, get(t, router, "/health/ready").Code)

	get(t, router, "/api/v1/categories")
	rec := get(t, router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `querykit_http_requests_total{method="GET",route="/api/v1/categories",status="200"} 1`)
	assert.Contains(t, body, `querykit_queries_compiled_total{entity="category"} 1`)
}

func TestNewHandler_CORSAndGzip(t *testing.T) {
	cfg := testConfig(t)
	cfg.CORSOrigins = []string{"https://shop.example"}
	cfg.Gzip = true
	h := NewHandler(cfg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}

func TestRecovery(t *testing.T) {
	cfg := testConfig(t)
	router := NewRouter(cfg)
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	rec := get(t, router, "/boom")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	}](t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body.Details["request_id"])

	metrics := get(t, router, "/metrics").Body.String()
	assert.Contains(t, metrics, `querykit_http_requests_total{method="GET",route="/boom",status="500"} 1`)
}
