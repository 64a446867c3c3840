// Package v1 provides HTTP API version 1.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"

	"querykit/internal/domain"
	"querykit/internal/domain/filter"
	"querykit/internal/infrastructure/http/v1/handlers"
	"querykit/internal/infrastructure/http/v1/middleware"
	"querykit/internal/infrastructure/metrics"
	"querykit/internal/metadata"
	"querykit/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Service compiles and runs list queries.
	Service *domain.QueryService

	// Resources are mounted at /api/v1/{Path} and /api/v1/{Path}/count.
	Resources []domain.Resource

	// Schemas are described at /api/v1/schemas/{name}.
	Schemas map[string]*filter.Schema

	// Entities are described at /api/v1/meta.
	Entities *metadata.Registry

	Logger *logger.Logger
	Health *handlers.HealthHandler

	// Metrics is optional. When set, requests are observed and the registry
	// is served at MetricsPath.
	Metrics     *metrics.Metrics
	MetricsPath string

	CORSOrigins []string
	Gzip        bool
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	router := gin.New()

	// Recovery sits inside ErrorHandler so a recovered panic is rendered,
	// logged and counted like any other internal error.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(log))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
	}
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := cfg.Health
	if healthHandler == nil {
		healthHandler = handlers.NewHealthHandler("storage", nil)
	}
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(cfg.Metrics.Handler()))
	}

	base := handlers.NewBaseHandler()
	api := router.Group("/api/v1")
	{
		registerResourceRoutes(api, base, cfg)
		registerMetaRoutes(api, base, cfg)
	}

	return router
}

func registerResourceRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Service == nil {
		return
	}
	for _, res := range cfg.Resources {
		h := handlers.NewListHandler(base, cfg.Service, res)
		group := rg.Group("/" + res.Path)
		group.GET("", h.List)
		group.GET("/count", h.Count)
	}
}

func registerMetaRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	if cfg.Schemas != nil {
		h := handlers.NewSchemaHandler(base, cfg.Schemas)
		rg.GET("/schemas", h.List)
		rg.GET("/schemas/:name", h.Get)
	}
	if cfg.Entities != nil {
		h := handlers.NewMetadataHandler(base, cfg.Entities)
		rg.GET("/meta", h.ListEntities)
		rg.GET("/meta/:name", h.GetEntity)
	}
}

// NewHandler wraps the router with CORS and, when enabled, gzip compression.
func NewHandler(cfg RouterConfig) http.Handler {
	var h http.Handler = NewRouter(cfg)

	if len(cfg.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{middleware.HeaderRequestID, middleware.HeaderTraceID},
			MaxAge:         600,
		}).Handler(h)
	}
	if cfg.Gzip {
		h = gzhttp.GzipHandler(h)
	}
	return h
}
