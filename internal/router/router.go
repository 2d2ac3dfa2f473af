// Package router registers the HTTP routes of the service.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/tvshow-catalog/internal/config"
	"github.com/iliyamo/tvshow-catalog/internal/handler"
	"github.com/iliyamo/tvshow-catalog/internal/middleware"
)

// RegisterRoutes registers routes that are not part of the catalog API.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterShows mounts the /tv-shows resource. Reads go through the
// response cache, writes purge it, and imports are rate limited since
// each one calls the external catalog. rdb may be nil.
func RegisterShows(e *echo.Echo, h *handler.ShowHandler, cfg config.Config, rdb *redis.Client, log *zap.Logger) {
	cache := middleware.NewRedisCache(cfg.Cache, rdb, log)
	purge := middleware.PurgeOnWrite(cfg.Cache, rdb, log)
	limit := middleware.NewTokenBucket(cfg.RateLimit, rdb, log)

	g := e.Group("/tv-shows")
	g.POST("/import", h.Import, limit, purge)
	g.GET("", h.List, cache)
	g.GET("/statistics", h.Statistics, cache)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete, purge)
	g.PATCH("/:id", h.Patch, purge)
}
