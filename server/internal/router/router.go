package router

import (
	"github.com/gin-gonic/gin"
	"github.com/navid-fn/dupe-radar/server/internal/handler"
)

type Config struct {
	DupeHandler *handler.DupeHandler
}

func NewRouter(cfg *Config) *gin.Engine {
	router := gin.Default()

	api := router.Group("/v1/")
	registerDupeRoutes(api, cfg.DupeHandler)

	return router
}
