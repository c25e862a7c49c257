package router

import (
	"github.com/gin-gonic/gin"
	"github.com/navid-fn/dupe-radar/server/internal/handler"
)

func registerDupeRoutes(router *gin.RouterGroup, dupeHandler *handler.DupeHandler) {
	dupes := router.Group("/dupes")
	{
		dupes.GET("", dupeHandler.GetDupes)
		dupes.POST("", dupeHandler.PostDupes)
		dupes.GET("/stream", dupeHandler.Stream)
	}
	router.GET("/health", dupeHandler.Health)
}
