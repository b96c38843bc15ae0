package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/imports", handler.CreateImport)
		v1.GET("/imports", handler.ListImports)
		v1.GET("/imports/:import_id", handler.GetImport)
	}
}

// NewRouter builds the engine with the middleware stack used in every environment.
func NewRouter(handler *Handler, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = handler.cfg.Server.MaxUploadBytes
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware())

	SetupRoutes(router, handler)
	return router
}
