package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/VonteruManoj/GenMan/internal/handlers"
	"github.com/VonteruManoj/GenMan/internal/requestdata"
)

type RouterConfig struct {
	SearchHandler    *handlers.SemanticSearchHandler
	SummarizeHandler *handlers.SummarizeHandler
	IngestionHandler *handlers.IngestionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders: []string{
			"Authorization", "Content-Type", "X-Requested-With",
			"X-Org-Id", "X-Zt-User-Id", "X-Zt-Causer-Id", "X-Zt-Causer-Type",
			"X-Zt-Org-Id", "X-Zt-Project-Id",
		},
	}))

	v1 := router.Group("/api/v1")
	v1.Use(requestdata.Middleware())

	v1.GET("/health", handlers.HealthCheck)

	ss := v1.Group("/semantic-search")
	{
		ss.GET("/search", cfg.SearchHandler.Search)
		ss.GET("/suggestions", cfg.SearchHandler.Suggestions)
		ss.GET("/summarize", cfg.SummarizeHandler.Summarize)
		ss.GET("/tags", cfg.SearchHandler.Tags)
		ss.GET("/connectors", cfg.SearchHandler.Connectors)
		ss.GET("/documents", cfg.SearchHandler.Documents)
		ss.GET("/languages", cfg.SearchHandler.Languages)
		ss.GET("/deployments/:uuid/has-documents", cfg.SearchHandler.DeploymentHasDocuments)

		ss.POST("/documents", cfg.IngestionHandler.IngestDocument)
		ss.DELETE("/documents/:documentId", cfg.IngestionHandler.DeleteDocument)
		ss.DELETE("/sources/:sourceId/documents", cfg.IngestionHandler.DeleteSourceDocuments)
	}

	return router
}
