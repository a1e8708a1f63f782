package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/lexcorpus-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lexcorpus-backend/internal/http/middleware"
	"github.com/yungbote/lexcorpus-backend/internal/observability"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	DocumentHandler *httpH.DocumentHandler
	SearchHandler   *httpH.SearchHandler
	ChatHandler     *httpH.ChatHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Documents
		if cfg.DocumentHandler != nil {
			api.POST("/documents/upload", cfg.DocumentHandler.Upload)
			api.GET("/documents", cfg.DocumentHandler.List)
			api.GET("/documents/stats", cfg.DocumentHandler.Stats)
			api.GET("/documents/:id", cfg.DocumentHandler.Get)
			api.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
			api.POST("/documents/:id/reprocess", cfg.DocumentHandler.Reprocess)
			api.GET("/countries/:country/documents", cfg.DocumentHandler.ListByCountry)
			api.GET("/references/documents", cfg.DocumentHandler.CitingDocuments)
		}

		// Search
		if cfg.SearchHandler != nil {
			api.POST("/search", cfg.SearchHandler.Search)
		}

		// Chat
		if cfg.ChatHandler != nil {
			api.POST("/chat/send", cfg.ChatHandler.Send)
			api.GET("/chat/history", cfg.ChatHandler.History)
			api.GET("/chat/sessions", cfg.ChatHandler.ListSessions)
			api.POST("/chat/sessions", cfg.ChatHandler.CreateSession)
			api.PATCH("/chat/sessions/:id", cfg.ChatHandler.RenameSession)
			api.DELETE("/chat/sessions/:id", cfg.ChatHandler.DeleteSession)
			api.POST("/chat/feedback", cfg.ChatHandler.Feedback)
			api.GET("/chat/queries", cfg.ChatHandler.Queries)
		}
	}

	return r
}
