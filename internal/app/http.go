package app

import (
	lexhttp "github.com/yungbote/lexcorpus-backend/internal/http"
	httpH "github.com/yungbote/lexcorpus-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lexcorpus-backend/internal/http/middleware"
	"github.com/yungbote/lexcorpus-backend/internal/observability"
	"github.com/yungbote/lexcorpus-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Document *httpH.DocumentHandler
	Search   *httpH.SearchHandler
	Chat     *httpH.ChatHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Document: httpH.NewDocumentHandler(services.Documents),
		Search:   httpH.NewSearchHandler(services.Search),
		Chat:     httpH.NewChatHandler(services.Chat),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *lexhttp.Server {
	return lexhttp.NewServer(lexhttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		AuthMiddleware:  middleware.Auth,
		HealthHandler:   handlers.Health,
		DocumentHandler: handlers.Document,
		SearchHandler:   handlers.Search,
		ChatHandler:     handlers.Chat,
	})
}
