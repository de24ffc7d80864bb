package http

import (
	"net/http"

	"github.com/dreschagin/infra-optimizer/internal/interfaces/http/handler"
	"github.com/dreschagin/infra-optimizer/internal/interfaces/http/middleware"
	"github.com/dreschagin/infra-optimizer/pkg/config"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

// MetricsExporter отдает метрики Prometheus и принимает данные о запросах
type MetricsExporter interface {
	middleware.RequestObserver
	Handler() http.Handler
}

// Router настраивает маршруты приложения
type Router struct {
	mux              *http.ServeMux
	healthHandler    *handler.HealthHandler
	cycleAPIHandler  *handler.CycleAPIHandler
	websocketHandler *handler.WebSocketHandler
	authAPIHandler   *handler.AuthAPIHandler
	metrics          MetricsExporter
	security         config.SecurityConfig
	logger           *logger.Logger
}

// NewRouter создает новый router. metrics может быть nil.
func NewRouter(
	healthHandler *handler.HealthHandler,
	cycleAPIHandler *handler.CycleAPIHandler,
	websocketHandler *handler.WebSocketHandler,
	authAPIHandler *handler.AuthAPIHandler,
	metrics MetricsExporter,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		healthHandler:    healthHandler,
		cycleAPIHandler:  cycleAPIHandler,
		websocketHandler: websocketHandler,
		authAPIHandler:   authAPIHandler,
		metrics:          metrics,
		security:         security,
		logger:           logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Health endpoints are unauthenticated for probes.
	rt.mux.HandleFunc("/healthz", rt.healthHandler.Live)
	rt.mux.HandleFunc("/readyz", rt.healthHandler.Ready)

	if rt.metrics != nil {
		rt.mux.Handle("/metrics", rt.metrics.Handler())
	}

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
		SessionTTL:  rt.security.SessionTTL,
	}, rt.logger)
	runLimiter := middleware.RateLimit(middleware.NewIPRateLimiter(rt.security.RunRatePerMin, rt.security.RunRateBurst))

	// WebSocket
	rt.mux.Handle("/ws", rt.route("/ws", authMiddleware(http.HandlerFunc(rt.websocketHandler.HandleConnection))))

	// API endpoints
	rt.mux.HandleFunc("/api/v1/auth/login", rt.authAPIHandler.Login)
	rt.mux.HandleFunc("/api/v1/auth/logout", rt.authAPIHandler.Logout)
	rt.mux.HandleFunc("/api/v1/auth/status", rt.authAPIHandler.Status)

	rt.mux.Handle("/api/v1/cycles/latest", rt.route("/api/v1/cycles/latest",
		authMiddleware(middleware.Compression(http.HandlerFunc(rt.cycleAPIHandler.GetLatest)))))
	rt.mux.Handle("/api/v1/cycles", rt.route("/api/v1/cycles",
		authMiddleware(middleware.Compression(http.HandlerFunc(rt.cycleAPIHandler.List)))))
	rt.mux.Handle("/api/v1/cycles/run", rt.route("/api/v1/cycles/run",
		authMiddleware(runLimiter(http.HandlerFunc(rt.cycleAPIHandler.Run)))))
	rt.mux.Handle("/api/v1/status", rt.route("/api/v1/status",
		authMiddleware(http.HandlerFunc(rt.cycleAPIHandler.Status))))

	// Применяем middleware
	var handler http.Handler = rt.mux
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.Recovery(rt.logger)(handler)

	return handler
}

func (rt *Router) route(pattern string, next http.Handler) http.Handler {
	if rt.metrics == nil {
		return next
	}
	return middleware.Metrics(rt.metrics, pattern)(next)
}
