package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	// Application
	"github.com/dreschagin/infra-optimizer/internal/application/runner"

	// Infrastructure
	"github.com/dreschagin/infra-optimizer/internal/bootstrap"
	wsInfra "github.com/dreschagin/infra-optimizer/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/infra-optimizer/internal/infrastructure/observability/prommetrics"

	// Interfaces
	httpInterface "github.com/dreschagin/infra-optimizer/internal/interfaces/http"
	"github.com/dreschagin/infra-optimizer/internal/interfaces/http/handler"
	"github.com/dreschagin/infra-optimizer/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/infra-optimizer/pkg/config"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(cfg.LogLevel)
	log.Info("Starting Infra Optimizer server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. WebSocket Hub и метрики Prometheus
	hub := wsInfra.NewHub(log)
	metrics := prommetrics.NewMetrics()
	metrics.RegisterGaugeFunc("websocket_clients", "Connected WebSocket clients.", func() float64 {
		return float64(hub.ClientCount())
	})
	metrics.RegisterGaugeFunc("websocket_evicted_clients", "WebSocket clients disconnected for falling behind.", func() float64 {
		return float64(hub.Evicted())
	})

	// 4. Dependency Injection - цикл оптимизации
	app, err := bootstrap.Build(ctx, cfg, log, bootstrap.Options{Notifier: hub})
	if err != nil {
		log.Error("Failed to initialize optimizer", err)
		os.Exit(1)
	}

	cycleRunner := runner.NewRunner(app.Cycle, log, cfg.Optimizer.CycleTimeout)
	cycleRunner.SetObserver(metrics)

	// 5. Dependency Injection - Interfaces Layer (HTTP Handlers)
	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
		SessionTTL:  cfg.Security.SessionTTL,
	}

	checks := make(map[string]handler.ReadinessCheck, len(app.Checks))
	for name, check := range app.Checks {
		checks[name] = check
	}

	healthHandler := handler.NewHealthHandler(checks, log)
	cycleAPIHandler := handler.NewCycleAPIHandler(app.Latest, app.Cycles, cycleRunner, log)
	websocketHandler := handler.NewWebSocketHandler(hub, cycleRunner, cfg.Security.AllowedOrigins, authConfig, log)
	authAPIHandler := handler.NewAuthAPIHandler(authConfig, log)

	// Router
	router := httpInterface.NewRouter(
		healthHandler,
		cycleAPIHandler,
		websocketHandler,
		authAPIHandler,
		metrics,
		cfg.Security,
		log,
	)

	// 6. Запускаем фоновые процессы
	go hub.Run(ctx)
	log.Info("WebSocket hub started")

	// 7. Настраиваем HTTP сервер
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 8. Ожидаем сигнал для graceful shutdown
	exitCode := 0
	select {
	case <-sigChan:
		log.Info("Shutdown signal received, starting graceful shutdown...")
	case err := <-serverErr:
		log.Error("HTTP server failed", err)
		exitCode = 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Останавливаем hub после сервера: активные циклы еще могут рассылать события
	cancel()
	app.Close(shutdownCtx)

	log.Info("Server stopped gracefully")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
