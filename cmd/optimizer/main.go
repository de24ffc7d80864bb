package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dreschagin/infra-optimizer/internal/bootstrap"
	"github.com/dreschagin/infra-optimizer/internal/interfaces/console"
	"github.com/dreschagin/infra-optimizer/pkg/config"
	"github.com/dreschagin/infra-optimizer/pkg/logger"
)

func main() {
	os.Exit(run())
}

// run выполняет один цикл оптимизации и возвращает код завершения.
// Ошибка движка рекомендаций не считается ошибкой процесса.
func run() int {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// 2. Инициализируем logger (диагностика в stderr, прогресс в stdout)
	log := logger.NewWithWriter(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Собираем зависимости
	reporter := console.NewReporter(os.Stdout)
	app, err := bootstrap.Build(ctx, cfg, log, bootstrap.Options{Progress: reporter})
	if err != nil {
		log.Error("Failed to initialize optimizer", err)
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), bootstrap.CloseTimeout)
		defer cancel()
		app.Close(closeCtx)
	}()

	fmt.Println("🎯 Autonomous Optimization Agent")
	fmt.Println(strings.Repeat("=", 50))

	// 4. Один цикл
	cycleCtx := ctx
	if cfg.Optimizer.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, cfg.Optimizer.CycleTimeout)
		defer cancel()
	}

	result, err := app.Cycle.Execute(cycleCtx)
	if err != nil {
		log.Error("Optimization cycle failed", err)
		return 1
	}

	if result.Failed() {
		log.Warn("Cycle finished without recommendation", "cycle_id", result.ID, "error", result.Error)
	}

	return 0
}
