// Itinera Planner — фоновая сборка планов.
//
// Planner:
//   - Получает запросы сборки из RabbitMQ
//   - Периодически подбирает запросы из хранилища (fallback)
//   - Проводит план через все шаги и сохраняет результат
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Itinera/internal/app"
	"github.com/shaiso/Itinera/internal/config"
	"github.com/shaiso/Itinera/internal/mq"
	"github.com/shaiso/Itinera/internal/planner"
	"github.com/shaiso/Itinera/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		telemetry.SetupLogger(telemetry.LoggerOptionsFromEnv()).Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.LoggerOptions())
	logger.Info("starting itinera-planner")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg.DB)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("store opened", "driver", cfg.DB.Driver)

	var publisher *mq.Publisher
	mqConn, err := app.ConnectMQ(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else if mqConn != nil {
		defer mqConn.Close()
		publisher = mq.NewPublisher(mqConn, logger)
		logger.Info("RabbitMQ connected")
	}

	controller, err := app.NewController(cfg, store.Plans, app.NewNotifier(publisher, logger), logger)
	if err != nil {
		logger.Error("failed to create controller", "error", err)
		os.Exit(1)
	}

	p := planner.New(planner.Config{
		Plans:        store.Plans,
		Controller:   controller,
		Parallel:     cfg.Planner.Parallel,
		Conn:         mqConn,
		PollInterval: cfg.Planner.PollInterval,
		BatchSize:    cfg.Planner.BatchSize,
		LeaseTTL:     cfg.Stages.LeaseTTL,
		Logger:       logger,
	})

	if err := p.Start(ctx); err != nil {
		logger.Error("failed to start planner", "error", err)
		os.Exit(1)
	}

	app.ServeOps(ctx, cfg.Planner.Port, logger)

	<-ctx.Done()
	logger.Info("shutting down")

	p.Stop()

	logger.Info("stopped")
}
