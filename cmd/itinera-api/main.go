// Itinera API — HTTP API планов путешествий.
//
// Пошаговое продвижение плана выполняется синхронно в запросе;
// фоновая сборка передаётся планировщику через RabbitMQ.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shaiso/Itinera/internal/api"
	"github.com/shaiso/Itinera/internal/app"
	"github.com/shaiso/Itinera/internal/config"
	"github.com/shaiso/Itinera/internal/mq"
	"github.com/shaiso/Itinera/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		telemetry.SetupLogger(telemetry.LoggerOptionsFromEnv()).Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.LoggerOptions())
	logger.Info("starting itinera-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg.DB)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("store opened", "driver", cfg.DB.Driver)

	// RabbitMQ опционален: без него run только отмечается в хранилище
	var publisher *mq.Publisher
	mqConn, err := app.ConnectMQ(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, background runs rely on polling", "error", err)
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

	handlerCfg := api.Config{
		Plans:      store.Plans,
		Controller: controller,
		Auth:       api.NewAuthenticator(api.ParseTokens(cfg.API.Tokens), cfg.API.TrustUserHeader),
		LeaseTTL:   cfg.Stages.LeaseTTL,
		Logger:     logger,
	}
	if publisher != nil {
		handlerCfg.Requester = publisher
	}
	handler := api.NewHandler(handlerCfg)

	mux := http.NewServeMux()
	app.RegisterOps(mux)
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + cfg.API.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
