package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Itinera/internal/config"
	"github.com/shaiso/Itinera/internal/mq"
	"github.com/shaiso/Itinera/internal/notify"
	"github.com/shaiso/Itinera/internal/provider"
	"github.com/shaiso/Itinera/internal/repo"
	"github.com/shaiso/Itinera/internal/stages"
	"github.com/shaiso/Itinera/internal/telemetry"
	"github.com/shaiso/Itinera/internal/workflow"
)

// Store — открытое хранилище планов.
type Store struct {
	Plans repo.Plans

	// Pool — пул PostgreSQL (nil для SQLite).
	Pool *pgxpool.Pool

	db *sql.DB
}

// Close закрывает соединения.
func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// OpenStore открывает хранилище выбранного драйвера и создаёт схему.
func OpenStore(ctx context.Context, cfg config.DBConfig) (*Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := repo.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Store{Plans: repo.NewSQLitePlanRepo(db), db: db}, nil

	case config.DriverPostgres:
		pool, err := repo.NewPool(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Store{Plans: repo.NewPlanRepo(pool), Pool: pool}, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

// ConnectMQ подключается к RabbitMQ и объявляет топологию.
// Возвращает nil без ошибки, если брокер отключён в конфигурации.
func ConnectMQ(ctx context.Context, cfg config.RabbitMQConfig, logger *slog.Logger) (*mq.Connection, error) {
	if cfg.Disabled {
		return nil, nil
	}

	conn, err := mq.NewConnection(mq.ConnectionConfig{URL: cfg.URL, Logger: logger})
	if err != nil {
		return nil, err
	}

	if err := mq.SetupTopology(ctx, conn); err != nil {
		logger.Warn("failed to setup topology", "error", err)
	}
	return conn, nil
}

// NewGenerator создаёт источник данных шага enrichment.
func NewGenerator(cfg config.EnrichmentConfig, client *provider.Client, logger *slog.Logger) (provider.Generator, error) {
	if cfg.Mode != config.EnrichmentLLM {
		return client, nil
	}

	model, err := provider.NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return provider.NewLLMGenerator(model, logger), nil
}

// NewNotifier собирает получателей уведомлений. publisher может быть nil.
func NewNotifier(publisher *mq.Publisher, logger *slog.Logger) notify.Notifier {
	sinks := notify.Multi{notify.NewLog(logger), notify.Metrics{}}
	if publisher != nil {
		sinks = append(sinks, notify.NewMQ(publisher, 0, logger))
	}
	return sinks
}

// NewController создаёт контроллер шагов со всеми исполнителями.
func NewController(cfg *config.Config, store workflow.PlanStore, notifier notify.Notifier, logger *slog.Logger) (*workflow.Controller, error) {
	client := provider.NewClient(provider.ClientConfig{
		URL:    cfg.Provider.URL,
		Token:  cfg.Provider.Token,
		Logger: logger,
	})

	generator, err := NewGenerator(cfg.Enrichment, client, logger)
	if err != nil {
		return nil, fmt.Errorf("enrichment generator: %w", err)
	}

	registry := stages.DefaultRegistry(client, generator)
	if err := registry.Complete(); err != nil {
		return nil, err
	}

	return workflow.New(workflow.Config{
		Registry:       registry,
		Notifier:       notifier,
		Store:          store,
		Timeouts:       cfg.StageTimeouts(),
		DefaultTimeout: cfg.Stages.Default,
		Logger:         logger,
	}), nil
}

// ServeOps запускает HTTP сервер с /healthz и /metrics.
// Сервер останавливается при отмене ctx.
func ServeOps(ctx context.Context, port string, logger *slog.Logger) {
	mux := http.NewServeMux()
	RegisterOps(mux)

	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()
}

var startTime = time.Now()

// RegisterOps регистрирует /healthz и /metrics.
func RegisterOps(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Truncate(time.Second))
	})
	mux.Handle("/metrics", telemetry.MetricsHandler())
}
