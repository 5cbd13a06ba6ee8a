// Itinera Janitor — закрывает планы, зависшие в processing.
//
// При нескольких экземплярах с PostgreSQL тик выполняет только лидер
// (pg_try_advisory_lock).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Itinera/internal/app"
	"github.com/shaiso/Itinera/internal/config"
	"github.com/shaiso/Itinera/internal/janitor"
	"github.com/shaiso/Itinera/internal/telemetry"
)

const janitorLockKey int64 = 424243

func main() {
	cfg, err := config.Load("")
	if err != nil {
		telemetry.SetupLogger(telemetry.LoggerOptionsFromEnv()).Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.LoggerOptions())
	logger.Info("starting itinera-janitor")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg.DB)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var leader *advisoryLeader
	if store.Pool != nil {
		leader = &advisoryLeader{pool: store.Pool, key: janitorLockKey}
		defer leader.release()
	}

	jcfg := janitor.Config{
		Plans:      store.Plans,
		Cron:       cfg.Janitor.Cron,
		StaleAfter: cfg.Janitor.StaleAfter,
		Logger:     logger,
	}
	if leader != nil {
		jcfg.Leader = leader.acquire
	}

	j, err := janitor.New(jcfg)
	if err != nil {
		logger.Error("failed to create janitor", "error", err)
		os.Exit(1)
	}

	app.ServeOps(ctx, cfg.Janitor.Port, logger)

	j.Run(ctx)

	logger.Info("stopped")
}

// advisoryLeader удерживает session-level advisory lock.
// Блокировка привязана к соединению, поэтому оно держится до release.
type advisoryLeader struct {
	pool *pgxpool.Pool
	key  int64
	conn *pgxpool.Conn
}

func (l *advisoryLeader) acquire(ctx context.Context) (bool, error) {
	if l.conn != nil {
		return true, nil
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}

	var ok bool
	if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", l.key).Scan(&ok); err != nil {
		conn.Release()
		return false, err
	}
	if !ok {
		conn.Release()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

func (l *advisoryLeader) release() {
	if l.conn == nil {
		return
	}
	_, _ = l.conn.Exec(context.Background(), "select pg_advisory_unlock($1)", l.key)
	l.conn.Release()
	l.conn = nil
}
