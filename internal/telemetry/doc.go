// Package telemetry обеспечивает наблюдаемость сервисов Itinera.
//
// Включает:
//   - logging.go — structured logging через slog (LOG_LEVEL, LOG_FORMAT)
//   - metrics.go — Prometheus метрики шагов, уведомлений, планов и API
//
// Все бинарники используют единый формат логирования
// и экспортируют метрики на /metrics.
package telemetry
