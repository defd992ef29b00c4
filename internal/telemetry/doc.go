// Package telemetry обеспечивает наблюдаемость воркера.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики обработки задач
//
// Логи пишутся в stderr, метрики экспортируются на /metrics.
package telemetry
