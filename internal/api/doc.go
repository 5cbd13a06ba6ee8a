// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go      — Handler с DI (репозиторий, контроллер, publisher, logger)
//   - routes.go       — регистрация маршрутов
//   - middleware.go   — middleware (logging, recovery, metrics)
//   - auth.go         — идентификация пользователя
//   - locks.go        — блокировка плана на время advance
//   - response.go     — унифицированные JSON-ответы и обработка ошибок
//   - dto.go          — Data Transfer Objects (request/response)
//   - plan_handler.go — обработчики для /plans
//
// Все маршруты /api/v1 требуют аутентифицированного пользователя.
package api
