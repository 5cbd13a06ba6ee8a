// Package planner собирает планы в фоне.
//
// Planner отвечает за:
//   - Получение запросов сборки из очереди RabbitMQ (plans.requested)
//   - Периодическую проверку запрошенных планов в БД (polling fallback)
//   - Прогон всех шагов плана через workflow.Controller
//   - Перевод плана в error при остановке шага
//
// Остановка шага в фоне окончательна: повторить шаг некому.
package planner
