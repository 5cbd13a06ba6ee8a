// Package notify — уведомления о прогрессе шагов.
//
// Контроллер шагов сообщает о каждом переходе событием Event
// (старт, успех с количеством, пустой результат, ошибка) и не ждёт
// результата доставки: Notifier.Notify ничего не возвращает.
//
// Заголовки и описания локализованы (испанский) и не содержат
// технических деталей; техническая причина ошибки передаётся отдельно
// в Event.Error и попадает только в логи и MQ.
//
// Реализации Notifier:
//   - Log      — запись в slog
//   - Recorder — накопление событий в памяти (ответ API, тесты)
//   - MQ       — публикация в RabbitMQ (itinera.events)
//   - Metrics  — счётчик itinera_notifications_total
//   - Multi    — рассылка нескольким получателям
package notify
