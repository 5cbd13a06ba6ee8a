// Package janitor закрывает зависшие планы.
//
// План, оставшийся в processing дольше StaleAfter (процесс упал посреди
// сборки, пользователь ушёл), переводится в error. Janitor запускается
// по cron-выражению.
//
// Использование:
//
//	j, err := janitor.New(janitor.Config{
//	    Plans:      plans,
//	    Cron:       "*/5 * * * *",
//	    StaleAfter: time.Hour,
//	    Logger:     logger,
//	})
//
//	// Блокирует до отмены ctx
//	j.Run(ctx)
//
// Leader Election:
//
// При нескольких экземплярах Config.Leader решает, кто выполняет тик.
// Для PostgreSQL это делается в main.go через pg_try_advisory_lock.
package janitor
