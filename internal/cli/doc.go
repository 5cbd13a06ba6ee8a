// Package cli реализует инструмент командной строки Itinera.
//
// # Обзор
//
// CLI — клиентская утилита для Itinera API. Работает через HTTP,
// не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Itinera API. Инкапсулирует HTTP-запросы, bearer
// токен, парсинг ответов (DataResponse, ListResponse, ErrorResponse).
//
//	client := cli.NewClient("http://localhost:8080", token)
//	plans, err := client.ListPlans(cli.ListPlansOpts{})
//
// ## Output
//
// Форматирование вывода:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error/уведомления) — в stderr.
//
// ## Commands
//
// plan: list, create, show, update, delete, advance, run, abandon.
// NewPlanCmd принимает clientFn и outputFn — замыкания для ленивого
// создания Client и Output после парсинга PersistentFlags.
package cli
