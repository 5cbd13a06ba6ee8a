// Package app собирает компоненты Itinera из конфигурации.
//
// Общий код для cmd/itinera-api, cmd/itinera-planner и cmd/itinera-janitor:
// открытие хранилища, подключение к RabbitMQ, создание контроллера шагов
// и набора получателей уведомлений.
package app
