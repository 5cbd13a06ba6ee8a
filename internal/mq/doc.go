// Package mq — RabbitMQ инфраструктура Itinera.
//
// Структура:
//   - connection.go — соединение с автоматическим reconnect
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация запросов планирования и событий шагов
//   - consumer.go   — потребление с ack/nack и DLQ
//
// Типы сообщений:
//   - plan.requested — пользователь запросил фоновое выполнение плана
//   - stage.event    — событие прогресса шага (старт, успех, пусто, ошибка)
//
// Exchanges:
//   - itinera.plans  — запросы планирования (consumer: planner)
//   - itinera.events — события прогресса (consumer: presentation/внешние подписчики)
//   - itinera.dlq    — dead letter queue
package mq
