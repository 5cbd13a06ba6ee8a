// Package stages содержит исполнителей четырёх шагов планирования поездки.
//
// # Обзор
//
// Каждый исполнитель (Executor):
//   - Проверяет обязательные поля TripQuery (до любого удалённого вызова)
//   - Выполняет ровно один запрос к провайдеру
//   - Нормализует ответ в фиксированную форму domain.*Offer / domain.Enrichment
//   - Помечает результат как Empty, если нормализованных записей нет
//
// # Шаги
//
//	flights     — origin, destination, departure_date
//	hotels      — destination, departure_date (check-in), return_date (check-out)
//	activities  — destination
//	enrichment  — destination, departure_date, return_date
//
// # Нормализация
//
// Провайдеры не гарантируют схему, поэтому нормализация никогда не падает:
// отсутствующие поля заменяются на "Unknown" (авиакомпания — "Unknown Airline"),
// рейтинг — на 0, картинки — на placeholder URL. Берутся первые MaxResults
// записей, ID присваиваются по порядку ("flight-0", "hotel-1", ...).
// Свободный текст провайдера очищается от HTML через bluemonday.
//
// # Registry
//
//	registry := stages.DefaultRegistry(searcher, generator)
//	exec, err := registry.Get(domain.StageHotels)
//
// # Файлы пакета
//
//   - stage.go      — интерфейс Executor, Result, ошибки
//   - registry.go   — Registry исполнителей по StageKind
//   - normalize.go  — извлечение полей из сырых записей
//   - flights.go, hotels.go, activities.go, enrichment.go — исполнители
package stages
