// Package provider реализует клиентов удалённых сервисов поиска и генерации.
//
// Контракт поиска (шаги 1–3):
//
//	POST {"type": "flights"|"hotels"|"activities", "data": {...}}
//	→ {"success": bool, "data": {"flights"|"hotels"|"data": [...]}}
//
// Контракт генерации (шаг 4):
//
//	POST {"type": "generate_travel_plan", "data": {destination, departure_date, return_date}}
//	→ {"success": bool, "data": {weather, cuisine, packing_list, places_to_visit, city_image_url}}
//
// Отсутствие "success": true — мягкий исход "нет результатов", а не ошибка.
// Ошибки транспорта, HTTP >= 400 и некорректный JSON возвращаются как error.
//
// Реализации:
//   - Client — HTTP клиент единого endpoint'а поиска/генерации
//   - LLMGenerator — генерация шага 4 через langchaingo модель
package provider
