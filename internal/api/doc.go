// Package api содержит служебный HTTP API воркера и планировщика.
//
// Структура:
//   - handler.go          — Handler с DI (реестр задач, kicker, результаты, расписания)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - task_handler.go     — обработчики для /tasks и /results
//   - schedule_handler.go — обработчики для /schedules
//
// Маршруты регистрируются только для заданных зависимостей: воркер
// отдаёт задачи и результаты, планировщик — расписания.
package api
