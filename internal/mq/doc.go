// Package mq предоставляет брокеры сообщений для воркера.
//
// Структура:
//   - connection.go — соединение с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange, очереди задач и DLQ
//   - publisher.go  — публикация сообщений о задачах
//   - consumer.go   — чтение очереди задач в поток domain.Delivery
//   - broker.go     — Broker: Startup/Listen/Kick поверх всего выше
//   - inmemory.go   — InMemoryBroker для тестов и локального запуска
//
// Топология по умолчанию:
//
//	taskrun (direct)
//	└── taskrun.tasks [routing: tasks]
//	        Consumer: taskrun-worker
//	        DLQ: taskrun.dlq.tasks
//
//	taskrun.dlq (direct)
//	└── taskrun.dlq.tasks [routing: tasks]
//
// Сообщения подтверждаются вручную после обработки: Delivery.Ack
// вызывает receiver, когда Callback завершился.
package mq
