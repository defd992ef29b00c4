// Package scheduler отправляет задачи по расписаниям.
//
// Расписания задаются в конфигурации (cron или интервал). Scheduler
// хранит время следующей отправки в памяти и на каждом тике отправляет
// задачи, время которых подошло.
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Tick, kick)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Schedules: cfg.Schedules,
//	    Kicker:    kicker.New(broker, formatter.JSON{}, logger),
//	    Logger:    logger,
//	}, time.Now())
//
//	// Вызывается каждый тик (обычно раз в секунду)
//	sched.Tick(ctx, time.Now())
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock.
// Метод Tick() вызывается только лидером.
package scheduler
