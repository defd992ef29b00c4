// Package receiver — ядро выполнения задач воркера.
//
// # Обзор
//
// Receiver превращает сырое сообщение из очереди в выполненную задачу
// с сохранённым результатом. Отвечает за:
//
//   - Декодирование сообщения форматтером
//   - Поиск задачи в реестре по имени
//   - Вызов хуков middleware (pre_execute, post_execute, post_save, on_error)
//   - Внедрение зависимостей в аргументы задачи
//   - Выполнение тела в горутине обработки или в пуле блокирующих вызовов
//   - Сохранение результата в хранилище результатов
//   - Ограничение числа одновременно обрабатываемых сообщений
//
// # Использование
//
//	r, err := receiver.New(receiver.Config{
//	    Broker:        broker,
//	    Registry:      registry,
//	    Formatter:     formatter.JSON{},
//	    ResultBackend: results,
//	    MaxAsyncTasks: 100,
//	    Logger:        logger,
//	})
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	// Блокируется до отмены ctx.
//	err = r.Listen(ctx)
//
// # Обработка сообщения (Callback)
//
//  1. Formatter.Loads — ошибка декодирования: warning, сообщение отброшено
//  2. Registry.Get — неизвестная задача: warning, сообщение отброшено
//  3. pre_execute хуки по порядку, каждый может заменить сообщение
//  4. RunTask
//  5. post_execute хуки
//  6. ResultBackend.SetResult, затем post_save хуки
//
// # Выполнение задачи (RunTask)
//
//  1. Валидация параметров (если не отключена) — ошибка ErrBadParameters
//     возвращается вызывающему, результата нет
//  2. Разрешение зависимостей в новом depends.Scope; явные kwargs
//     сообщения имеют приоритет над внедрёнными значениями
//  3. Вызов тела с замером времени
//  4. Закрытие Scope при любом исходе
//  5. Сборка domain.Result; при ошибке — on_error хуки
//
// # Ошибки
//
//   - Ошибка тела задачи никогда не выходит из RunTask: она превращается
//     в Result с IsErr=true
//   - Ошибки валидации параметров и хуков middleware возвращаются всегда
//   - Ошибка сохранения результата возвращается только при raiseErr=true
package receiver
