// Package tasks хранит метаданные зарегистрированных задач.
//
// Задача — обычная Go-функция. При регистрации (NewRegistry) функция
// интроспектируется через reflect: строится сигнатура (имена и типы
// параметров), подсказки типов для валидации и шаблон разрешения
// зависимостей. После построения Registry только читается и не
// требует синхронизации.
//
// # Полосы выполнения
//
// Функция, первым параметром принимающая context.Context, считается
// неблокирующей (LaneAsync) и выполняется прямо в горутине обработки
// сообщения. Любая другая функция считается блокирующей (LaneBlocking)
// и всегда уходит в пул блокирующих вызовов. Definition.Blocking
// принудительно отправляет функцию в пул.
//
//	reg, err := tasks.NewRegistry(
//	    tasks.Definition{
//	        Name:   "add",
//	        Func:   func(a, b int) int { return a + b },
//	        Params: []string{"a", "b"},
//	    },
//	)
//
// # Поддерживаемые сигнатуры
//
// Параметры: опционально context.Context первым, затем любые типы.
// Variadic-функции не поддерживаются.
// Результаты: (), (T), (error), (T, error).
package tasks
