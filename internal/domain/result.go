package domain

import "time"

// Result — результат одного выполнения задачи.
//
// Создаётся движком выполнения один раз на вызов и после этого
// не изменяется. Передаётся middleware и сохраняется в хранилище
// результатов.
type Result struct {
	// IsErr — true, если тело задачи завершилось ошибкой.
	IsErr bool `json:"is_err"`

	// Log — собранные логи выполнения.
	// Зарезервировано под внешний сборщик логов, движок оставляет nil.
	Log *string `json:"log"`

	// ReturnValue — возвращённое значение (только при успехе).
	ReturnValue any `json:"return_value"`

	// ExecutionTime — длительность выполнения тела задачи.
	ExecutionTime time.Duration `json:"execution_time"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`
}

// Status возвращает строковый статус для логов и метрик.
func (r *Result) Status() string {
	if r.IsErr {
		return "failed"
	}
	return "succeeded"
}
