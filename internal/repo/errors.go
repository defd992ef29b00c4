package repo

import "errors"

// Ошибки хранилища результатов.
var (
	// ErrNotFound — результат ещё не сохранён.
	ErrNotFound = errors.New("not found")

	// ErrEmptyTaskID — пустой идентификатор задачи.
	ErrEmptyTaskID = errors.New("empty task id")
)
