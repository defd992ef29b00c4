package tasks

import (
	"errors"
	"fmt"
)

// Ошибки регистрации.
var (
	// ErrInvalidDefinition — определение задачи некорректно.
	ErrInvalidDefinition = errors.New("invalid task definition")

	// ErrDuplicateTask — задача с таким именем уже зарегистрирована.
	ErrDuplicateTask = errors.New("duplicate task name")
)

// Ошибки связывания аргументов.
var (
	// ErrTooManyArgs — позиционных аргументов больше, чем параметров.
	ErrTooManyArgs = errors.New("too many positional arguments")

	// ErrMissingArg — не передан обязательный аргумент.
	ErrMissingArg = errors.New("missing required argument")

	// ErrDuplicateArg — аргумент передан и позиционно, и по имени.
	ErrDuplicateArg = errors.New("multiple values for argument")

	// ErrUnexpectedArg — передан неизвестный именованный аргумент.
	ErrUnexpectedArg = errors.New("unexpected keyword argument")

	// ErrArgType — значение нельзя привести к типу параметра.
	ErrArgType = errors.New("argument type mismatch")
)

// ErrInvalidParam — валидация параметров не прошла.
var ErrInvalidParam = errors.New("invalid parameter")

// ErrTaskPanicked — тело задачи запаниковало.
var ErrTaskPanicked = errors.New("task panicked")

// PanicError — паника внутри тела задачи, превращённая в ошибку.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTaskPanicked, e.Value)
}

func (e *PanicError) Unwrap() error {
	return ErrTaskPanicked
}
