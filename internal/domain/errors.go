package domain

import "errors"

// ErrInvalidMessage — в сообщении отсутствуют обязательные поля.
var ErrInvalidMessage = errors.New("invalid task message")
