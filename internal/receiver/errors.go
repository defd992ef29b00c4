package receiver

import "errors"

// Ошибки receiver.
var (
	// ErrBadParameters — аргументы сообщения не прошли валидацию.
	ErrBadParameters = errors.New("bad task parameters")

	// ErrSaveResult — хранилище результатов отклонило запись.
	ErrSaveResult = errors.New("cannot save task result")

	// ErrMiddleware — хук middleware вернул ошибку.
	ErrMiddleware = errors.New("middleware hook failed")

	// ErrBrokerClosed — брокер закрыл поток сообщений.
	ErrBrokerClosed = errors.New("broker stopped delivering messages")

	// ErrInvalidConfig — не заданы обязательные зависимости.
	ErrInvalidConfig = errors.New("invalid receiver config")
)
