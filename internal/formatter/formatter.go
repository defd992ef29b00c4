// Package formatter преобразует TaskMessage в байты и обратно.
//
// Поддерживаемые форматы:
//   - json    — encoding/json (по умолчанию)
//   - msgpack — github.com/vmihailenco/msgpack/v5
package formatter

import (
	"errors"
	"fmt"

	"github.com/shaiso/taskrun/internal/domain"
)

// ErrMalformedMessage — байты не удалось декодировать в TaskMessage.
var ErrMalformedMessage = errors.New("malformed task message")

// ErrUnknownFormat — неизвестное имя формата.
var ErrUnknownFormat = errors.New("unknown message format")

// Formatter кодирует и декодирует сообщения о задачах.
type Formatter interface {
	Dumps(msg *domain.TaskMessage) ([]byte, error)
	Loads(data []byte) (*domain.TaskMessage, error)
	ContentType() string
}

// New возвращает форматтер по имени.
func New(name string) (Formatter, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "msgpack":
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// finish проверяет декодированное сообщение.
func finish(msg *domain.TaskMessage) (*domain.TaskMessage, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	msg.EnsureKwargs()
	return msg, nil
}
