package formatter

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/shaiso/taskrun/internal/domain"
)

// Msgpack — форматтер в MessagePack.
type Msgpack struct{}

// Dumps кодирует сообщение.
func (Msgpack) Dumps(msg *domain.TaskMessage) ([]byte, error) {
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return data, nil
}

// Loads декодирует сообщение. Данные после сообщения запрещены.
func (Msgpack) Loads(data []byte) (*domain.TaskMessage, error) {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)

	var msg domain.TaskMessage
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	// bytes.Reader реализует io.ByteScanner, поэтому декодер читает
	// его без буфера и r.Len() — действительно непрочитанный остаток.
	if r.Len() > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after message", ErrMalformedMessage, r.Len())
	}
	return finish(&msg)
}

// ContentType возвращает MIME-тип.
func (Msgpack) ContentType() string {
	return "application/msgpack"
}
