package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shaiso/taskrun/internal/domain"
)

// JSON — форматтер в JSON.
//
// Числа декодируются как float64, приведение к типам параметров
// выполняет валидация параметров.
type JSON struct{}

// Dumps кодирует сообщение.
func (JSON) Dumps(msg *domain.TaskMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return data, nil
}

// Loads декодирует сообщение. Неизвестные поля и данные после
// объекта запрещены.
func (JSON) Loads(data []byte) (*domain.TaskMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg domain.TaskMessage
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after message", ErrMalformedMessage)
	}
	return finish(&msg)
}

// ContentType возвращает MIME-тип.
func (JSON) ContentType() string {
	return "application/json"
}
