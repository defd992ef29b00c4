package domain

import "fmt"

// TaskMessage — декодированное сообщение о задаче.
//
// Создаётся форматтером из сырых байт, полученных из очереди.
// В процессе обработки может изменяться: валидация параметров
// приводит типы аргументов, а внедрение зависимостей добавляет
// значения в Kwargs.
type TaskMessage struct {
	// TaskID — уникальный идентификатор задачи.
	// Результат сохраняется в хранилище под этим ключом.
	TaskID string `json:"task_id" msgpack:"task_id"`

	// TaskName — имя зарегистрированной задачи.
	TaskName string `json:"task_name" msgpack:"task_name"`

	// Labels — произвольные метки, передаются как есть.
	Labels map[string]string `json:"labels,omitempty" msgpack:"labels,omitempty"`

	// Args — позиционные аргументы.
	Args []any `json:"args" msgpack:"args"`

	// Kwargs — именованные аргументы.
	Kwargs map[string]any `json:"kwargs" msgpack:"kwargs"`
}

// Validate проверяет обязательные поля.
func (m *TaskMessage) Validate() error {
	if m.TaskID == "" {
		return fmt.Errorf("%w: task_id is empty", ErrInvalidMessage)
	}
	if m.TaskName == "" {
		return fmt.Errorf("%w: task_name is empty", ErrInvalidMessage)
	}
	return nil
}

// EnsureKwargs инициализирует Kwargs, если он nil.
func (m *TaskMessage) EnsureKwargs() {
	if m.Kwargs == nil {
		m.Kwargs = make(map[string]any)
	}
}

// Clone возвращает копию сообщения.
// Args и Kwargs копируются поверхностно: сами значения не клонируются.
func (m *TaskMessage) Clone() *TaskMessage {
	c := *m
	if m.Args != nil {
		c.Args = append([]any(nil), m.Args...)
	}
	if m.Kwargs != nil {
		c.Kwargs = make(map[string]any, len(m.Kwargs))
		for k, v := range m.Kwargs {
			c.Kwargs[k] = v
		}
	}
	if m.Labels != nil {
		c.Labels = make(map[string]string, len(m.Labels))
		for k, v := range m.Labels {
			c.Labels[k] = v
		}
	}
	return &c
}
