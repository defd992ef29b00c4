package domain

import "sync"

// State — общее состояние процесса воркера.
//
// Создаётся один раз при старте и доступно задачам через
// внедрение зависимостей. Потокобезопасно.
type State struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState создаёт пустое состояние.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Set сохраняет значение по ключу.
func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get возвращает значение по ключу.
func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Delete удаляет значение.
func (s *State) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}
