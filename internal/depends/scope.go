package depends

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Scope — контекст разрешения зависимостей одного вызова задачи.
type Scope struct {
	mu       sync.Mutex
	seeds    map[reflect.Type]any
	cleanups []func(ctx context.Context) error
	closed   bool
}

// NewScope создаёт Scope, засеянный значениями.
// Значения индексируются по динамическому типу; nil пропускаются.
// При совпадении типов побеждает последнее значение.
func NewScope(seeds ...any) *Scope {
	s := &Scope{seeds: make(map[reflect.Type]any, len(seeds))}
	for _, v := range seeds {
		if v == nil {
			continue
		}
		s.seeds[reflect.TypeOf(v)] = v
	}
	return s
}

// Value возвращает значение заданного типа.
// Для интерфейсного типа возвращается первое значение, реализующее его.
func (s *Scope) Value(t reflect.Type) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.seeds[t]; ok {
		return v, true
	}
	if t.Kind() != reflect.Interface {
		return nil, false
	}
	for st, v := range s.seeds {
		if st.Implements(t) {
			return v, true
		}
	}
	return nil, false
}

// Defer регистрирует функцию очистки.
// Очистки выполняются в обратном порядке при Close.
func (s *Scope) Defer(fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrScopeClosed
	}
	s.cleanups = append(s.cleanups, fn)
	return nil
}

// Close выполняет все очистки. Повторный вызов ничего не делает.
func (s *Scope) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cleanups := s.cleanups
	s.cleanups = nil
	s.mu.Unlock()

	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Seed возвращает значение типа T из Scope.
func Seed[T any](s *Scope) (T, bool) {
	var zero T
	v, ok := s.Value(reflect.TypeFor[T]())
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// FromSeed возвращает провайдер, отдающий значение типа T из Scope.
func FromSeed[T any]() Provider {
	return func(_ context.Context, s *Scope) (any, error) {
		v, ok := Seed[T](s)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSeedNotFound, reflect.TypeFor[T]())
		}
		return v, nil
	}
}
