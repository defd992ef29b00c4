package depends

import (
	"context"
	"fmt"
	"sort"
)

// Provider вычисляет значение зависимости в рамках Scope.
type Provider func(ctx context.Context, s *Scope) (any, error)

// Value возвращает провайдер константы.
func Value(v any) Provider {
	return func(context.Context, *Scope) (any, error) {
		return v, nil
	}
}

// Resource возвращает провайдер ресурса с очисткой.
// release вызывается при закрытии Scope.
func Resource[T any](acquire func(ctx context.Context, s *Scope) (T, error), release func(ctx context.Context, v T) error) Provider {
	return func(ctx context.Context, s *Scope) (any, error) {
		v, err := acquire(ctx, s)
		if err != nil {
			return nil, err
		}
		if err := s.Defer(func(ctx context.Context) error { return release(ctx, v) }); err != nil {
			_ = release(ctx, v)
			return nil, err
		}
		return v, nil
	}
}

type dependency struct {
	param   string
	provide Provider
}

// Graph — шаблон разрешения зависимостей задачи.
// Строится один раз при регистрации и дальше только читается.
type Graph struct {
	deps []dependency
}

// NewGraph строит граф по карте "имя параметра → провайдер".
// Возвращает nil для пустой карты: у задачи нет зависимостей.
func NewGraph(providers map[string]Provider) *Graph {
	if len(providers) == 0 {
		return nil
	}

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	g := &Graph{deps: make([]dependency, 0, len(names))}
	for _, name := range names {
		g.deps = append(g.deps, dependency{param: name, provide: providers[name]})
	}
	return g
}

// Names возвращает имена параметров, заполняемых графом.
func (g *Graph) Names() []string {
	names := make([]string, len(g.deps))
	for i, d := range g.deps {
		names[i] = d.param
	}
	return names
}

// Resolve разрешает все зависимости.
// Провайдеры вызываются последовательно, в порядке имён.
func (g *Graph) Resolve(ctx context.Context, s *Scope) (map[string]any, error) {
	values := make(map[string]any, len(g.deps))
	for _, d := range g.deps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := d.provide(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrResolve, d.param, err)
		}
		values[d.param] = v
	}
	return values, nil
}
