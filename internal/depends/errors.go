package depends

import "errors"

var (
	// ErrSeedNotFound — в Scope нет значения нужного типа.
	ErrSeedNotFound = errors.New("dependency seed not found")

	// ErrScopeClosed — Scope уже закрыт.
	ErrScopeClosed = errors.New("dependency scope is closed")

	// ErrResolve — провайдер завершился ошибкой.
	ErrResolve = errors.New("dependency resolution failed")
)
