package repo

import (
	"context"
	"sync"

	"github.com/shaiso/taskrun/internal/domain"
)

// MemoryResultRepo — хранилище результатов в памяти процесса.
type MemoryResultRepo struct {
	mu      sync.RWMutex
	results map[string]domain.Result
}

// NewMemoryResultRepo создаёт пустое хранилище.
func NewMemoryResultRepo() *MemoryResultRepo {
	return &MemoryResultRepo{results: make(map[string]domain.Result)}
}

func (r *MemoryResultRepo) SetResult(_ context.Context, taskID string, result *domain.Result) error {
	if taskID == "" {
		return ErrEmptyTaskID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[taskID] = *result
	return nil
}

func (r *MemoryResultRepo) GetResult(_ context.Context, taskID string) (*domain.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, ok := r.results[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	return &result, nil
}

func (r *MemoryResultRepo) IsReady(_ context.Context, taskID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.results[taskID]
	return ok, nil
}
