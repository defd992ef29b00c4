package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/taskrun/internal/domain"
)

const resultsSchema = `
	CREATE TABLE IF NOT EXISTS task_results (
		task_id        TEXT PRIMARY KEY,
		is_err         BOOLEAN NOT NULL,
		return_value   JSONB,
		error          TEXT,
		log            TEXT,
		execution_time DOUBLE PRECISION NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// ResultRepo — хранилище результатов задач в PostgreSQL.
type ResultRepo struct {
	pool *pgxpool.Pool
}

// NewResultRepo создаёт новый ResultRepo.
func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

// EnsureSchema создаёт таблицу результатов, если её нет.
func (r *ResultRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, resultsSchema); err != nil {
		return fmt.Errorf("create task_results: %w", err)
	}
	return nil
}

// SetResult сохраняет результат. Повторная запись перезаписывает
// предыдущую: брокер может доставить сообщение повторно.
func (r *ResultRepo) SetResult(ctx context.Context, taskID string, result *domain.Result) error {
	if taskID == "" {
		return ErrEmptyTaskID
	}

	var returnJSON []byte
	if !result.IsErr {
		var err error
		returnJSON, err = json.Marshal(result.ReturnValue)
		if err != nil {
			return fmt.Errorf("marshal return value: %w", err)
		}
	}

	query := `
		INSERT INTO task_results (task_id, is_err, return_value, error, log, execution_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (task_id) DO UPDATE
		SET is_err = EXCLUDED.is_err,
		    return_value = EXCLUDED.return_value,
		    error = EXCLUDED.error,
		    log = EXCLUDED.log,
		    execution_time = EXCLUDED.execution_time,
		    created_at = EXCLUDED.created_at
	`
	_, err := r.pool.Exec(ctx, query,
		taskID,
		result.IsErr,
		returnJSON,
		nullString(result.Error),
		result.Log,
		result.ExecutionTime.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

// GetResult возвращает сохранённый результат.
func (r *ResultRepo) GetResult(ctx context.Context, taskID string) (*domain.Result, error) {
	query := `
		SELECT is_err, return_value, error, log, execution_time
		FROM task_results
		WHERE task_id = $1
	`

	var (
		result     domain.Result
		returnJSON []byte
		errText    *string
		seconds    float64
	)
	err := r.pool.QueryRow(ctx, query, taskID).Scan(
		&result.IsErr,
		&returnJSON,
		&errText,
		&result.Log,
		&seconds,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}

	if len(returnJSON) > 0 {
		if err := json.Unmarshal(returnJSON, &result.ReturnValue); err != nil {
			return nil, fmt.Errorf("unmarshal return value: %w", err)
		}
	}
	if errText != nil {
		result.Error = *errText
	}
	result.ExecutionTime = time.Duration(seconds * float64(time.Second))

	return &result, nil
}

// IsReady проверяет, сохранён ли результат.
func (r *ResultRepo) IsReady(ctx context.Context, taskID string) (bool, error) {
	var ready bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM task_results WHERE task_id = $1)`, taskID,
	).Scan(&ready)
	if err != nil {
		return false, fmt.Errorf("check result: %w", err)
	}
	return ready, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
