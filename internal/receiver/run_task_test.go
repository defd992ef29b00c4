package receiver

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/taskrun/internal/depends"
	"github.com/shaiso/taskrun/internal/domain"
	"github.com/shaiso/taskrun/internal/pool"
	"github.com/shaiso/taskrun/internal/tasks"
)

func task(t *testing.T, r *Receiver, name string) *tasks.Descriptor {
	t.Helper()
	d, ok := r.registry.Get(name)
	if !ok {
		t.Fatalf("task %s not registered", name)
	}
	return d
}

func message(name string, args []any, kwargs map[string]any) *domain.TaskMessage {
	return &domain.TaskMessage{TaskID: "t-1", TaskName: name, Args: args, Kwargs: kwargs}
}

func TestRunTask_Success(t *testing.T) {
	r := newTestReceiver(t, Config{})

	// Числа из JSON приходят как float64.
	result, err := r.RunTask(context.Background(), task(t, r, "add"), message("add", []any{2.0, 3.0}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.IsErr {
		t.Errorf("expected success, got error %q", result.Error)
	}
	if result.ReturnValue != 5 {
		t.Errorf("expected 5, got %#v", result.ReturnValue)
	}
	if result.Log != nil {
		t.Error("log should be nil")
	}
	if result.ExecutionTime < 0 {
		t.Errorf("negative execution time: %v", result.ExecutionTime)
	}
}

func TestRunTask_Failure(t *testing.T) {
	rec := &recorder{}
	r := newTestReceiver(t, Config{
		Middlewares: []Middleware{&fullMiddleware{name: "m", rec: rec}},
	})

	result, err := r.RunTask(context.Background(), task(t, r, "boom"), message("boom", nil, nil))
	if err != nil {
		t.Fatalf("task failure must not be returned as error: %v", err)
	}

	if !result.IsErr {
		t.Fatal("expected failed result")
	}
	if !strings.Contains(result.Error, "boom") {
		t.Errorf("expected error text boom, got %q", result.Error)
	}
	if result.ReturnValue != nil {
		t.Errorf("failed result should have no return value, got %v", result.ReturnValue)
	}

	calls := rec.list()
	if len(calls) != 1 || calls[0] != "m:"+hookOnError {
		t.Errorf("expected exactly one on_error call, got %v", calls)
	}
}

func TestRunTask_NoOnErrorOnSuccess(t *testing.T) {
	rec := &recorder{}
	r := newTestReceiver(t, Config{
		Middlewares: []Middleware{&fullMiddleware{name: "m", rec: rec}},
	})

	if _, err := r.RunTask(context.Background(), task(t, r, "add_async"), message("add_async", []any{1, 1}, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls := rec.list(); len(calls) != 0 {
		t.Errorf("RunTask should only call on_error hooks, got %v", calls)
	}
}

func TestRunTask_Panic(t *testing.T) {
	r := newTestReceiver(t, Config{})

	result, err := r.RunTask(context.Background(), task(t, r, "panic"), message("panic", nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsErr || !strings.Contains(result.Error, "oops") {
		t.Errorf("expected failed result with panic value, got %+v", result)
	}
}

func TestRunTask_OnErrorHookFails(t *testing.T) {
	hookErr := errors.New("hook down")
	r := newTestReceiver(t, Config{
		Middlewares: []Middleware{&fullMiddleware{
			name: "m",
			rec:  &recorder{},
			err:  map[string]error{hookOnError: hookErr},
		}},
	})

	result, err := r.RunTask(context.Background(), task(t, r, "boom"), message("boom", nil, nil))
	if !errors.Is(err, ErrMiddleware) || !errors.Is(err, hookErr) {
		t.Errorf("expected ErrMiddleware wrapping hook error, got %v", err)
	}
	if result == nil || !result.IsErr {
		t.Errorf("failed result should still be returned, got %+v", result)
	}
}

func TestRunTask_BadParameters(t *testing.T) {
	r := newTestReceiver(t, Config{})

	result, err := r.RunTask(context.Background(), task(t, r, "add"), message("add", []any{"abc", 1}, nil))
	if !errors.Is(err, ErrBadParameters) {
		t.Fatalf("expected ErrBadParameters, got %v", err)
	}
	if result != nil {
		t.Errorf("no result expected on validation failure, got %+v", result)
	}
}

func TestRunTask_FractionalForInt(t *testing.T) {
	r := newTestReceiver(t, Config{})

	result, err := r.RunTask(context.Background(), task(t, r, "add"), message("add", []any{2.7, 3.9}, nil))
	if !errors.Is(err, ErrBadParameters) {
		t.Fatalf("expected ErrBadParameters, got %v (result %+v)", err, result)
	}

	r = newTestReceiver(t, Config{DisableParamValidation: true})
	result, err = r.RunTask(context.Background(), task(t, r, "add"), message("add", []any{2.7, 3.9}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsErr || !strings.Contains(result.Error, tasks.ErrArgType.Error()) {
		t.Errorf("expected argument type failure, got %+v", result)
	}
}

func TestRunTask_ValidationDisabled(t *testing.T) {
	r := newTestReceiver(t, Config{DisableParamValidation: true})

	// Без валидации строка не приводится к int, и вызов падает
	// на связывании аргументов — это ошибка выполнения.
	result, err := r.RunTask(context.Background(), task(t, r, "add"), message("add", []any{"2", 1}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsErr || !strings.Contains(result.Error, tasks.ErrArgType.Error()) {
		t.Errorf("expected argument type failure, got %+v", result)
	}

	// Числа всё равно конвертируются при связывании.
	result, err = r.RunTask(context.Background(), task(t, r, "add"), message("add", []any{2.0, 1.0}, nil))
	if err != nil || result.IsErr {
		t.Fatalf("unexpected failure: %v %+v", err, result)
	}
	if result.ReturnValue != 3 {
		t.Errorf("expected 3, got %v", result.ReturnValue)
	}
}

func TestRunTask_Lanes(t *testing.T) {
	p := pool.New(2, discardLogger())
	defer p.Close()
	exec := &countingExecutor{pool: p}

	r := newTestReceiver(t, Config{Executor: exec})

	if _, err := r.RunTask(context.Background(), task(t, r, "add_async"), message("add_async", []any{1, 2}, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.count() != 0 {
		t.Errorf("async task must not use the executor, got %d calls", exec.count())
	}

	result, err := r.RunTask(context.Background(), task(t, r, "add"), message("add", []any{1, 2}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.count() != 1 {
		t.Errorf("blocking task must use the executor once, got %d calls", exec.count())
	}
	if result.ReturnValue != 3 {
		t.Errorf("expected 3, got %v", result.ReturnValue)
	}
}

func TestRunTask_KwargsOverrideDependencies(t *testing.T) {
	reg := testRegistry(t, tasks.Definition{
		Name:    "hello",
		Func:    func(ctx context.Context, name string) string { return "hello " + name },
		Params:  []string{"name"},
		Depends: map[string]depends.Provider{"name": depends.Value("injected")},
	})
	r := newTestReceiver(t, Config{Registry: reg})

	result, err := r.RunTask(context.Background(), task(t, r, "hello"), message("hello", nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ReturnValue != "hello injected" {
		t.Errorf("expected injected value, got %v", result.ReturnValue)
	}

	result, err = r.RunTask(context.Background(), task(t, r, "hello"), message("hello", nil, map[string]any{"name": "explicit"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ReturnValue != "hello explicit" {
		t.Errorf("explicit kwarg must win, got %v", result.ReturnValue)
	}
}

func TestRunTask_ReceiverContextAndState(t *testing.T) {
	type dbConn struct{ dsn string }

	reg := testRegistry(t, tasks.Definition{
		Name: "whoami",
		Func: func(ctx context.Context, rc *Context, st *domain.State, db *dbConn) string {
			v, _ := st.Get("env")
			return rc.Message.TaskID + "/" + v.(string) + "/" + db.dsn
		},
		Params: []string{"rc", "st", "db"},
		Depends: map[string]depends.Provider{
			"rc": depends.FromSeed[*Context](),
			"st": depends.FromSeed[*domain.State](),
			"db": depends.FromSeed[*dbConn](),
		},
	})

	state := domain.NewState()
	state.Set("env", "test")
	r := newTestReceiver(t, Config{
		Registry:          reg,
		State:             state,
		DependencyContext: []any{&dbConn{dsn: "pg"}},
	})

	result, err := r.RunTask(context.Background(), task(t, r, "whoami"), message("whoami", nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ReturnValue != "t-1/test/pg" {
		t.Errorf("unexpected value %v (error %q)", result.ReturnValue, result.Error)
	}
}

func TestRunTask_ScopeClosedOnFailure(t *testing.T) {
	var released atomic.Bool

	reg := testRegistry(t, tasks.Definition{
		Name: "uses_resource",
		Func: func(ctx context.Context, conn string) error {
			return errBoom
		},
		Params: []string{"conn"},
		Depends: map[string]depends.Provider{
			"conn": depends.Resource(
				func(context.Context, *depends.Scope) (string, error) { return "conn", nil },
				func(context.Context, string) error { released.Store(true); return nil },
			),
		},
	})
	r := newTestReceiver(t, Config{Registry: reg})

	result, err := r.RunTask(context.Background(), task(t, r, "uses_resource"), message("uses_resource", nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsErr {
		t.Error("expected failed result")
	}
	if !released.Load() {
		t.Error("dependency scope must be closed after failure")
	}
}

func TestRunTask_DependencyError(t *testing.T) {
	type missing struct{}

	reg := testRegistry(t, tasks.Definition{
		Name:    "needs_missing",
		Func:    func(ctx context.Context, m *missing) {},
		Params:  []string{"m"},
		Depends: map[string]depends.Provider{"m": depends.FromSeed[*missing]()},
	})
	r := newTestReceiver(t, Config{Registry: reg})

	result, err := r.RunTask(context.Background(), task(t, r, "needs_missing"), message("needs_missing", nil, nil))
	if err != nil {
		t.Fatalf("dependency failure must become a failed result: %v", err)
	}
	if !result.IsErr || !strings.Contains(result.Error, depends.ErrResolve.Error()) {
		t.Errorf("expected resolve failure, got %+v", result)
	}
}

func TestRunTask_Cancelled(t *testing.T) {
	rec := &recorder{}
	r := newTestReceiver(t, Config{
		Middlewares: []Middleware{&fullMiddleware{name: "m", rec: rec}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	result, err := r.RunTask(ctx, task(t, r, "wait"), message("wait", nil, nil))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result != nil {
		t.Errorf("cancelled run must not produce a result, got %+v", result)
	}
	if calls := rec.list(); len(calls) != 0 {
		t.Errorf("cancellation is not a task failure, got hooks %v", calls)
	}
}
