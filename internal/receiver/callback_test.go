package receiver

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/taskrun/internal/domain"
)

// renameArgs — pre_execute хук, заменяющий сообщение копией.
type renameArgs struct {
	rec  *recorder
	name string
	set  map[string]any
}

func (m *renameArgs) PreExecute(_ context.Context, msg *domain.TaskMessage) (*domain.TaskMessage, error) {
	m.rec.record(m.name)
	next := msg.Clone()
	for k, v := range m.set {
		next.Kwargs[k] = v
	}
	return next, nil
}

// seenArgs запоминает kwargs, которые увидел post_execute.
type seenArgs struct {
	kwargs map[string]any
}

func (m *seenArgs) PostExecute(_ context.Context, msg *domain.TaskMessage, _ *domain.Result) error {
	m.kwargs = msg.Kwargs
	return nil
}

func TestCallback_Success(t *testing.T) {
	rec := &recorder{}
	backend := newMemBackend()
	r := newTestReceiver(t, Config{
		ResultBackend: backend,
		Middlewares: []Middleware{
			&fullMiddleware{name: "a", rec: rec},
			&fullMiddleware{name: "b", rec: rec},
		},
	})

	raw := encode(t, &domain.TaskMessage{TaskID: "t-1", TaskName: "add", Args: []any{2, 3}})
	if err := r.Callback(context.Background(), raw, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, ok := backend.get("t-1")
	if !ok {
		t.Fatal("result was not saved")
	}
	if result.IsErr || result.ReturnValue != 5 {
		t.Errorf("expected 5, got %+v", result)
	}

	want := []string{
		"a:" + hookPreExecute, "b:" + hookPreExecute,
		"a:" + hookPostExecute, "b:" + hookPostExecute,
		"a:" + hookPostSave, "b:" + hookPostSave,
	}
	if got := rec.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected hook order:\n got  %v\n want %v", got, want)
	}
}

func TestCallback_FailedTaskSaved(t *testing.T) {
	rec := &recorder{}
	backend := newMemBackend()
	r := newTestReceiver(t, Config{
		ResultBackend: backend,
		Middlewares:   []Middleware{&fullMiddleware{name: "m", rec: rec}},
	})

	raw := encode(t, &domain.TaskMessage{TaskID: "t-2", TaskName: "boom"})
	if err := r.Callback(context.Background(), raw, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, ok := backend.get("t-2")
	if !ok || !result.IsErr {
		t.Fatalf("failed result should be saved, got %+v", result)
	}

	want := []string{"m:" + hookPreExecute, "m:" + hookOnError, "m:" + hookPostExecute, "m:" + hookPostSave}
	if got := rec.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected hook order: %v", got)
	}
}

func TestCallback_Dropped(t *testing.T) {
	tests := map[string][]byte{
		"malformed":    []byte(`{not json`),
		"missing id":   []byte(`{"task_name":"add"}`),
		"unknown task": []byte(`{"task_id":"t-1","task_name":"nope"}`),
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			backend := newMemBackend()
			r := newTestReceiver(t, Config{
				ResultBackend: backend,
				Middlewares:   []Middleware{&fullMiddleware{name: "m", rec: rec}},
			})

			if err := r.Callback(context.Background(), raw, true); err != nil {
				t.Errorf("dropped message must not be an error, got %v", err)
			}
			if backend.len() != 0 {
				t.Error("dropped message must not produce a result")
			}
			if calls := rec.list(); len(calls) != 0 {
				t.Errorf("no hooks expected for dropped message, got %v", calls)
			}
		})
	}
}

func TestCallback_PreExecuteChain(t *testing.T) {
	rec := &recorder{}
	seen := &seenArgs{}
	backend := newMemBackend()
	r := newTestReceiver(t, Config{
		ResultBackend: backend,
		Middlewares: []Middleware{
			&renameArgs{rec: rec, name: "A", set: map[string]any{"b": 10}},
			&renameArgs{rec: rec, name: "B", set: map[string]any{"b": 20}},
			seen,
		},
	})

	raw := encode(t, &domain.TaskMessage{TaskID: "t-3", TaskName: "add_async", Args: []any{1}, Kwargs: map[string]any{"b": 1}})
	if err := r.Callback(context.Background(), raw, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := rec.list(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("expected A then B, got %v", got)
	}

	result, _ := backend.get("t-3")
	if result == nil || result.ReturnValue != 21 {
		t.Errorf("task must see the last middleware's message, got %+v", result)
	}
	if seen.kwargs["b"] != 20 {
		t.Errorf("post_execute must see the replaced message, got %v", seen.kwargs)
	}
}

func TestCallback_SaveFailure(t *testing.T) {
	saveErr := errors.New("db down")

	for _, raiseErr := range []bool{true, false} {
		rec := &recorder{}
		backend := newMemBackend()
		backend.err = saveErr
		r := newTestReceiver(t, Config{
			ResultBackend: backend,
			Middlewares:   []Middleware{&fullMiddleware{name: "m", rec: rec}},
		})

		raw := encode(t, &domain.TaskMessage{TaskID: "t-4", TaskName: "add", Args: []any{1, 2}})
		err := r.Callback(context.Background(), raw, raiseErr)

		if raiseErr {
			if !errors.Is(err, ErrSaveResult) || !errors.Is(err, saveErr) {
				t.Errorf("raiseErr=true: expected ErrSaveResult wrapping db error, got %v", err)
			}
		} else if err != nil {
			t.Errorf("raiseErr=false: save failure must be swallowed, got %v", err)
		}

		for _, call := range rec.list() {
			if call == "m:"+hookPostSave {
				t.Errorf("raiseErr=%v: post_save must not run after failed save", raiseErr)
			}
		}
	}
}

func TestCallback_MiddlewareErrors(t *testing.T) {
	hookErr := errors.New("hook down")

	tests := []struct {
		hook      string
		wantSaved bool
	}{
		{hookPreExecute, false},
		{hookPostExecute, false},
		{hookPostSave, true},
	}

	for _, tt := range tests {
		t.Run(tt.hook, func(t *testing.T) {
			backend := newMemBackend()
			r := newTestReceiver(t, Config{
				ResultBackend: backend,
				Middlewares: []Middleware{&fullMiddleware{
					name: "m",
					rec:  &recorder{},
					err:  map[string]error{tt.hook: hookErr},
				}},
			})

			raw := encode(t, &domain.TaskMessage{TaskID: "t-5", TaskName: "add", Args: []any{1, 2}})
			err := r.Callback(context.Background(), raw, false)
			if !errors.Is(err, ErrMiddleware) || !errors.Is(err, hookErr) {
				t.Errorf("expected ErrMiddleware wrapping hook error, got %v", err)
			}

			if _, saved := backend.get("t-5"); saved != tt.wantSaved {
				t.Errorf("saved=%v, want %v", saved, tt.wantSaved)
			}
		})
	}
}

func TestCallback_BadParametersPropagate(t *testing.T) {
	backend := newMemBackend()
	r := newTestReceiver(t, Config{ResultBackend: backend})

	raw := encode(t, &domain.TaskMessage{TaskID: "t-6", TaskName: "add", Args: []any{"x", 1}})
	err := r.Callback(context.Background(), raw, false)
	if !errors.Is(err, ErrBadParameters) {
		t.Errorf("expected ErrBadParameters, got %v", err)
	}
	if backend.len() != 0 {
		t.Error("no result expected on validation failure")
	}
}
