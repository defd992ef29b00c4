package depends

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

type config struct{ name string }

func TestScope_Value(t *testing.T) {
	cfg := &config{name: "a"}
	s := NewScope(cfg, nil, 42)

	got, ok := Seed[*config](s)
	if !ok || got != cfg {
		t.Errorf("expected seeded config, got %v (ok=%v)", got, ok)
	}
	if n, ok := Seed[int](s); !ok || n != 42 {
		t.Errorf("expected 42, got %v (ok=%v)", n, ok)
	}
	if _, ok := Seed[string](s); ok {
		t.Error("string was not seeded")
	}
}

func TestScope_ValueByInterface(t *testing.T) {
	s := NewScope(errors.New("seeded"))

	v, ok := s.Value(reflect.TypeFor[error]())
	if !ok {
		t.Fatal("expected error seed to satisfy error interface")
	}
	if v.(error).Error() != "seeded" {
		t.Errorf("unexpected value: %v", v)
	}
	if _, ok := s.Value(reflect.TypeFor[fmt.Stringer]()); ok {
		t.Error("no seed implements fmt.Stringer")
	}
}

func TestScope_CloseLIFO(t *testing.T) {
	s := NewScope()

	var order []int
	for i := 1; i <= 3; i++ {
		if err := s.Defer(func(context.Context) error {
			order = append(order, i)
			return nil
		}); err != nil {
			t.Fatalf("defer: %v", err)
		}
	}

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !reflect.DeepEqual(order, []int{3, 2, 1}) {
		t.Errorf("expected LIFO order, got %v", order)
	}

	// Повторный Close ничего не делает.
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(order) != 3 {
		t.Errorf("cleanups ran twice: %v", order)
	}

	if err := s.Defer(func(context.Context) error { return nil }); !errors.Is(err, ErrScopeClosed) {
		t.Errorf("expected ErrScopeClosed, got %v", err)
	}
}

func TestScope_CloseJoinsErrors(t *testing.T) {
	s := NewScope()
	errA := errors.New("a")
	errB := errors.New("b")
	ran := 0

	_ = s.Defer(func(context.Context) error { ran++; return errA })
	_ = s.Defer(func(context.Context) error { ran++; return errB })

	err := s.Close(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both errors joined, got %v", err)
	}
	if ran != 2 {
		t.Errorf("all cleanups must run, ran %d", ran)
	}
}

func TestGraph_Resolve(t *testing.T) {
	cfg := &config{name: "prod"}
	released := false

	g := NewGraph(map[string]Provider{
		"cfg":   FromSeed[*config](),
		"limit": Value(10),
		"conn": Resource(
			func(ctx context.Context, s *Scope) (string, error) { return "conn-1", nil },
			func(ctx context.Context, v string) error { released = true; return nil },
		),
	})

	if got := g.Names(); !reflect.DeepEqual(got, []string{"cfg", "conn", "limit"}) {
		t.Errorf("expected sorted names, got %v", got)
	}

	s := NewScope(cfg)
	values, err := g.Resolve(context.Background(), s)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := map[string]any{"cfg": cfg, "limit": 10, "conn": "conn-1"}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("expected %v, got %v", want, values)
	}

	if released {
		t.Error("resource released before scope close")
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !released {
		t.Error("resource should be released on scope close")
	}
}

func TestGraph_ResolveErrors(t *testing.T) {
	g := NewGraph(map[string]Provider{"cfg": FromSeed[*config]()})

	_, err := g.Resolve(context.Background(), NewScope())
	if !errors.Is(err, ErrResolve) || !errors.Is(err, ErrSeedNotFound) {
		t.Errorf("expected ErrResolve wrapping ErrSeedNotFound, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Resolve(ctx, NewScope(&config{}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestResource_ReleasesOnClosedScope(t *testing.T) {
	released := false
	p := Resource(
		func(ctx context.Context, s *Scope) (int, error) { return 1, nil },
		func(ctx context.Context, v int) error { released = true; return nil },
	)

	s := NewScope()
	_ = s.Close(context.Background())

	_, err := p(context.Background(), s)
	if !errors.Is(err, ErrScopeClosed) {
		t.Errorf("expected ErrScopeClosed, got %v", err)
	}
	if !released {
		t.Error("resource acquired on closed scope must be released")
	}
}

func TestNewGraph_Empty(t *testing.T) {
	if NewGraph(nil) != nil {
		t.Error("empty graph should be nil")
	}
}
