package tasks

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/shaiso/taskrun/internal/depends"
)

// Lane — полоса выполнения задачи.
type Lane int

const (
	// LaneAsync — задача выполняется в горутине обработки сообщения.
	LaneAsync Lane = iota

	// LaneBlocking — задача выполняется в пуле блокирующих вызовов.
	LaneBlocking
)

func (l Lane) String() string {
	if l == LaneBlocking {
		return "blocking"
	}
	return "async"
}

// Definition — описание задачи для регистрации.
type Definition struct {
	// Name — уникальное имя задачи.
	Name string

	// Func — тело задачи.
	Func any

	// Params — имена параметров функции по порядку,
	// без учёта ведущего context.Context.
	Params []string

	// Depends — провайдеры для параметров, заполняемых зависимостями.
	Depends map[string]depends.Provider

	// Blocking — принудительно выполнять в пуле блокирующих вызовов.
	Blocking bool
}

// Param — параметр сигнатуры задачи.
type Param struct {
	Name string
	Type reflect.Type
}

// Signature — сигнатура тела задачи.
type Signature struct {
	// Params — параметры по порядку (без context.Context).
	Params []Param

	// TakesContext — первый параметр функции context.Context.
	TakesContext bool

	// ReturnsValue — функция возвращает значение.
	ReturnsValue bool

	// ReturnsError — последним результатом функция возвращает error.
	ReturnsError bool
}

// Descriptor — метаданные зарегистрированной задачи.
// Не изменяется после построения Registry.
type Descriptor struct {
	Name      string
	Signature Signature

	// Hints — тип каждого параметра по имени.
	Hints map[string]reflect.Type

	// Graph — шаблон разрешения зависимостей, nil если их нет.
	Graph *depends.Graph

	Lane Lane

	fn    reflect.Value
	index map[string]int
}

// Registry — реестр задач по имени.
type Registry struct {
	tasks map[string]*Descriptor
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// NewRegistry строит реестр из определений.
// Любое некорректное определение — ошибка всего реестра.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{tasks: make(map[string]*Descriptor, len(defs))}
	for _, def := range defs {
		if _, exists := r.tasks[def.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, def.Name)
		}
		d, err := newDescriptor(def)
		if err != nil {
			return nil, err
		}
		r.tasks[def.Name] = d
	}
	return r, nil
}

// MustRegistry — как NewRegistry, но паникует при ошибке.
func MustRegistry(defs ...Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get возвращает задачу по имени.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	d, ok := r.tasks[name]
	return d, ok
}

// Names возвращает отсортированные имена задач.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len возвращает количество задач.
func (r *Registry) Len() int {
	return len(r.tasks)
}

func newDescriptor(def Definition) (*Descriptor, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidDefinition, def.Name, fmt.Sprintf(format, args...))
	}

	if def.Name == "" {
		return nil, fmt.Errorf("%w: empty task name", ErrInvalidDefinition)
	}
	if def.Func == nil {
		return nil, invalid("func is nil")
	}

	fn := reflect.ValueOf(def.Func)
	ft := fn.Type()
	if ft.Kind() != reflect.Func {
		return nil, invalid("expected func, got %s", ft)
	}
	if ft.IsVariadic() {
		return nil, invalid("variadic funcs are not supported")
	}

	sig := Signature{}
	offset := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		sig.TakesContext = true
		offset = 1
	}

	if got := ft.NumIn() - offset; got != len(def.Params) {
		return nil, invalid("func has %d parameters, %d names given", got, len(def.Params))
	}

	index := make(map[string]int, len(def.Params))
	hints := make(map[string]reflect.Type, len(def.Params))
	for i, name := range def.Params {
		if name == "" {
			return nil, invalid("parameter %d has empty name", i)
		}
		if _, dup := index[name]; dup {
			return nil, invalid("duplicate parameter name %q", name)
		}
		t := ft.In(i + offset)
		index[name] = i
		hints[name] = t
		sig.Params = append(sig.Params, Param{Name: name, Type: t})
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			sig.ReturnsError = true
		} else {
			sig.ReturnsValue = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, invalid("second result must be error, got %s", ft.Out(1))
		}
		sig.ReturnsValue = true
		sig.ReturnsError = true
	default:
		return nil, invalid("func returns %d results, at most 2 supported", ft.NumOut())
	}

	for name, provide := range def.Depends {
		if _, ok := index[name]; !ok {
			return nil, invalid("dependency for unknown parameter %q", name)
		}
		if provide == nil {
			return nil, invalid("nil provider for parameter %q", name)
		}
	}

	lane := LaneBlocking
	if sig.TakesContext && !def.Blocking {
		lane = LaneAsync
	}

	return &Descriptor{
		Name:      def.Name,
		Signature: sig,
		Hints:     hints,
		Graph:     depends.NewGraph(def.Depends),
		Lane:      lane,
		fn:        fn,
		index:     index,
	}, nil
}
