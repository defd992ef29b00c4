package tasks

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
)

// Call вызывает тело задачи с позиционными и именованными аргументами.
//
// Паника внутри тела возвращается как *PanicError.
// Ошибки связывания аргументов (ErrMissingArg и т.п.) возвращаются
// до вызова функции.
func (d *Descriptor) Call(ctx context.Context, args []any, kwargs map[string]any) (ret any, err error) {
	in, err := d.bind(ctx, args, kwargs)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			ret = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return d.unpack(d.fn.Call(in))
}

// bind раскладывает аргументы по параметрам сигнатуры.
func (d *Descriptor) bind(ctx context.Context, args []any, kwargs map[string]any) ([]reflect.Value, error) {
	params := d.Signature.Params
	if len(args) > len(params) {
		return nil, fmt.Errorf("%w: %s takes %d, got %d", ErrTooManyArgs, d.Name, len(params), len(args))
	}
	for name := range kwargs {
		if _, ok := d.index[name]; !ok {
			return nil, fmt.Errorf("%w: %s got %q", ErrUnexpectedArg, d.Name, name)
		}
	}

	in := make([]reflect.Value, 0, len(params)+1)
	if d.Signature.TakesContext {
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}

	for i, p := range params {
		var raw any
		var ok bool
		if i < len(args) {
			if _, dup := kwargs[p.Name]; dup {
				return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateArg, d.Name, p.Name)
			}
			raw, ok = args[i], true
		} else {
			raw, ok = kwargs[p.Name]
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingArg, d.Name, p.Name)
		}

		v, err := convertArg(raw, p.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrArgType, d.Name, p.Name, err)
		}
		in = append(in, v)
	}

	return in, nil
}

// unpack разбирает результаты вызова согласно сигнатуре.
func (d *Descriptor) unpack(out []reflect.Value) (any, error) {
	sig := d.Signature
	if sig.ReturnsError {
		if e := out[len(out)-1]; !e.IsNil() {
			return nil, e.Interface().(error)
		}
	}
	if sig.ReturnsValue {
		return out[0].Interface(), nil
	}
	return nil, nil
}

// convertArg приводит значение к типу параметра без потери смысла:
// присваиваемые значения передаются как есть, числа конвертируются
// между числовыми типами (дробное в целое — ошибка), именованные
// типы — в свой базовый вид.
func convertArg(raw any, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %s", t)
	}

	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		v := reflect.New(t).Elem()
		v.Set(rv)
		return v, nil
	}
	if isNumeric(rv.Kind()) && isNumeric(t.Kind()) {
		if err := checkIntegral(raw, t); err != nil {
			return reflect.Value{}, err
		}
		return rv.Convert(t), nil
	}
	if rv.Kind() == t.Kind() && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", raw, t)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
