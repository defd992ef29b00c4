package tasks

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/shaiso/taskrun/internal/domain"
)

// ParseParams приводит аргументы сообщения к типам параметров задачи.
//
// Значения заменяются в msg.Args и msg.Kwargs на месте. Лишние
// позиционные аргументы и неизвестные имена не трогаются: о них
// сообщит связывание при вызове. Ошибка приведения оборачивает
// ErrInvalidParam.
func ParseParams(d *Descriptor, msg *domain.TaskMessage) error {
	for i, p := range d.Signature.Params {
		if i < len(msg.Args) {
			v, err := coerce(msg.Args[i], p.Type)
			if err != nil {
				return fmt.Errorf("%w: %s.%s: %w", ErrInvalidParam, d.Name, p.Name, err)
			}
			msg.Args[i] = v
			continue
		}

		raw, ok := msg.Kwargs[p.Name]
		if !ok {
			continue
		}
		v, err := coerce(raw, p.Type)
		if err != nil {
			return fmt.Errorf("%w: %s.%s: %w", ErrInvalidParam, d.Name, p.Name, err)
		}
		msg.Kwargs[p.Name] = v
	}
	return nil
}

func coerce(raw any, t reflect.Type) (any, error) {
	if raw == nil {
		return nil, nil
	}

	rt := reflect.TypeOf(raw)
	if rt == t {
		return raw, nil
	}
	if t.Kind() == reflect.Interface {
		if rt.Implements(t) {
			return raw, nil
		}
		return nil, fmt.Errorf("%T does not implement %s", raw, t)
	}

	out := reflect.New(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			integralHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out.Interface(),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return out.Elem().Interface(), nil
}

// integralHook не даёт mapstructure усечь дробное число до целого,
// в том числе во вложенных полях.
func integralHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if err := checkIntegral(data, to); err != nil {
		return nil, err
	}
	return data, nil
}

// checkIntegral возвращает ошибку, если дробное число приводится к целому типу.
func checkIntegral(raw any, t reflect.Type) error {
	if !isInteger(t.Kind()) {
		return nil
	}

	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return fmt.Errorf("%v is not an integer", raw)
	}
	return nil
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
