package types

import (
	"encoding"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leycm/vault/pkg/tree"
)

// StructTag is the field tag Struct reads key names from.
const StructTag = "config"

// Struct returns an adapter that decodes a section into a struct of type T
// and encodes it back into a map. Field names come from the `config` tag.
// A value that cannot be encoded as a map becomes an empty section.
// Durations may be written as Go duration strings and fields implementing
// encoding.TextUnmarshaler accept strings.
func Struct[T any]() Adapter[T] {
	return Func[T]{
		From: func(raw any) (T, bool) {
			var out T
			m, ok := raw.(*tree.Map)
			if !ok {
				return out, false
			}
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				TagName:          StructTag,
				Result:           &out,
				WeaklyTypedInput: true,
				DecodeHook: mapstructure.ComposeDecodeHookFunc(
					durationHookFunc(),
					textUnmarshalerHookFunc(),
				),
			})
			if err != nil {
				return out, false
			}
			if err := dec.Decode(m.ToPlain()); err != nil {
				return out, false
			}
			return out, true
		},
		To: func(v T) any {
			var plain map[string]any
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				TagName: StructTag,
				Result:  &plain,
			})
			if err != nil {
				return tree.New()
			}
			if err := dec.Decode(v); err != nil {
				return tree.New()
			}
			return tree.FromPlain(stringifyDurations(plain))
		},
	}
}

// stringifyDurations rewrites time.Duration values into their string form so
// they serialize readably and decode back through durationHookFunc.
func stringifyDurations(m map[string]any) map[string]any {
	for k, v := range m {
		switch x := v.(type) {
		case time.Duration:
			m[k] = x.String()
		case map[string]any:
			m[k] = stringifyDurations(x)
		}
	}
	return m
}

func durationHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeFor[time.Duration]() {
			return data, nil
		}
		if f.Kind() != reflect.String {
			return data, nil
		}
		return time.ParseDuration(reflect.ValueOf(data).String())
	}
}

func textUnmarshalerHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t.Kind() == reflect.String {
			return data, nil
		}
		result := reflect.New(t)
		u, ok := result.Interface().(encoding.TextUnmarshaler)
		if !ok {
			return data, nil
		}
		if err := u.UnmarshalText([]byte(reflect.ValueOf(data).String())); err != nil {
			return nil, err
		}
		return result.Elem().Interface(), nil
	}
}
