package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leycm/vault/pkg/tree"
)

type signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

type float interface {
	~float32 | ~float64
}

type number interface {
	signed | unsigned | float
}

func registerBuiltins(r *Registry) {
	Register[int](r, Signed[int]())
	Register[int8](r, Signed[int8]())
	Register[int16](r, Signed[int16]())
	Register[int32](r, Signed[int32]())
	Register[int64](r, Signed[int64]())
	Register[uint](r, Unsigned[uint]())
	Register[uint8](r, Unsigned[uint8]())
	Register[uint16](r, Unsigned[uint16]())
	Register[uint32](r, Unsigned[uint32]())
	Register[uint64](r, Unsigned[uint64]())
	Register[float32](r, Float[float32]())
	Register[float64](r, Float[float64]())
	Register[bool](r, Bool())
	Register[string](r, String())
	Register[time.Duration](r, Duration())
	Register[time.Time](r, Time())
	Register[uuid.UUID](r, UUID())
}

// fromNumber converts any Go numeric kind into T without range checks,
// matching plain Go conversion semantics (truncation and wrap-around).
func fromNumber[T number](raw any) (T, bool) {
	switch x := raw.(type) {
	case int:
		return T(x), true
	case int8:
		return T(x), true
	case int16:
		return T(x), true
	case int32:
		return T(x), true
	case int64:
		return T(x), true
	case uint:
		return T(x), true
	case uint8:
		return T(x), true
	case uint16:
		return T(x), true
	case uint32:
		return T(x), true
	case uint64:
		return T(x), true
	case float32:
		return T(x), true
	case float64:
		return T(x), true
	}
	return 0, false
}

// Signed returns the adapter for signed integer types. Strings are parsed as
// base-10 integers; anything that does not parse is no value.
func Signed[T signed]() Adapter[T] {
	return Func[T]{From: func(raw any) (T, bool) {
		if s, ok := raw.(string); ok {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return 0, false
			}
			return T(n), true
		}
		return fromNumber[T](raw)
	}}
}

// Unsigned returns the adapter for unsigned integer types.
func Unsigned[T unsigned]() Adapter[T] {
	return Func[T]{From: func(raw any) (T, bool) {
		if s, ok := raw.(string); ok {
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return 0, false
			}
			return T(n), true
		}
		return fromNumber[T](raw)
	}}
}

// Float returns the adapter for floating point types.
func Float[T float]() Adapter[T] {
	return Func[T]{From: func(raw any) (T, bool) {
		if s, ok := raw.(string); ok {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, false
			}
			return T(f), true
		}
		return fromNumber[T](raw)
	}}
}

// Bool returns the boolean adapter. Numbers are truncated to an integer and
// are true when that is non-zero. Strings are true only when they equal
// "true" ignoring case.
func Bool() Adapter[bool] {
	return Func[bool]{From: func(raw any) (bool, bool) {
		switch x := raw.(type) {
		case bool:
			return x, true
		case string:
			return strings.EqualFold(x, "true"), true
		}
		if n, ok := fromNumber[int64](raw); ok {
			return n != 0, true
		}
		return false, false
	}}
}

// String returns the string adapter, which formats any non-nil raw value.
func String() Adapter[string] {
	return Func[string]{From: func(raw any) (string, bool) {
		switch x := raw.(type) {
		case string:
			return x, true
		case time.Time:
			return x.Format(time.RFC3339Nano), true
		case *tree.Map:
			return x.String(), true
		}
		return fmt.Sprint(raw), true
	}}
}

// Duration returns the adapter for time.Duration. Durations are stored in
// Go duration syntax ("1h30m"); integer raw values count nanoseconds.
func Duration() Adapter[time.Duration] {
	return Func[time.Duration]{
		From: func(raw any) (time.Duration, bool) {
			switch x := raw.(type) {
			case time.Duration:
				return x, true
			case string:
				d, err := time.ParseDuration(x)
				if err != nil {
					return 0, false
				}
				return d, true
			case float32, float64:
				return 0, false
			}
			return fromNumber[time.Duration](raw)
		},
		To: func(d time.Duration) any { return d.String() },
	}
}

// localTime is satisfied by the local date and date-time values TOML
// decoders produce.
type localTime interface {
	AsTime(zone *time.Location) time.Time
}

// Time returns the adapter for time.Time. RFC 3339 strings are accepted, as
// are bare dates and "2006-01-02 15:04:05" date-times, read as UTC.
func Time() Adapter[time.Time] {
	return Func[time.Time]{From: func(raw any) (time.Time, bool) {
		switch x := raw.(type) {
		case time.Time:
			return x, true
		case localTime:
			return x.AsTime(time.UTC), true
		case string:
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, x); err == nil {
					return t, true
				}
			}
		}
		return time.Time{}, false
	}}
}

var timeLayouts = []string{time.RFC3339Nano, time.DateTime, time.DateOnly}

// UUID returns the adapter for uuid.UUID, stored as its canonical string.
func UUID() Adapter[uuid.UUID] {
	return Func[uuid.UUID]{
		From: func(raw any) (uuid.UUID, bool) {
			switch x := raw.(type) {
			case uuid.UUID:
				return x, true
			case string:
				id, err := uuid.Parse(x)
				if err != nil {
					return uuid.Nil, false
				}
				return id, true
			}
			return uuid.Nil, false
		},
		To: func(id uuid.UUID) any { return id.String() },
	}
}
