package polyrender

import (
	"fmt"
	"reflect"
)

// Function is the native callable signature for context values used as filters or in
// call bindings such as {{format(price)}}. Any other Go func value may be supplied
// as well; it is called through reflection.
type Function func(args ...interface{}) (interface{}, error)

// noop is the default for a referenced callable missing from the context.
var noop Function = func(args ...interface{}) (interface{}, error) {
	return nil, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// isCallable reports whether v can be invoked by callValue.
func isCallable(v interface{}) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}

// callValue invokes fn with args. Missing arguments are passed as zero values and
// surplus arguments are dropped. A trailing error result is returned as the error.
func callValue(fn interface{}, args []interface{}) (interface{}, error) {
	switch f := fn.(type) {
	case Function:
		if f == nil {
			return nil, ErrNotCallable
		}
		return f(args...)
	case func(args ...interface{}) (interface{}, error):
		if f == nil {
			return nil, ErrNotCallable
		}
		return f(args...)
	}

	if !isCallable(fn) {
		return nil, ErrNotCallable
	}

	rv := reflect.ValueOf(fn)
	ft := rv.Type()

	in, err := callArguments(ft, args)
	if err != nil {
		return nil, err
	}

	out := rv.Call(in)
	if len(out) == 0 {
		return nil, nil
	}

	last := out[len(out)-1]
	if ft.Out(len(out)-1) == errorType {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

func callArguments(ft reflect.Type, args []interface{}) ([]reflect.Value, error) {
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
	}

	n := len(args)
	if !ft.IsVariadic() && n > fixed {
		n = fixed
	}
	if n < fixed {
		n = fixed
	}

	in := make([]reflect.Value, n)
	for i := range in {
		var t reflect.Type
		if i < fixed {
			t = ft.In(i)
		} else {
			t = ft.In(fixed).Elem()
		}

		var arg interface{}
		if i < len(args) {
			arg = args[i]
		}

		v, err := convertArgument(arg, t)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = v
	}
	return in, nil
}

func convertArgument(arg interface{}, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(arg)
	switch {
	case v.Type().AssignableTo(t):
		return v, nil
	case v.Type().ConvertibleTo(t) && isNumericKind(v.Kind()) == isNumericKind(t.Kind()):
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
}

func isNumericKind(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Float64)
}
