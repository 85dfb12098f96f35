package recache

import (
	"reflect"

	"github.com/SimpleArt/recursive-cache/codec"
)

// function is the engine-side record for one registered body: its cache,
// its codec, and a type-erased invoke closure. The generic wrapper
// retains the static types; everything past the wrapper works on any.
type function struct {
	id      int
	name    string
	codec   codec.Codec
	cache   map[any]codec.Encoded
	invoke  func(args any) (any, error)
	wrapper any
}

// RegisterOption configures one registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	codec codec.Codec
}

// WithCodec overrides the codec used for this function's cache entries.
// Defaults to codec.Default.
func WithCodec(c codec.Codec) RegisterOption {
	return func(cfg *registerConfig) {
		if c != nil {
			cfg.codec = c
		}
	}
}

// Register wraps a one-argument function body so that calls to the
// returned wrapper are memoized and scheduled by the engine. For the
// engine to intercept the recursion the body must recurse through the
// wrapper, not through itself:
//
//	var fib func(n int) (int, error)
//	fib = recache.Register(e, func(n int) (int, error) {
//		if n < 2 {
//			return n, nil
//		}
//		a, err := fib(n - 1)
//		if err != nil {
//			return 0, err
//		}
//		b, err := fib(n - 2)
//		if err != nil {
//			return 0, err
//		}
//		return a + b, nil
//	})
//
// Registration is idempotent: registering the same body twice returns
// the same wrapper and the same cache.
func Register[A comparable, R any](e *Engine, body func(A) (R, error), opts ...RegisterOption) func(A) (R, error) {
	ptr := reflect.ValueOf(body).Pointer()
	if fn, ok := e.byBody[ptr]; ok {
		return fn.wrapper.(func(A) (R, error))
	}
	fn := e.newFunction(ptr, opts)
	fn.invoke = func(args any) (any, error) {
		out, err := body(args.(A))
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	wrapper := func(a A) (R, error) {
		v, err := e.call(fn, a)
		if err != nil || v == nil {
			var zero R
			return zero, err
		}
		return v.(R), nil
	}
	fn.wrapper = wrapper
	return wrapper
}

// Register2 is Register for two-argument bodies. The argument pair forms
// the cache key.
func Register2[A, B comparable, R any](e *Engine, body func(A, B) (R, error), opts ...RegisterOption) func(A, B) (R, error) {
	ptr := reflect.ValueOf(body).Pointer()
	if fn, ok := e.byBody[ptr]; ok {
		return fn.wrapper.(func(A, B) (R, error))
	}
	fn := e.newFunction(ptr, opts)
	fn.invoke = func(args any) (any, error) {
		t := args.(tuple2[A, B])
		out, err := body(t.A, t.B)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	wrapper := func(a A, b B) (R, error) {
		v, err := e.call(fn, tuple2[A, B]{A: a, B: b})
		if err != nil || v == nil {
			var zero R
			return zero, err
		}
		return v.(R), nil
	}
	fn.wrapper = wrapper
	return wrapper
}

// Register3 is Register for three-argument bodies.
func Register3[A, B, C comparable, R any](e *Engine, body func(A, B, C) (R, error), opts ...RegisterOption) func(A, B, C) (R, error) {
	ptr := reflect.ValueOf(body).Pointer()
	if fn, ok := e.byBody[ptr]; ok {
		return fn.wrapper.(func(A, B, C) (R, error))
	}
	fn := e.newFunction(ptr, opts)
	fn.invoke = func(args any) (any, error) {
		t := args.(tuple3[A, B, C])
		out, err := body(t.A, t.B, t.C)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	wrapper := func(a A, b B, c C) (R, error) {
		v, err := e.call(fn, tuple3[A, B, C]{A: a, B: b, C: c})
		if err != nil || v == nil {
			var zero R
			return zero, err
		}
		return v.(R), nil
	}
	fn.wrapper = wrapper
	return wrapper
}

// tuple2 and tuple3 box multi-argument calls into a single comparable
// cache key. Field order matters for the canonical key digest.
type tuple2[A, B comparable] struct {
	A A
	B B
}

type tuple3[A, B, C comparable] struct {
	A A
	B B
	C C
}

func (e *Engine) newFunction(ptr uintptr, opts []RegisterOption) *function {
	cfg := registerConfig{codec: codec.Default}
	for _, o := range opts {
		o(&cfg)
	}
	fn := &function{
		id:    len(e.fns),
		name:  shortFuncName(funcNameForPC(ptr)),
		codec: cfg.codec,
		cache: make(map[any]codec.Encoded),
	}
	e.fns = append(e.fns, fn)
	e.byBody[ptr] = fn
	e.logger.Debug("registered function",
		"id", fn.id,
		"func", fn.name,
	)
	return fn
}
