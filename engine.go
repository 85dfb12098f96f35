package recache

import (
	"log/slog"
	"runtime"
	"strings"

	"github.com/SimpleArt/recursive-cache/codec"
	"github.com/SimpleArt/recursive-cache/internal/keydigest"
	"github.com/SimpleArt/recursive-cache/trace"
)

// DefaultMaxDepth is the call depth budget used when no WithMaxDepth
// option is given. Recursions deeper than this are resolved piecewise by
// the scheduler rather than by nesting further.
const DefaultMaxDepth = 1000

// Engine schedules registered recursive functions so that recursions of
// arbitrary logical depth resolve within a bounded physical call depth.
//
// The engine owns a per-function memo cache, a shared insertion-ordered
// Pending Set of unresolved calls, and an explicit depth counter. When a
// call would cross the depth budget it fails with a recoverable
// depth-exhaustion signal; the outermost call's drain loop then attacks
// the deepest pending call directly, repeating until everything resolves
// or a fatal condition (cycle, stall) aborts the computation.
//
// An Engine is a plain value with no global state. It is not safe for
// concurrent use; all calls into one engine must come from a single
// goroutine.
type Engine struct {
	fns    []*function
	byBody map[uintptr]*function

	pending *pendingSet
	inDrain bool

	depth    int
	maxDepth int

	compress bool
	rec      *trace.Recorder

	logger  *slog.Logger
	flowGen FlowTokenGenerator
	flow    string
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMaxDepth sets the call depth budget. Calls nested more deeply than
// max fail with a depth-exhaustion signal and are resolved by the drain
// loop instead. Values below 1 are ignored.
func WithMaxDepth(max int) Option {
	return func(e *Engine) {
		if max >= 1 {
			e.maxDepth = max
		}
	}
}

// WithTraceCompression enables or disables diagnostic trace compression.
// Enabled by default. When disabled the engine skips call-site capture
// entirely and domain errors pass through unwrapped.
func WithTraceCompression(enabled bool) Option {
	return func(e *Engine) {
		e.compress = enabled
	}
}

// WithLogger sets the structured logger the engine emits scheduling
// events to. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFlowTokens sets the generator used to mint one flow token per
// outermost call. Defaults to UUIDv7Generator. Tests use a
// FixedGenerator for deterministic output.
func WithFlowTokens(gen FlowTokenGenerator) Option {
	return func(e *Engine) {
		if gen != nil {
			e.flowGen = gen
		}
	}
}

// New creates an Engine with the given options applied over defaults:
// depth budget 1000, trace compression on, slog.Default() logging,
// UUIDv7 flow tokens.
func New(opts ...Option) *Engine {
	e := &Engine{
		byBody:   make(map[uintptr]*function),
		pending:  newPendingSet(),
		maxDepth: DefaultMaxDepth,
		compress: true,
		rec:      trace.NewRecorder(),
		logger:   slog.Default(),
		flowGen:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxDepth returns the configured call depth budget.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// SetTraceCompression toggles diagnostic trace compression at runtime.
func (e *Engine) SetTraceCompression(enabled bool) {
	e.compress = enabled
}

// TraceCompression reports whether diagnostic trace compression is on.
func (e *Engine) TraceCompression() bool {
	return e.compress
}

// PendingLen returns the number of unresolved calls currently tracked.
// Zero after any completed outermost call or any fatal abort.
func (e *Engine) PendingLen() int {
	return e.pending.Len()
}

// call is the single entry point behind every registered wrapper. It
// implements the full per-call protocol: cycle detection, pending
// bookkeeping, outermost drain, execution, caching and decode.
//
// The wrapper invokes call directly, so runtime.Caller(2) lands on the
// wrapper's caller, which is the site the diagnostic frame should name.
func (e *Engine) call(fn *function, args any) (result any, err error) {
	var frame trace.Frame
	if e.compress {
		if pc, file, line, ok := runtime.Caller(2); ok {
			frame = trace.Frame{
				File:   file,
				Line:   line,
				Func:   shortFuncName(runtime.FuncForPC(pc).Name()),
				Callee: fn.name,
			}
		}
	}

	outer := !e.inDrain
	e.inDrain = true
	defer func() {
		e.inDrain = !outer
	}()

	if outer {
		e.flow = e.flowGen.Generate()
		e.rec.Reset()
	}

	key := callKey{fn: fn.id, args: args}
	digest := keydigest.CallDigest(fn.id, args)
	frame.Key = digest

	// A frame is recorded whenever this call exits with a domain error,
	// oldest call first. Control errors leave no frames: the trace
	// describes the user's recursion, not the scheduler's bookkeeping.
	// The outermost call wraps its frame and everything recorded below
	// it into a compressed trace.
	defer func() {
		if err != nil && e.compress && !isControl(err) {
			e.rec.Record(frame)
		}
		if outer && err != nil {
			err = e.wrapDiagnostics(err)
		}
	}()

	if e.pending.Contains(key) {
		e.logger.Error("cyclic recursion detected",
			"flow", e.flow,
			"func", fn.name,
			"key", digest,
		)
		e.pending.Clear()
		return nil, newCyclicError(e.flow, fn.name, digest)
	}

	if _, cached := fn.cache[args]; !cached {
		e.pending.Push(key)
	}

	if outer {
		e.logger.Debug("outermost call",
			"flow", e.flow,
			"func", fn.name,
			"key", digest,
		)
		if derr := e.drain(); derr != nil {
			return nil, derr
		}
	}

	if enc, ok := fn.cache[args]; ok {
		result, err = e.decodeEntry(fn, args, enc)
	} else {
		var out any
		out, err = e.execute(fn, args)
		if err != nil && isControl(err) {
			// The key stays pending so the enclosing drain resolves
			// this call's dependencies before retrying it.
			return nil, err
		}
		if err != nil {
			fn.cache[args] = fn.codec.Encode(err)
		} else {
			fn.cache[args] = fn.codec.Encode(out)
		}
		result, err = e.decodeEntry(fn, args, fn.cache[args])
	}
	e.pending.Remove(key)
	return result, err
}

// drain resolves every pending call, always attacking the most recently
// inserted (deepest) one. Attempts that exhaust the depth budget after
// uncovering new dependencies simply loop again; exhaustion with no new
// deepest key is a stall and aborts everything.
func (e *Engine) drain() error {
	for e.pending.Len() > 0 {
		key, _ := e.pending.Last()
		fn := e.fns[key.fn]
		digest := keydigest.CallDigest(key.fn, key.args)
		e.logger.Debug("draining pending call",
			"flow", e.flow,
			"func", fn.name,
			"key", digest,
			"pending", e.pending.Len(),
		)

		out, err := e.execute(fn, key.args)
		switch {
		case err == nil:
			fn.cache[key.args] = fn.codec.Encode(out)
			e.pending.Remove(key)
		case IsCyclicRecursion(err) || IsStalledRecursion(err):
			e.pending.Clear()
			return err
		case IsDepthExhausted(err):
			if last, ok := e.pending.Last(); ok && last == key {
				e.logger.Error("recursion stalled",
					"flow", e.flow,
					"func", fn.name,
					"key", digest,
				)
				e.pending.Clear()
				return newStalledError(e.flow, fn.name, digest, err)
			}
			// New deeper calls were uncovered; resolve them first.
		default:
			fn.cache[key.args] = fn.codec.Encode(err)
			e.pending.Remove(key)
		}
	}
	return nil
}

// execute runs the function body under the depth budget. The counter
// only moves while a body is on the stack, so sequential cache hits
// never accumulate depth.
func (e *Engine) execute(fn *function, args any) (any, error) {
	if e.depth >= e.maxDepth {
		return nil, newDepthError(e.flow, e.depth, e.maxDepth)
	}
	e.depth++
	defer func() {
		e.depth--
	}()
	return fn.invoke(args)
}

// decodeEntry materializes a cache entry. One-shot entries (cursors) are
// evicted before decoding so a second identical call recomputes; stored
// errors and snapshots replay indefinitely.
func (e *Engine) decodeEntry(fn *function, args any, enc codec.Encoded) (any, error) {
	if enc.OneShot {
		delete(fn.cache, args)
	}
	return fn.codec.Decode(enc)
}

// wrapDiagnostics attaches a compressed trace to a domain error leaving
// the outermost call. Control errors pass through untouched: their
// meaning is the scheduling condition itself, and the scheduler's own
// frames never enter the recorder in the first place.
func (e *Engine) wrapDiagnostics(err error) error {
	if !e.compress || isControl(err) {
		return err
	}
	t := trace.Compress(e.rec.Frames(), e.maxDepth)
	e.logger.Debug("compressed diagnostic trace",
		"flow", e.flow,
		"frames", t.FrameCount(),
		"elided", t.Elided,
	)
	return trace.Wrap(err, t, e.flow)
}

func funcNameForPC(pc uintptr) string {
	if f := runtime.FuncForPC(pc); f != nil {
		return f.Name()
	}
	return "unknown"
}

func shortFuncName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
