package recache

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimpleArt/recursive-cache/trace"
)

func quietEngine(opts ...Option) *Engine {
	base := []Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}
	return New(append(base, opts...)...)
}

// =============================================================================
// Engine Construction Tests
// =============================================================================

func TestEngine_Defaults(t *testing.T) {
	e := New()
	require.NotNil(t, e)
	assert.Equal(t, DefaultMaxDepth, e.MaxDepth())
	assert.True(t, e.TraceCompression(), "trace compression should default on")
	assert.Equal(t, 0, e.PendingLen())
}

func TestEngine_Options(t *testing.T) {
	e := New(WithMaxDepth(50), WithTraceCompression(false))
	assert.Equal(t, 50, e.MaxDepth())
	assert.False(t, e.TraceCompression())

	// Out-of-range depth is ignored
	e = New(WithMaxDepth(0))
	assert.Equal(t, DefaultMaxDepth, e.MaxDepth())

	// Runtime toggle
	e.SetTraceCompression(false)
	assert.False(t, e.TraceCompression())
	e.SetTraceCompression(true)
	assert.True(t, e.TraceCompression())
}

// =============================================================================
// Deep Recursion Tests
// =============================================================================

func TestEngine_DeepFibonacci(t *testing.T) {
	e := quietEngine()

	// Logical depth 3000 against a depth budget of 1000: naive recursion
	// through the wrapper, resolved piecewise by the drain loop.
	var fib func(int) (*big.Int, error)
	fib = Register(e, func(n int) (*big.Int, error) {
		if n < 2 {
			return big.NewInt(int64(n)), nil
		}
		a, err := fib(n - 1)
		if err != nil {
			return nil, err
		}
		b, err := fib(n - 2)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Add(a, b), nil
	})

	got, err := fib(3000)
	require.NoError(t, err)

	// Iterative reference
	a, b := big.NewInt(0), big.NewInt(1)
	for i := 0; i < 3000; i++ {
		a.Add(a, b)
		a, b = b, a
	}
	assert.Zero(t, got.Cmp(a), "fib(3000) should match the iterative value")
	assert.Equal(t, 0, e.PendingLen(), "pending set should be empty after a completed call")
}

func TestEngine_DeepMutualRecursion(t *testing.T) {
	e := quietEngine(WithMaxDepth(100))

	var isEven, isOdd func(int) (bool, error)
	isEven = Register(e, func(n int) (bool, error) {
		if n == 0 {
			return true, nil
		}
		return isOdd(n - 1)
	})
	isOdd = Register(e, func(n int) (bool, error) {
		if n == 0 {
			return false, nil
		}
		return isEven(n - 1)
	})

	got, err := isEven(2001)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = isOdd(2001)
	require.NoError(t, err)
	assert.True(t, got)
	assert.Equal(t, 0, e.PendingLen())
}

func TestEngine_WrappedDepthSignalStillRecoverable(t *testing.T) {
	e := quietEngine(WithMaxDepth(50))

	// A body that wraps every propagated error keeps the depth signal
	// recognizable as long as it wraps rather than replaces.
	var count func(int) (int, error)
	count = Register(e, func(n int) (int, error) {
		if n == 0 {
			return 0, nil
		}
		v, err := count(n - 1)
		if err != nil {
			return 0, fmt.Errorf("at %d: %w", n, err)
		}
		return v + 1, nil
	})

	got, err := count(500)
	require.NoError(t, err)
	assert.Equal(t, 500, got)
}

// =============================================================================
// Memoization Tests
// =============================================================================

func TestEngine_BodyRunsOncePerKey(t *testing.T) {
	e := quietEngine()
	calls := 0
	double := Register(e, func(n int) (int, error) {
		calls++
		return n * 2, nil
	})

	got, err := double(21)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	require.Equal(t, 1, calls)

	got, err = double(21)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls, "second identical call should hit the cache")

	_, err = double(7)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "a different key should invoke the body")
}

func TestEngine_ErrorReplayWithoutRecompute(t *testing.T) {
	e := quietEngine()
	boom := errors.New("negative input")
	calls := 0
	f := Register(e, func(n int) (int, error) {
		calls++
		if n < 0 {
			return 0, boom
		}
		return n, nil
	})

	_, err := f(-5)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)

	_, err = f(-5)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom, "the stored failure should replay")
	assert.Equal(t, 1, calls, "replay should not re-invoke the body")
	assert.Equal(t, 0, e.PendingLen())
}

// =============================================================================
// Fatal Condition Tests
// =============================================================================

func TestEngine_CyclicRecursion(t *testing.T) {
	e := quietEngine()
	var f func(int) (int, error)
	f = Register(e, func(n int) (int, error) {
		return f(n)
	})

	_, err := f(7)
	require.Error(t, err)
	assert.True(t, IsCyclicRecursion(err), "self-call with identical arguments should abort: %v", err)
	assert.Equal(t, 0, e.PendingLen(), "fatal abort should clear the pending set")

	// The engine stays usable for fresh work.
	g := Register(e, func(n int) (int, error) { return n + 1, nil })
	got, err := g(1)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestEngine_StalledRecursion(t *testing.T) {
	e := quietEngine()
	sig := &RuntimeError{Code: ErrCodeDepthExhausted, Message: "simulated exhaustion"}
	f := Register(e, func(n int) (int, error) {
		return 0, sig
	})

	_, err := f(1)
	require.Error(t, err)
	assert.True(t, IsStalledRecursion(err), "exhaustion without new pending work should stall: %v", err)
	assert.ErrorIs(t, err, sig, "the stall should carry the triggering signal as its cause")
	assert.Equal(t, 0, e.PendingLen(), "fatal abort should clear the pending set")
}

func TestEngine_FatalErrorsBypassTraceWrapping(t *testing.T) {
	e := quietEngine()
	var f func(int) (int, error)
	f = Register(e, func(n int) (int, error) {
		return f(n)
	})

	_, err := f(1)
	require.Error(t, err)
	var te *trace.Error
	assert.False(t, errors.As(err, &te), "engine conditions should not carry diagnostic traces")
}

// =============================================================================
// Diagnostic Trace Tests
// =============================================================================

func TestEngine_TraceCollapsesMutualRecursion(t *testing.T) {
	e := quietEngine(
		WithMaxDepth(25),
		WithFlowTokens(NewFixedGenerator("flow-1")),
	)
	boom := errors.New("hit bottom")

	var foo, bar func(int) (int, error)
	foo = Register(e, func(n int) (int, error) {
		if n <= 0 {
			return 0, boom
		}
		return bar(n - 1)
	})
	bar = Register(e, func(n int) (int, error) {
		return foo(n - 1)
	})

	_, err := foo(100)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom, "the original failure must survive compression")

	var te *trace.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "flow-1", te.Flow)

	var repeats int
	for _, seg := range te.Trace.Segments {
		if seg.Kind == trace.SegmentRepeat {
			repeats = seg.Repeats
		}
	}
	assert.GreaterOrEqual(t, repeats, 3, "the alternating foo/bar region should collapse into a counted segment")
	assert.LessOrEqual(t, te.Trace.FrameCount(), 30,
		"a hundred-level recursion should render as a handful of frames")
}

func TestEngine_TraceTrimmedToDepthBudget(t *testing.T) {
	e := quietEngine(WithMaxDepth(30))
	boom := errors.New("hit bottom")

	// Single call site: no multi-frame cycle to collapse, so the length
	// trim alone bounds the trace.
	var down func(int) (int, error)
	down = Register(e, func(n int) (int, error) {
		if n == 0 {
			return 0, boom
		}
		return down(n - 1)
	})

	_, err := down(100)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var te *trace.Error
	require.True(t, errors.As(err, &te))
	assert.LessOrEqual(t, te.Trace.FrameCount(), e.MaxDepth()*9/10,
		"trace should be bounded by 90%% of the depth budget")
	assert.Greater(t, te.Trace.Elided, 0, "an overlong trace should report elided frames")

	// Both chain ends survive the trim.
	first, ok := te.Trace.FirstFrame()
	require.True(t, ok)
	last, ok := te.Trace.LastFrame()
	require.True(t, ok)
	assert.NotEqual(t, first.Key, last.Key, "origin and outermost frames should be distinct calls")
}

func TestEngine_TraceDisabled(t *testing.T) {
	e := quietEngine(WithTraceCompression(false))
	boom := errors.New("hit bottom")
	f := Register(e, func(n int) (int, error) {
		return 0, boom
	})

	_, err := f(1)
	require.Error(t, err)
	assert.Equal(t, boom, err, "with compression off the body's error passes through untouched")
}

func TestEngine_FreshFlowTokenPerOutermostCall(t *testing.T) {
	e := quietEngine(WithFlowTokens(NewFixedGenerator("flow-1", "flow-2")))
	boom := errors.New("boom")
	f := Register(e, func(n int) (int, error) {
		return 0, fmt.Errorf("n=%d: %w", n, boom)
	})

	_, err := f(1)
	var te *trace.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "flow-1", te.Flow)

	_, err = f(2)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "flow-2", te.Flow, "each outermost call should mint its own token")
}
