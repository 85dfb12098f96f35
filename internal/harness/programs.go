package harness

import (
	"errors"
	"fmt"

	recache "github.com/SimpleArt/recursive-cache"
)

// ErrHitBottom is the deterministic failure raised by the failing
// programs, so scenarios can match on a stable message.
var ErrHitBottom = errors.New("hit bottom")

// Entry invokes a program with scenario arguments. Programs validate
// their own arity.
type Entry func(args []int) (int, error)

// CallCounter counts body invocations across all of a program's
// registered functions. Scenarios assert on it to prove memoization.
type CallCounter struct {
	n int
}

func (c *CallCounter) inc() {
	c.n++
}

// Count returns the number of body invocations recorded so far.
func (c *CallCounter) Count() int {
	return c.n
}

// Program is one entry in the built-in catalog. Build registers the
// program's functions on the engine and returns the scenario entry point.
type Program struct {
	// Describe is a one-line summary for catalog listings.
	Describe string

	// Arity is the number of arguments each call takes.
	Arity int

	// Build registers the program on the engine.
	Build func(e *recache.Engine, counter *CallCounter) Entry
}

// programs is the catalog of recursion programs scenarios can run.
// Scenario files cannot define function bodies, so the shapes worth
// testing live here and scenarios select them by name.
var programs = map[string]Program{
	"countdown": {
		Describe: "single-site linear recursion to zero",
		Arity:    1,
		Build: func(e *recache.Engine, counter *CallCounter) Entry {
			var down func(int) (int, error)
			down = recache.Register(e, func(n int) (int, error) {
				counter.inc()
				if n <= 0 {
					return 0, nil
				}
				return down(n - 1)
			})
			return unary(down)
		},
	},
	"fibonacci": {
		Describe: "branching recursion with heavy key reuse",
		Arity:    1,
		Build: func(e *recache.Engine, counter *CallCounter) Entry {
			var fib func(int) (int, error)
			fib = recache.Register(e, func(n int) (int, error) {
				counter.inc()
				if n < 2 {
					return n, nil
				}
				a, err := fib(n - 1)
				if err != nil {
					return 0, err
				}
				b, err := fib(n - 2)
				if err != nil {
					return 0, err
				}
				return a + b, nil
			})
			return unary(fib)
		},
	},
	"parity": {
		Describe: "mutual recursion across two functions, 0 even 1 odd",
		Arity:    1,
		Build: func(e *recache.Engine, counter *CallCounter) Entry {
			var isEven, isOdd func(int) (bool, error)
			isEven = recache.Register(e, func(n int) (bool, error) {
				counter.inc()
				if n == 0 {
					return true, nil
				}
				return isOdd(n - 1)
			})
			isOdd = recache.Register(e, func(n int) (bool, error) {
				counter.inc()
				if n == 0 {
					return false, nil
				}
				return isEven(n - 1)
			})
			return func(args []int) (int, error) {
				if len(args) != 1 {
					return 0, fmt.Errorf("parity takes 1 argument, got %d", len(args))
				}
				even, err := isEven(args[0])
				if err != nil {
					return 0, err
				}
				if even {
					return 0, nil
				}
				return 1, nil
			}
		},
	},
	"ackermann": {
		Describe: "two-argument recursion with nested growth",
		Arity:    2,
		Build: func(e *recache.Engine, counter *CallCounter) Entry {
			var ack func(int, int) (int, error)
			ack = recache.Register2(e, func(m, n int) (int, error) {
				counter.inc()
				switch {
				case m == 0:
					return n + 1, nil
				case n == 0:
					return ack(m-1, 1)
				default:
					inner, err := ack(m, n-1)
					if err != nil {
						return 0, err
					}
					return ack(m-1, inner)
				}
			})
			return func(args []int) (int, error) {
				if len(args) != 2 {
					return 0, fmt.Errorf("ackermann takes 2 arguments, got %d", len(args))
				}
				return ack(args[0], args[1])
			}
		},
	},
	"failing": {
		Describe: "linear recursion that fails at zero",
		Arity:    1,
		Build: func(e *recache.Engine, counter *CallCounter) Entry {
			var down func(int) (int, error)
			down = recache.Register(e, func(n int) (int, error) {
				counter.inc()
				if n <= 0 {
					return 0, ErrHitBottom
				}
				return down(n - 1)
			})
			return unary(down)
		},
	},
	"cyclic": {
		Describe: "self-call with unchanged arguments",
		Arity:    1,
		Build: func(e *recache.Engine, counter *CallCounter) Entry {
			var loop func(int) (int, error)
			loop = recache.Register(e, func(n int) (int, error) {
				counter.inc()
				return loop(n)
			})
			return unary(loop)
		},
	},
	"stalled": {
		Describe: "depth exhaustion that never uncovers new work",
		Arity:    1,
		Build: func(e *recache.Engine, counter *CallCounter) Entry {
			stuck := recache.Register(e, func(n int) (int, error) {
				counter.inc()
				return 0, &recache.RuntimeError{
					Code:    recache.ErrCodeDepthExhausted,
					Message: "simulated exhaustion",
				}
			})
			return unary(stuck)
		},
	},
}

func unary(f func(int) (int, error)) Entry {
	return func(args []int) (int, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("program takes 1 argument, got %d", len(args))
		}
		return f(args[0])
	}
}
