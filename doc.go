// Package recache memoizes recursive functions and schedules their calls
// so that recursions of arbitrary logical depth complete within a bounded
// physical call depth.
//
// A registered function recurses through its wrapper. Each call is
// identified by the function and its argument tuple; unresolved calls sit
// in a shared insertion-ordered Pending Set. When nesting would cross the
// engine's depth budget, the call fails with a recoverable
// depth-exhaustion signal that unwinds to the outermost call, whose drain
// loop then executes the deepest pending call directly. Resolved results
// land in the memo cache, so each retry starts from shallower ground.
// The loop repeats until the outermost call's own result is cached.
//
// Two conditions are fatal and clear the whole Pending Set: cyclic
// recursion (a call requested while an identical call is still pending)
// and stalled recursion (depth exhaustion with no new pending work,
// typically recursion that bypasses the wrapper).
//
// Results are cached through a codec that decides, per value kind, how
// an entry replays: snapshots rebuilt fresh per read for mutable
// containers, stored errors replayed as-is, and one-shot eviction for
// single-use cursors.
//
// When a function body fails, the error that leaves the outermost call
// carries a diagnostic trace of the recursion with repeated cycles
// collapsed into counted segments.
//
// An Engine and everything registered on it must be used from a single
// goroutine.
package recache
