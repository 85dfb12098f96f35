// Package trace models the execution trace of a failing outermost call and
// the diagnostic compressor that collapses its repeating recursive
// segments.
//
// Frames are recorded by the engine itself while a domain error unwinds
// through registered-call wrappers, so a trace contains only caller and
// registered-function frames - never engine internals. Frame identity for
// cycle detection is the explicit (source location, callee) pair attached
// to each frame, not anything derived from host stack internals.
//
// Frames are ordered chronologically: the origin of the failure first, the
// frame that finally surfaced it to the outermost caller last. A trace is
// naturally repetitive, since the same few call sites reappear across many
// drain iterations; Compress extracts one qualifying repetition into a
// summary segment and bounds the total length.
package trace

// Frame is one execution-trace record: the source location of a registered
// call site plus the identity of the call made there.
type Frame struct {
	// File and Line locate the call site inside the calling body.
	File string
	Line int
	// Func names the enclosing function the call was made from, as
	// reported by the runtime. Diagnostic only; not part of frame
	// identity and excluded from canonical snapshots.
	Func string
	// Callee names the registered function that failed at this site.
	Callee string
	// Key is the digest of the failing call's identity.
	Key string
}

// SameSite reports whether two frames represent the same recursive step:
// the same call site invoking the same registered function.
func (f Frame) SameSite(other Frame) bool {
	return f.File == other.File && f.Line == other.Line && f.Callee == other.Callee
}

// SegmentKind discriminates trace segments after compression.
type SegmentKind string

const (
	// SegmentFrames is a plain run of frames.
	SegmentFrames SegmentKind = "frames"
	// SegmentRepeat is a collapsed cycle: Frames holds one cycle body,
	// Repeats how many additional times it occurred contiguously.
	SegmentRepeat SegmentKind = "repeat"
	// SegmentInfo is an informational marker with no frames.
	SegmentInfo SegmentKind = "info"
)

// Segment is one piece of a compressed trace, read in order from the
// origin of the failure to its final surfacing.
type Segment struct {
	Kind    SegmentKind
	Frames  []Frame
	Repeats int
	Message string
}

// Trace is the (possibly compressed) execution trace of a failing
// outermost call.
type Trace struct {
	// Segments in read order, origin first.
	Segments []Segment
	// Elided counts frames removed by the length trim, zero if none.
	Elided int
}

// FrameCount returns the number of frames still present in the trace.
// Collapsed repetitions count their cycle body once.
func (t *Trace) FrameCount() int {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Frames)
	}
	return n
}

// FirstFrame returns the first remaining frame, closest to the origin of
// the failure. ok is false for a trace with no frames.
func (t *Trace) FirstFrame() (f Frame, ok bool) {
	for _, s := range t.Segments {
		if len(s.Frames) > 0 {
			return s.Frames[0], true
		}
	}
	return Frame{}, false
}

// LastFrame returns the final remaining frame, the one that surfaced the
// failure to the outermost caller.
func (t *Trace) LastFrame() (f Frame, ok bool) {
	for i := len(t.Segments) - 1; i >= 0; i-- {
		if s := t.Segments[i]; len(s.Frames) > 0 {
			return s.Frames[len(s.Frames)-1], true
		}
	}
	return Frame{}, false
}

// Recorder accumulates frames while errors unwind during one outermost
// call. The engine resets it when a new outermost call begins.
type Recorder struct {
	frames []Frame
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Reset discards all recorded frames.
func (r *Recorder) Reset() {
	r.frames = r.frames[:0]
}

// Record appends one frame. Frames arrive in chronological order: the
// first recorded frame is the origin of the failure.
func (r *Recorder) Record(f Frame) {
	r.frames = append(r.frames, f)
}

// Len returns the number of recorded frames.
func (r *Recorder) Len() int {
	return len(r.frames)
}

// Frames returns a copy of the recorded frames in chronological order.
func (r *Recorder) Frames() []Frame {
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Error wraps a domain error escaping an outermost call with its
// compressed execution trace. The original error remains reachable through
// Unwrap, so errors.Is and errors.As see through the wrapper.
type Error struct {
	// Flow is the flow token of the outermost call that failed.
	Flow string
	// Trace is the compressed execution trace.
	Trace *Trace
	err   error
}

// Wrap attaches a compressed trace to an escaping error.
func Wrap(err error, t *Trace, flow string) *Error {
	return &Error{Flow: flow, Trace: t, err: err}
}

func (e *Error) Error() string {
	return e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}
