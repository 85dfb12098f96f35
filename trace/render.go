package trace

import (
	"fmt"
	"strings"
)

// String renders the trace for humans, origin of the failure first.
// Includes file/line, so output is environment dependent; use
// CanonicalSnapshot for stable comparisons.
func (t *Trace) String() string {
	var b strings.Builder
	for i, s := range t.Segments {
		switch s.Kind {
		case SegmentFrames:
			if s.Message != "" {
				fmt.Fprintf(&b, "%s\n", s.Message)
			}
			writeFrames(&b, s.Frames, "  ")
		case SegmentRepeat:
			writeFrames(&b, s.Frames, "  ")
			fmt.Fprintf(&b, "%s\n", s.Message)
		case SegmentInfo:
			fmt.Fprintf(&b, "%s\n", s.Message)
		}
		if t.Elided > 0 && i == 0 {
			fmt.Fprintf(&b, "  (%d frames elided from the middle)\n", t.Elided)
		}
	}
	return b.String()
}

func writeFrames(b *strings.Builder, frames []Frame, indent string) {
	for _, f := range frames {
		fmt.Fprintf(b, "%s%s:%d: %s -> %s [%s]\n", indent, f.File, f.Line, f.Func, f.Callee, f.Key)
	}
}

// CanonicalSnapshot renders the trace in a deterministic form suitable for
// golden-file comparison: segment structure, callee names, and repeat
// counts only. File paths, line numbers, enclosing function names, and key
// digests are runtime dependent and deliberately excluded.
func (t *Trace) CanonicalSnapshot() []byte {
	var b strings.Builder
	b.WriteString("trace:\n")
	for _, s := range t.Segments {
		switch s.Kind {
		case SegmentFrames:
			if s.Message != "" {
				b.WriteString("  note: remainder\n")
			}
			for _, f := range s.Frames {
				fmt.Fprintf(&b, "  frame %s\n", f.Callee)
			}
		case SegmentRepeat:
			fmt.Fprintf(&b, "  repeat x%d:\n", s.Repeats)
			for _, f := range s.Frames {
				fmt.Fprintf(&b, "    frame %s\n", f.Callee)
			}
		case SegmentInfo:
			b.WriteString("  note: compressed\n")
		}
	}
	fmt.Fprintf(&b, "elided: %d\n", t.Elided)
	return []byte(b.String())
}
