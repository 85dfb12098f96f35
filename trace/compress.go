package trace

import "fmt"

// minRunLength is the number of contiguous cycle repetitions a run needs
// before it is worth collapsing. Shorter runs read fine uncompressed.
const minRunLength = 4

// RemainderMessage separates a collapsed cycle from the trailing frames it
// led into.
const RemainderMessage = "[previous frames caused the following failure]"

// CompressionNotice is the trailing informational marker appended to every
// compressed trace. It is chained last so a reader who scrolls to the end
// of a failure learns why the trace looks shortened.
const CompressionNotice = "[trace compression enabled: repeated recursive segments are collapsed " +
	"and overlong traces are trimmed to 90% of the maximum supported depth; " +
	"disable with WithTraceCompression(false)]"

func repeatMessage(cycleLen, more int) string {
	return fmt.Sprintf("[previous %d frames repeated %d more times and caused the failure below]",
		cycleLen, more)
}

// Compress collapses the first qualifying repeating region of a trace and
// bounds its length to 90%% of maxDepth. Best-effort: without a detectable
// cycle the frames pass through unchanged except for the length trim.
//
// The input is read in chronological order, origin of the failure first.
func Compress(frames []Frame, maxDepth int) *Trace {
	head, extracted := extractCycle(frames)

	// If still too long, delete a symmetric middle slice keeping both ends.
	elided := 0
	maxTrace := maxDepth * 9 / 10
	if len(head) > maxTrace {
		half := maxTrace / 2
		elided = len(head) - 2*half
		trimmed := make([]Frame, 0, 2*half)
		trimmed = append(trimmed, head[:half]...)
		trimmed = append(trimmed, head[len(head)-half:]...)
		head = trimmed
	}

	t := &Trace{Elided: elided}
	if len(head) > 0 {
		t.Segments = append(t.Segments, Segment{Kind: SegmentFrames, Frames: head})
	}
	t.Segments = append(t.Segments, extracted...)
	t.Segments = append(t.Segments, Segment{Kind: SegmentInfo, Message: CompressionNotice})
	return t
}

// extractCycle scans the middle half of the trace for a frame matching an
// earlier frame, treats the span between them as a candidate cycle, and
// collapses the qualifying contiguous run closest to the failure end.
// Only one region is extracted. Returns the frames preceding the run plus
// the segments replacing the run; if nothing qualifies, the full input
// comes back as head with no extra segments.
func extractCycle(frames []Frame) (head []Frame, segs []Segment) {
	n := len(frames)
	for index := n / 2; index < n*3/4; index++ {
		pointer := frames[index]

		// Nearest earlier frame at the same site bounds the cycle length.
		cycleStart := -1
		for i := index - 1; i >= 0; i-- {
			if frames[i].SameSite(pointer) {
				cycleStart = i
				break
			}
		}
		if cycleStart < 0 {
			continue
		}
		cycle := frames[cycleStart:index]

		groups := contiguousRuns(occurrences(frames, cycle), len(cycle))
		for gi := len(groups) - 1; gi >= 0; gi-- {
			group := groups[gi]
			if len(cycle) <= 1 || len(group) < minRunLength {
				continue
			}

			runStart := group[0]
			body := append([]Frame(nil), frames[runStart:runStart+len(cycle)]...)
			segs = append(segs, Segment{
				Kind:    SegmentRepeat,
				Frames:  body,
				Repeats: len(group) - 1,
				Message: repeatMessage(len(cycle), len(group)-1),
			})

			// Frames after the run are the failure the recursion led into.
			if rest := group[len(group)-1] + len(cycle); rest < n {
				segs = append(segs, Segment{
					Kind:    SegmentFrames,
					Frames:  append([]Frame(nil), frames[rest:]...),
					Message: RemainderMessage,
				})
			}
			return append([]Frame(nil), frames[:runStart]...), segs
		}
	}
	return append([]Frame(nil), frames...), nil
}

// occurrences returns every position where the cycle matches, comparing by
// site. A truncated match at the very end of the trace still counts, so a
// run that ends mid-cycle is grouped with its full repetitions.
func occurrences(frames []Frame, cycle []Frame) []int {
	var occ []int
	for i := range frames {
		match := true
		for j := 0; j < len(cycle) && i+j < len(frames); j++ {
			if !frames[i+j].SameSite(cycle[j]) {
				match = false
				break
			}
		}
		if match {
			occ = append(occ, i)
		}
	}
	return occ
}

// contiguousRuns groups occurrence positions into maximal runs spaced
// exactly one cycle length apart.
func contiguousRuns(occ []int, cycleLen int) [][]int {
	var runs [][]int
	for _, pos := range occ {
		if len(runs) > 0 {
			last := runs[len(runs)-1]
			if pos == last[len(last)-1]+cycleLen {
				runs[len(runs)-1] = append(last, pos)
				continue
			}
		}
		runs = append(runs, []int{pos})
	}
	return runs
}
