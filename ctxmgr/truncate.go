package ctxmgr

// Range is an inclusive [Start, End] deletion window over the raw history.
// Start is always 2 (indices 0 and 1 are always retained, I4); an End less
// than Start means no deletion has occurred yet.
type Range struct {
	Start int
	End   int
}

// Empty reports whether r represents no deletion at all.
func (r Range) Empty() bool {
	return r.End < r.Start
}

// startOfRest returns the first index not covered by the deletion window:
// 2 if none, or current.End+1 otherwise.
func startOfRest(current *Range) int {
	if current == nil || current.Empty() {
		return 2
	}
	return current.End + 1
}

// NextTruncationRange computes the next deletion window given the raw
// message count, the current deletion range (nil/empty if none), and the
// chosen aggressiveness. It is a pure function of its arguments (P8): the
// returned End index always lands on an assistant message, so the message
// immediately following the deleted range is a user message and alternation
// (I1) is preserved once combined with the always-retained first pair (I4).
func NextTruncationRange(history []Message, current *Range, keep Keep) Range {
	n := len(history)
	start := startOfRest(current)

	l := n - start
	if l < 0 {
		l = 0
	}

	var removeCount int
	switch keep {
	case KeepNone:
		removeCount = maxInt(l, 0)
	case KeepLastTwo:
		removeCount = maxInt(l-2, 0)
	case KeepHalf:
		removeCount = (l / 4) * 2
	case KeepQuarter:
		removeCount = ((l * 3 / 4) / 2) * 2
	default:
		removeCount = (l / 4) * 2
	}

	eNew := start + removeCount - 1
	if eNew < 1 {
		// Nothing to remove; signal an empty range.
		return Range{Start: 2, End: 1}
	}
	if eNew >= n {
		eNew = n - 1
	}
	if eNew < len(history) && history[eNew].Role != RoleAssistant {
		eNew--
	}
	if eNew < 1 {
		return Range{Start: 2, End: 1}
	}

	return Range{Start: 2, End: eNew}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
