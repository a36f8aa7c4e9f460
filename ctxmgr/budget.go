package ctxmgr

// Keep is the truncation aggressiveness chosen by the Budget Oracle once it
// decides compaction is needed.
type Keep string

const (
	KeepNone     Keep = "none"
	KeepLastTwo  Keep = "lastTwo"
	KeepHalf     Keep = "half"
	KeepQuarter  Keep = "quarter"
)

// Usage is the reported token accounting for a single model request, parsed
// from an api_req_started log entry.
type Usage struct {
	TokensIn     int
	TokensOut    int
	CacheWrites  int
	CacheReads   int
	Timestamp    int64
}

// Total is the totalTokens figure the Budget Oracle compares against
// maxAllowedSize: tokensIn + tokensOut + cacheWrites + cacheReads.
func (u Usage) Total() int {
	return u.TokensIn + u.TokensOut + u.CacheWrites + u.CacheReads
}

// MaxAllowedSize derives the usable token headroom for a model's declared
// context window W, reserving space for the system prompt and the model's
// reply. Three of the schedule's breakpoints (64k, 128k, 200k) are
// exact-window matches (grounded on the known context windows of the models
// this schedule was built for) and any window of 1M or more reserves 100k;
// any other window reserves the larger of 20% of the window and 40k tokens.
func MaxAllowedSize(window int) int {
	switch window {
	case 64_000:
		return window - 27_000
	case 128_000:
		return window - 30_000
	case 200_000:
		return window - 40_000
	}
	if window >= 1_000_000 {
		return window - 100_000
	}
	headroom := int(float64(window) * 0.2)
	if headroom < 40_000 {
		headroom = 40_000
	}
	return window - headroom
}

// ShouldCompact reports whether the reported usage has reached or exceeded
// the usable headroom for the window.
func ShouldCompact(totalTokens, maxAllowedSize int) bool {
	return totalTokens >= maxAllowedSize
}

// ComputeKeep chooses the truncation aggressiveness once compaction is
// needed: quarter (drop three quarters of the drop-eligible suffix) when
// even half the reported usage would still overflow the window, half
// otherwise. The divisor is the halfPoint argument (2 when halfPoint <= 0);
// it is the policy constant spec §9 Open Question (b) flags as configurable,
// and Policy.KeepHalfPoint carries it for callers that want a different ratio.
func ComputeKeep(totalTokens, maxAllowedSize int, halfPoint float64) Keep {
	if halfPoint <= 0 {
		halfPoint = 2
	}
	if float64(totalTokens)/halfPoint > float64(maxAllowedSize) {
		return KeepQuarter
	}
	return KeepHalf
}
