package ctxmgr

// Policy holds the configurable constants the spec's Open Question (b)
// flags as policy rather than invariant: the Optimizer's saved-ratio
// threshold below which truncation kicks in regardless, and the divisor
// used by the Budget Oracle's quarter-vs-half decision. Library code always
// uses DefaultPolicy()'s values unless a caller overrides them (e.g. the CLI
// harness loads overrides via koanf); it never hardcodes the raw numbers
// past this one place.
type Policy struct {
	// SavedRatioThreshold is the minimum fraction of in-range characters the
	// Optimizer must save on its own before the Truncator is skipped.
	SavedRatioThreshold float64

	// KeepHalfPoint is the divisor applied to totalTokens when deciding
	// between KeepHalf and KeepQuarter: quarter is chosen when
	// totalTokens/KeepHalfPoint > maxAllowedSize.
	KeepHalfPoint float64
}

// DefaultPolicy returns the constants as specified: a 30% saved-ratio
// threshold and a half-point divisor of 2 (i.e. "totalTokens/2 > maxAllowedSize").
func DefaultPolicy() Policy {
	return Policy{
		SavedRatioThreshold: 0.3,
		KeepHalfPoint:       2,
	}
}
