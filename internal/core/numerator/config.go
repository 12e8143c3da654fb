// Package numerator provides domain contracts for document auto-numbering.
package numerator

// Strategy selects how sequence values are allocated.
type Strategy int

const (
	// StrategyStrict issues every number through UPDATE ... RETURNING,
	// so the sequence never gaps. Use for sales orders, receipts and
	// other documents an auditor may cross-check.
	StrategyStrict Strategy = iota

	// StrategyCached reserves a range in memory and hands numbers out
	// locally. Gaps appear after a restart, which is acceptable for
	// internal identifiers such as batch numbers.
	StrategyCached
)

// Options tunes a single GetNextNumber call.
type Options struct {
	Strategy Strategy

	// RangeSize is how many numbers StrategyCached reserves per
	// round-trip. Zero means the generator default (50).
	RangeSize int64
}

// DefaultOptions returns the strict, gapless configuration.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// Config describes the shape of generated numbers for one document kind,
// e.g. Prefix "SO" with IncludeYear yields SO-2026-00017.
type Config struct {
	Prefix string

	// IncludeYear puts the period year between prefix and counter.
	IncludeYear bool

	// PadWidth is the minimum counter width, zero-padded.
	PadWidth int

	// ResetPeriod is "year", "month" or "never".
	ResetPeriod string
}

// DefaultConfig returns the storecore house format: yearly reset,
// five-digit counter.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}
