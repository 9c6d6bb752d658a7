package quant

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

// PriceMicros represents price multiplied by 1,000,000 (10^6).
// E.g., 1.23 USD = 1,230,000 PriceMicros.
//
// Book sides are keyed by PriceMicros derived once from the wire price
// string, so two spellings of the same numeric price ("1.5", "1.50")
// always collide and two distinct prices never do. Float64 is only
// produced at the boundary, for arithmetic.
type PriceMicros int64

// TimeStamp represents Unix Microseconds.
type TimeStamp int64

const (
	PriceScale = 1000000
)

// ToPriceMicros converts a float64 (from external API) to PriceMicros.
// Note: Only used at the boundary. Internal logic uses PriceMicros directly.
func ToPriceMicros(f float64) PriceMicros {
	return PriceMicros(math.Round(f * PriceScale))
}

// ToPriceMicrosStr converts a numeric string to PriceMicros without going
// through float64. Rule #1: No Float on the key path.
func ToPriceMicrosStr(s string) PriceMicros {
	return PriceMicros(parseFixedPoint(s, 6))
}

// Float converts back to float64 for arithmetic at the boundary.
func (p PriceMicros) Float() float64 {
	return float64(p) / PriceScale
}

func (p PriceMicros) String() string {
	return fmt.Sprintf("%.6f", float64(p)/PriceScale)
}

// ParseSize parses a wire size string into float64.
// Returns 0 for empty or malformed input; a size of exactly 0 means
// level removal, which is what we want for garbage input too.
func ParseSize(s string) float64 {
	if s == "" || s == "null" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// NextSeq generates the next sequence number atomically.
func NextSeq(ptr *uint64) uint64 {
	return atomic.AddUint64(ptr, 1)
}

// ParseTimeStamp converts a string (ms) to TimeStamp (micros).
func ParseTimeStamp(s string) (TimeStamp, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return TimeStamp(ms * 1000), nil
}

// parseFixedPoint parses a numeric string into an int64 with the given precision.
// E.g., parseFixedPoint("1.23", 6) -> 1,230,000.
// Fraction digits beyond the precision are truncated.
func parseFixedPoint(s string, precision int) int64 {
	if s == "" || s == "null" {
		return 0
	}

	intStr := s
	fracStr := ""
	if dotIdx := strings.IndexByte(s, '.'); dotIdx != -1 {
		intStr = s[:dotIdx]
		fracStr = s[dotIdx+1:]
	}

	// 1. Parse Integer Part
	intPart, _ := strconv.ParseInt(intStr, 10, 64)
	for i := 0; i < precision; i++ {
		intPart *= 10
	}

	if fracStr == "" {
		return intPart
	}

	// 2. Parse Fraction Part
	if len(fracStr) > precision {
		fracStr = fracStr[:precision]
	}
	fracPart, _ := strconv.ParseInt(fracStr, 10, 64)

	// Pad fraction part with zeros if shorter than precision
	for i := len(fracStr); i < precision; i++ {
		fracPart *= 10
	}

	// 3. Handle Negative
	if strings.HasPrefix(intStr, "-") {
		return intPart - fracPart
	}
	return intPart + fracPart
}
