package core

import (
	"math"
	"strconv"
	"strings"
)

const (
	// MaxMonthlyRate is the largest accepted monthly rate, as a fraction.
	MaxMonthlyRate = 0.05

	// maxRatePercent bounds the typed percentage; larger values are read as
	// misplaced decimal points.
	maxRatePercent = 5.0

	// StoredRateThreshold marks stored fractions that were saved as
	// percentages by earlier versions. Entry-time rates never exceed
	// MaxMonthlyRate, so migration leaves them alone.
	StoredRateThreshold = 0.06
)

// decimalShift returns how many times p must be divided by ten to fall at
// or below maxRatePercent.
func decimalShift(p float64) int {
	k := 0
	for v := p; v > maxRatePercent; v /= 10 {
		k++
	}
	return k
}

// NormalizePercent scales a typed percentage down by powers of ten until it
// is at most 5, so "184" reads as 1.84 and "1842" as 1.842.
func NormalizePercent(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return p
	}
	if k := decimalShift(p); k > 0 {
		return p / math.Pow10(k)
	}
	return p
}

// ParseRate converts a typed monthly percentage into a fraction.
//
// Comma and dot are both accepted as the decimal separator and oversized
// values are scaled down (see NormalizePercent). The result is rejected
// with ErrInvalidRate unless it lies in (0, MaxMonthlyRate].
//
// Examples:
//
//	ParseRate("1,84") -> 0.0184, nil
//	ParseRate("1.84") -> 0.0184, nil
//	ParseRate("184")  -> 0.0184, nil
//	ParseRate("0")    -> 0, ErrInvalidRate
func ParseRate(raw string) (float64, error) {
	p := ParseLocaleNumber(raw)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, ErrInvalidRate
	}
	// One division keeps "184" and "1,84" on the same float.
	r := p / math.Pow10(decimalShift(p)+2)
	if !(r > 0 && r <= MaxMonthlyRate) {
		return 0, ErrInvalidRate
	}
	return r, nil
}

// NormalizeStoredRate repairs a stored rate saved as a percentage. Rates at
// or below StoredRateThreshold are returned unchanged, which makes repeated
// application a no-op.
func NormalizeStoredRate(r float64) (float64, bool) {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= StoredRateThreshold {
		return r, false
	}
	for r > StoredRateThreshold {
		r /= 100
	}
	return r, true
}

// FormatRate renders a fraction as a comma-decimal percentage with two or
// three decimals, e.g. 0.0184 -> "1,84" and 0.01842 -> "1,842".
func FormatRate(frac float64) string {
	if math.IsNaN(frac) || math.IsInf(frac, 0) {
		return "0,00"
	}
	s := strconv.FormatFloat(frac*100, 'f', 3, 64)
	if strings.HasSuffix(s, "0") {
		s = s[:len(s)-1]
	}
	return strings.Replace(s, ".", ",", 1)
}
