// Package core provides money and number parsing utilities.
//
// This file contains the permissive parsers used for every numeric field a
// user types: amounts in pesos, installment counts and locale numbers.
package core

import (
	"math"
	"strconv"
	"strings"
)

// splitLocaleNumber separates s into integer and fractional digits.
//
// The last comma or dot is the decimal point, earlier separators are
// thousands separators. Every other character is dropped. ok is false when
// no digit is present.
func splitLocaleNumber(s string) (intPart, fracPart string, ok bool) {
	last := strings.LastIndexAny(s, ",.")
	var ib, fb strings.Builder
	for i, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		if last >= 0 && i > last {
			fb.WriteRune(r)
		} else {
			ib.WriteRune(r)
		}
	}
	intPart, fracPart = ib.String(), fb.String()
	return intPart, fracPart, intPart != "" || fracPart != ""
}

// ParseLocaleNumber reads a number typed with either decimal convention.
//
// Examples:
//
//	ParseLocaleNumber("1,84")     -> 1.84
//	ParseLocaleNumber("1.84")     -> 1.84
//	ParseLocaleNumber("1.234,5")  -> 1234.5
//	ParseLocaleNumber("abc")      -> 0
func ParseLocaleNumber(s string) float64 {
	intPart, fracPart, ok := splitLocaleNumber(s)
	if !ok {
		return 0
	}
	if intPart == "" {
		intPart = "0"
	}
	num := intPart
	if fracPart != "" {
		num += "." + fracPart
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseAmount converts a user-typed peso amount to Money.
//
// Pesos have no minor unit in practice, so a final group of exactly three
// digits is read as thousands ("1.200.000", "1,200" -> 1200000, 1200). Any
// other final group is a decimal part and the result is rounded. A leading
// minus sign is kept so validation can reject it. Unparseable input is 0.
//
// Examples:
//
//	ParseAmount("3500000")      -> 3500000
//	ParseAmount("$ 1.200.000")  -> 1200000
//	ParseAmount("99,5")         -> 100
//	ParseAmount("-10")          -> -10
func ParseAmount(s string) Money {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	intPart, fracPart, ok := splitLocaleNumber(s)
	if !ok {
		return 0
	}
	if len(fracPart) == 3 {
		intPart += fracPart
		fracPart = ""
	}
	if intPart == "" {
		intPart = "0"
	}
	num := intPart
	if fracPart != "" {
		num += "." + fracPart
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	// Keep well inside int64 range.
	if f > 1e15 {
		return 0
	}
	if neg {
		f = -f
	}
	return RoundMoney(f)
}

// ParseCount reads a whole count such as a number of installments. Any
// decimal part is truncated and unparseable input is 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	f := ParseLocaleNumber(s)
	if f > math.MaxInt32 {
		return 0
	}
	n := int(f)
	if strings.HasPrefix(s, "-") {
		n = -n
	}
	return n
}

// Pesos returns the amount as a float for ratio calculations.
func (m Money) Pesos() float64 {
	return float64(m)
}

// String formats the amount with dot thousands separators, e.g. "$1.200.000".
func (m Money) String() string {
	n := int64(m)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}
