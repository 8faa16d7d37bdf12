package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PriceDecimals is the number of fractional digits in the smallest currency unit
// (1 unit = 10^9 smallest units).
const PriceDecimals = 9

var (
	ErrPriceEmpty     = errors.New("price is empty")
	ErrPriceSyntax    = errors.New("price is not a decimal number")
	ErrPriceNegative  = errors.New("price is negative")
	ErrPricePrecision = errors.New("price has more than 9 fractional digits")
	ErrPriceOverflow  = errors.New("price overflows the fixed-point range")
)

// ParsePrice converts a human decimal string such as "1.5" into smallest units
// (1500000000) without going through floating point.
func ParsePrice(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrPriceEmpty
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrPriceNegative
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, ErrPriceSyntax
	}
	if hasDot && strings.Contains(frac, ".") {
		return 0, ErrPriceSyntax
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, ErrPriceSyntax
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > PriceDecimals {
		return 0, ErrPricePrecision
	}
	frac += strings.Repeat("0", PriceDecimals-len(frac))

	whole = strings.TrimLeft(whole, "0")
	if whole == "" {
		whole = "0"
	}

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, ErrPriceOverflow
	}
	f, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return 0, ErrPriceSyntax
	}

	const scale = 1_000_000_000
	if w > (math.MaxUint64-f)/scale {
		return 0, ErrPriceOverflow
	}
	return w*scale + f, nil
}

// FormatPrice renders smallest units as the shortest decimal string, e.g.
// 1500000000 -> "1.5" and 5000000000 -> "5".
func FormatPrice(units uint64) string {
	digits := strconv.FormatUint(units, 10)
	if len(digits) <= PriceDecimals {
		digits = strings.Repeat("0", PriceDecimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-PriceDecimals]
	frac := strings.TrimRight(digits[len(digits)-PriceDecimals:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// AddPrice sums two decimal price strings exactly. An empty operand counts as zero.
func AddPrice(a, b string) (string, error) {
	x, err := parseOrZero(a)
	if err != nil {
		return "", fmt.Errorf("left operand %q: %w", a, err)
	}
	y, err := parseOrZero(b)
	if err != nil {
		return "", fmt.Errorf("right operand %q: %w", b, err)
	}
	if x > math.MaxUint64-y {
		return "", ErrPriceOverflow
	}
	return FormatPrice(x + y), nil
}

// PositivePrice parses s and rejects zero.
func PositivePrice(s string) (uint64, error) {
	units, err := ParsePrice(s)
	if err != nil {
		return 0, err
	}
	if units == 0 {
		return 0, errors.New("price must be greater than zero")
	}
	return units, nil
}

func parseOrZero(s string) (uint64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return ParsePrice(s)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
