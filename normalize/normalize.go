// Package normalize converts raw extracted cell text into typed values:
// prices and numbers to float64, percentages to their numeric part,
// dates to ISO-8601, tickers to canonical upper case. Normalization is
// per cell; one bad cell becomes a null sentinel plus a recorded
// failure, never a dropped row.
package normalize

import (
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

// Field types declared in site configs and used for column inference.
const (
	TypePrice      = "price"
	TypePercentage = "percentage"
	TypeNumber     = "number"
	TypeTicker     = "ticker"
	TypeDate       = "date"
	TypeString     = "string"
)

// nullSentinels are cell texts that mean "no value" in financial tables.
var nullSentinels = map[string]struct{}{
	"": {}, "-": {}, "--": {}, "–": {}, "—": {},
	"n/a": {}, "na": {}, "nan": {}, "null": {}, "none": {}, "nil": {},
}

// currencySymbols maps leading symbols to ISO currency codes.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"$", "USD"}, {"US$", "USD"}, {"€", "EUR"}, {"£", "GBP"},
	{"¥", "JPY"}, {"₹", "INR"}, {"₩", "KRW"}, {"HK$", "HKD"},
	{"C$", "CAD"}, {"A$", "AUD"}, {"₿", "BTC"},
}

// multipliers expand the scale suffixes common in finance columns.
var multipliers = map[byte]float64{
	'K': 1e3, 'M': 1e6, 'B': 1e9, 'T': 1e12,
}

// IsNull reports whether the cell text is a null sentinel.
func IsNull(s string) bool {
	_, ok := nullSentinels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Price parses a price cell: currency symbols and thousands separators
// stripped, parenthesized and minus-signed values negative, K/M/B/T
// suffixes expanded. Already-numeric input passes through unchanged.
func Price(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return 0, false
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "−") {
		neg = !neg
		s = strings.TrimLeft(s, "-−")
	}
	s = strings.TrimPrefix(s, "+")

	for _, cs := range currencySymbols {
		s = strings.TrimPrefix(s, cs.symbol)
	}
	s = strings.TrimSpace(s)

	mult := 1.0
	if len(s) > 0 {
		if m, ok := multipliers[upperByte(s[len(s)-1])]; ok {
			mult = m
			s = s[:len(s)-1]
		}
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	v *= mult
	if neg {
		v = -v
	}
	return v, true
}

// Percentage parses a percentage cell to its numeric part: "15.5%"
// yields 15.5, not 0.155.
func Percentage(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return 0, false
	}
	// The sign may wrap the percent sign, as in "(1.2%)".
	s = strings.ReplaceAll(s, "%", "")
	return Price(s)
}

// Number parses a count-like cell (volume, shares outstanding) with the
// same separator and suffix handling as Price.
func Number(s string) (float64, bool) {
	return Price(s)
}

// Ticker canonicalizes a symbol cell: upper case, no surrounding
// whitespace, no leading $.
func Ticker(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return "", false
	}
	s = strings.TrimPrefix(s, "$")
	return strings.ToUpper(s), true
}

// Date parses the many date shapes financial sites emit and renders
// ISO-8601 (2006-01-02). ISO input round-trips unchanged.
func Date(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if IsNull(s) {
		return "", false
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// DetectCurrency returns the ISO code of the first currency symbol
// found in the cell, or "" when none is present.
func DetectCurrency(s string) string {
	// Multi-character symbols first so "HK$" is not read as "$".
	for _, cs := range currencySymbols {
		if len(cs.symbol) > 1 && strings.Contains(s, cs.symbol) {
			return cs.code
		}
	}
	for _, cs := range currencySymbols {
		if strings.Contains(s, cs.symbol) {
			return cs.code
		}
	}
	return ""
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
