// Package numeric cleans the locale-variant numeric text found in reseller
// exports into a form shopspring/decimal can parse. Partners ship numbers
// like "5 147,83", "€1.234,56", "1'234.56" and negatives written with
// en-dashes or the Unicode minus sign.
package numeric

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyRunes = regexp.MustCompile(`[€$£¥₣₤₧₹₺₽₩฿₫₲₴₸₼₪\s\x{00a0}]`)

// Three-letter currency code prefixing the value ("EUR 12.50"). Spaces are
// stripped before this runs, so the code must abut the number itself or the
// prefix is left alone and the value fails to parse.
var currencyCodePrefix = regexp.MustCompile(`^[A-Z]{3}([-+.\d(].*)$`)

// dash variants partners use for negative amounts, normalized to ASCII minus.
var signVariants = strings.NewReplacer(
	"–", "-", // en-dash
	"—", "-", // em-dash
	"−", "-", // Unicode minus
)

// Clean standardizes an amount string so decimal.NewFromString accepts it:
// currency symbols and grouping separators are stripped, comma decimals
// become dot decimals, and all minus variants collapse to ASCII minus.
func Clean(s string) string {
	s = signVariants.Replace(strings.TrimSpace(s))
	s = currencyRunes.ReplaceAllString(s, "")

	if m := currencyCodePrefix.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			// European format (1.234,56)
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// US format (1,234.56)
			s = strings.ReplaceAll(s, ",", "")
		}
	} else if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts[len(parts)-1]) <= 2 {
			// Comma as decimal separator (1234,56)
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// Comma as thousand separator (1,234)
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	// Apostrophes as thousand separators (1'234.56)
	s = strings.ReplaceAll(s, "'", "")

	return s
}

// Parse cleans and parses an amount string. Empty input parses to zero.
func Parse(s string) (decimal.Decimal, error) {
	cleaned := Clean(s)
	if cleaned == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount '%s': %w", s, err)
	}
	return d, nil
}
