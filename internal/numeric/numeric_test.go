package numeric

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"SimpleAmount", "123.45", "123.45"},
		{"CommaDecimal", "123,45", "123.45"},
		{"SpaceThousands", "5 147,83", "5147.83"},
		{"NonBreakingSpaceThousands", "5 147,83", "5147.83"},
		{"EuropeanFormat", "1.234,56", "1234.56"},
		{"USFormat", "1,234.56", "1234.56"},
		{"CommaThousandsOnly", "1,234", "1234"},
		{"ApostropheThousands", "1'234.56", "1234.56"},
		{"EuroSymbol", "€123.45", "123.45"},
		{"CurrencyCodePrefix", "EUR 12.50", "12.50"},
		{"CurrencyCodeNegative", "SEK -42", "-42"},
		{"CurrencyCodeAlone", "SEK", "SEK"},
		{"ExponentLikeText", "E2", "E2"},
		{"EnDashNegative", "–5", "-5"},
		{"EmDashNegative", "—5.50", "-5.50"},
		{"UnicodeMinusNegative", "−5 147,83", "-5147.83"},
		{"AsciiMinus", "-42", "-42"},
		{"Empty", "", ""},
		{"WhitespaceOnly", "   ", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Clean(tc.input))
		})
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{"LocaleNumeric", "5 147,83", "5147.83", false},
		{"Negative", "−10", "-10", false},
		{"Blank", "", "0", false},
		{"Garbage", "not-a-number", "", true},
		{"CurrencyCodeAlone", "SEK", "", true},
		{"ExponentLikeText", "E2", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			expected, _ := decimal.NewFromString(tc.expected)
			assert.True(t, expected.Equal(got), "Parse(%q) = %s, want %s", tc.input, got, tc.expected)
		})
	}
}
