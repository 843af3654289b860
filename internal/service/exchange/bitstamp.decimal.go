package exchange

import (
	"strings"

	"github.com/shopspring/decimal"
)

const bitstampMaxAmountDecimals = 8

// LimitTo8Decimals fixes amounts with more than 8 fractional digits to exactly
// 8, rounding half away from zero. Shorter amounts keep their canonical text.
func LimitTo8Decimals(amount decimal.Decimal) string {
	text := amount.String()

	dot := strings.IndexByte(text, '.')
	if dot >= 0 && len(text)-dot-1 > bitstampMaxAmountDecimals {
		return amount.StringFixed(bitstampMaxAmountDecimals)
	}

	return text
}
