package rewards

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// displayPlaces is the precision of ratios shown to operators.
const displayPlaces = 6

// Ratio renders part/total as a decimal fraction for display. It is never
// used for settlement; a zero total yields zero.
func Ratio(part, total uint64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return fromUint64(part).DivRound(fromUint64(total), displayPlaces)
}

// Percent renders a basis-point value as a percentage.
func Percent(bps uint64) decimal.Decimal {
	return fromUint64(bps).Shift(-2)
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
