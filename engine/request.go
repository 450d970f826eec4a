package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REQUEST TOTAL VALUE - Derived, recomputed on every relevant change
// =============================================================================

var eight = decimal.NewFromInt(8)

// ComputeTotalValue derives a request's total value:
//
//	extrasQty x daysQty x specialRate            when a special rate is set
//	extrasQty x daysQty x 8 x standardHourRate   otherwise
//
// The standard hour rate is the effective rate for the month of DateEvent.
// This must be re-applied whenever ExtrasQty, DaysQty, SpecialRate or
// DateEvent changes, so stored totals never drift from their inputs.
func ComputeTotalValue(r Request, cfg EffectiveConfig) decimal.Decimal {
	qty := decimal.NewFromInt(int64(r.ExtrasQty)).Mul(decimal.NewFromInt(int64(r.DaysQty)))
	if r.SpecialRate != nil {
		return qty.Mul(*r.SpecialRate)
	}
	return qty.Mul(eight).Mul(cfg.StandardHourRate)
}

// Reprice returns the request with TotalValue recomputed against the dataset
// configuration for the month of its event date.
func Reprice(r Request, ds Dataset) Request {
	r.TotalValue = ComputeTotalValue(r, ds.ConfigFor(MonthKeyOf(r.DateEvent)))
	return r
}

// ValidateRequest checks the quantity invariants a request must satisfy
// before it enters the dataset.
func ValidateRequest(r Request) error {
	if r.ExtrasQty < 1 {
		return fmt.Errorf("%w: extras_qty %d", ErrInvalidQuantity, r.ExtrasQty)
	}
	if r.DaysQty < 1 {
		return fmt.Errorf("%w: days_qty %d", ErrInvalidQuantity, r.DaysQty)
	}
	return nil
}

// DailyCost is the equal amortization of the request's total value across
// the days it spans. A zero DaysQty would divide by zero; it is treated as
// a single day.
func DailyCost(r Request) decimal.Decimal {
	days := r.DaysQty
	if days < 1 {
		days = 1
	}
	return r.TotalValue.Div(decimal.NewFromInt(int64(days)))
}

// taxMultiplier converts a percent tax rate into a cost multiplier,
// e.g. 35 -> 1.35.
func taxMultiplier(taxRate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(taxRate.Div(decimal.NewFromInt(100)))
}
