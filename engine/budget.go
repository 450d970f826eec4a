/*
budget.go - Budget derivation

PURPOSE:
  From a budgeted monetary amount, an hourly rate, hours/day and days/month,
  derive budgeted headcount and the per-day extra-staff allowance:

    budgetQty      = round(budgetValue / hourRate / workHoursPerDay)
    extraQtyPerDay = round2(budgetQty / workingDaysPerMonth)

GUARD:
  Derivation runs only when hourRate > 0 and workHoursPerDay > 0. Otherwise
  the previously derived values are kept as-is, not reset to zero. That
  asymmetry is intentional: clearing a rate mid-edit must not wipe the
  headcount the admin is looking at.

BULK PASTE:
  A tab/newline-delimited block maps column-wise onto
  [budgetValue, hourRate, workHoursPerDay, workingDaysPerMonth] and row-wise
  onto sectors starting at a given index; each row runs the same derivation.
  Parsing of the block itself lives in the tabular package.

SEE ALSO:
  - tabular/: Block and numeric parsing for admin grids
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// BudgetInputs are the monetary inputs to budget derivation. Nil fields
// leave the stored value untouched (partial update).
type BudgetInputs struct {
	BudgetValue         *decimal.Decimal
	HourRate            *decimal.Decimal
	WorkHoursPerDay     *int
	WorkingDaysPerMonth *int
	CltBudgetQty        *int
	CltBudgetValue      *decimal.Decimal
}

// ApplyBudgetInputs patches a budget and re-derives BudgetQty and
// ExtraQtyPerDay. When the guard fails (hourRate or workHoursPerDay not
// positive) the derived fields keep their prior values.
func ApplyBudgetInputs(b MonthlyBudget, in BudgetInputs) MonthlyBudget {
	if in.BudgetValue != nil {
		b.BudgetValue = *in.BudgetValue
	}
	if in.HourRate != nil {
		b.HourRate = *in.HourRate
	}
	if in.WorkHoursPerDay != nil {
		b.WorkHoursPerDay = *in.WorkHoursPerDay
	}
	if in.WorkingDaysPerMonth != nil {
		b.WorkingDaysPerMonth = *in.WorkingDaysPerMonth
	}
	if in.CltBudgetQty != nil {
		b.CltBudgetQty = *in.CltBudgetQty
	}
	if in.CltBudgetValue != nil {
		b.CltBudgetValue = *in.CltBudgetValue
	}
	return DeriveBudget(b)
}

// DeriveBudget recomputes the derived fields from the monetary inputs.
func DeriveBudget(b MonthlyBudget) MonthlyBudget {
	if b.HourRate.IsPositive() && b.WorkHoursPerDay > 0 {
		qty := b.BudgetValue.
			Div(b.HourRate).
			Div(decimal.NewFromInt(int64(b.WorkHoursPerDay))).
			Round(0)
		b.BudgetQty = int(qty.IntPart())

		if b.WorkingDaysPerMonth > 0 {
			b.ExtraQtyPerDay = decimal.NewFromInt(int64(b.BudgetQty)).
				Div(decimal.NewFromInt(int64(b.WorkingDaysPerMonth))).
				Round(2)
		}
	}
	return b
}

// BudgetRow is one parsed row of a bulk budget paste, in grid column order.
type BudgetRow struct {
	BudgetValue         decimal.Decimal
	HourRate            decimal.Decimal
	WorkHoursPerDay     int
	WorkingDaysPerMonth int
}

// ApplyBudgetRows maps pasted rows onto sectors starting at startIndex,
// running the standard derivation per row. Rows beyond the sector list are
// ignored. Returns the updated budgets in sector order.
func ApplyBudgetRows(ds Dataset, month MonthKey, startIndex int, rows []BudgetRow) []MonthlyBudget {
	var out []MonthlyBudget
	for i, row := range rows {
		idx := startIndex + i
		if idx < 0 || idx >= len(ds.Sectors) {
			continue
		}
		sector := ds.Sectors[idx]
		b := ds.BudgetFor(sector.ID, month)
		b.BudgetValue = row.BudgetValue
		b.HourRate = row.HourRate
		if row.WorkHoursPerDay > 0 {
			b.WorkHoursPerDay = row.WorkHoursPerDay
		}
		if row.WorkingDaysPerMonth > 0 {
			b.WorkingDaysPerMonth = row.WorkingDaysPerMonth
		}
		out = append(out, DeriveBudget(b))
	}
	return out
}
