/*
bucketing.go - Period bucketing: days into lots, requests into sectors

PURPOSE:
  Assigns each multi-day request to the calendar days it spans, and each day
  to a configured lot (sub-period of the month). This is the first stage of
  every rollup: daily man-day counts and amortized, tax-loaded daily cost,
  accumulated per lot and per sector.

CONTRACT (per month):
  For each calendar day d and each request r whose span contains d:
    dailyQty(r)  = extrasQty(r)          (full crew size counts on each day)
    dailyCost(r) = totalValue(r) / max(daysQty(r), 1)
    loaded cost  = dailyCost x (1 + taxRate/100)
  Both are added to the lot whose [startDay, endDay] contains d and to the
  bucket of the sector named by r. Only days whose calendar month equals the
  bucketed month count; a request spanning a month boundary contributes only
  its in-month days.

TIE-BREAK:
  A day matching several lots goes to the first lot in configured order.
  This is deliberate and tested; ValidateLots reports overlaps and coverage
  gaps so misconfigured months are visible rather than silently skewed.

EDGE CASES:
  - A day matching no lot is dropped from lot totals but still counted in
    sector totals.
  - A request naming an unknown sector is excluded from sector buckets and
    reported in Unmatched.

SEE ALSO:
  - rollup.go: Builds the sector x lot matrix on top of these buckets
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BUCKETS
// =============================================================================

// Bucket accumulates man-days and tax-loaded cost.
type Bucket struct {
	Qty   decimal.Decimal
	Value decimal.Decimal
}

func (b Bucket) Add(qty, value decimal.Decimal) Bucket {
	return Bucket{Qty: b.Qty.Add(qty), Value: b.Value.Add(value)}
}

// MonthBuckets is the result of bucketing one month.
type MonthBuckets struct {
	Month    MonthKey
	ByLot    map[int]Bucket    // lot ID -> bucket
	BySector map[string]Bucket // sector ID -> bucket
	Total    Bucket

	// Unmatched lists sector names referenced by requests but absent from
	// the dataset's sector list (renamed or removed sectors).
	Unmatched []string
}

// BucketOptions controls which requests participate.
type BucketOptions struct {
	// ApprovedOnly restricts bucketing to approved requests. Aggregate
	// dashboards bucket unconditionally; cost views bucket approved only.
	ApprovedOnly bool

	// SectorIDs, when non-empty, restricts sector buckets (and the grand
	// total) to the listed sectors.
	SectorIDs []string
}

// =============================================================================
// BUCKETING
// =============================================================================

// BucketMonth distributes every participating request across the calendar
// days of the month, accumulating per-lot and per-sector buckets. The result
// is a pure function of the dataset; re-running it yields identical buckets.
func BucketMonth(ds Dataset, month MonthKey, opts BucketOptions) MonthBuckets {
	lots := ds.LotsFor(month)
	tax := taxMultiplier(ds.ConfigFor(month).TaxRate)
	daysInMonth := month.DaysInMonth()

	filter := map[string]bool{}
	for _, id := range opts.SectorIDs {
		filter[id] = true
	}

	out := MonthBuckets{
		Month:    month,
		ByLot:    make(map[int]Bucket),
		BySector: make(map[string]Bucket),
	}
	unmatched := map[string]bool{}

	if daysInMonth == 0 { // malformed month key
		return out
	}

	year, m, _ := month.Parse()
	days := make([]time.Time, daysInMonth+1)
	for day := 1; day <= daysInMonth; day++ {
		days[day] = dayTime(year, m, day)
	}

	for _, r := range ds.Requests {
		if opts.ApprovedOnly && r.Status != StatusApproved {
			continue
		}

		sector, sectorOK := ds.SectorByName(r.Sector)
		if !sectorOK {
			if r.Sector != "" && !unmatched[r.Sector] {
				unmatched[r.Sector] = true
				out.Unmatched = append(out.Unmatched, r.Sector)
			}
		}
		if sectorOK && len(filter) > 0 && !filter[sector.ID] {
			continue
		}

		qty := decimal.NewFromInt(int64(r.ExtrasQty))
		cost := DailyCost(r).Mul(tax)

		start, end := r.Span()
		for day := 1; day <= daysInMonth; day++ {
			if !SpanContains(start, end, days[day]) {
				continue
			}

			// First matching lot wins; a day outside every lot is dropped
			// from lot totals but still counts toward the sector bucket.
			for _, lot := range lots {
				if lot.Contains(day) {
					out.ByLot[lot.ID] = out.ByLot[lot.ID].Add(qty, cost)
					break
				}
			}

			if sectorOK {
				out.BySector[sector.ID] = out.BySector[sector.ID].Add(qty, cost)
				out.Total = out.Total.Add(qty, cost)
			}
		}
	}

	return out
}

// =============================================================================
// LOT VALIDATION
// =============================================================================

// ValidateLots checks a month's lot configuration: every range well-formed,
// every day of the month covered by exactly one lot. Violations are returned
// as LotConfigErrors; bucketing still works on an invalid config (first
// match wins), this makes the misconfiguration visible.
func ValidateLots(month MonthKey, lots []Lot) []error {
	var errs []error
	daysInMonth := month.DaysInMonth()

	for _, lot := range lots {
		if lot.StartDay < 1 || lot.EndDay < lot.StartDay || lot.StartDay > daysInMonth {
			errs = append(errs, &LotConfigError{Month: month, LotID: lot.ID, LotName: lot.Name, Code: "invalid_range"})
		}
	}

	for day := 1; day <= daysInMonth; day++ {
		covered := 0
		var second Lot
		for _, lot := range lots {
			if lot.Contains(day) {
				covered++
				if covered == 2 {
					second = lot
				}
			}
		}
		switch {
		case covered == 0:
			errs = append(errs, &LotConfigError{Month: month, Code: "uncovered_day", Day: day})
		case covered > 1:
			errs = append(errs, &LotConfigError{Month: month, LotID: second.ID, LotName: second.Name, Code: "overlap", Day: day})
		}
	}

	return errs
}

// LotForDay returns the first configured lot containing the day, mirroring
// the bucketing tie-break.
func LotForDay(lots []Lot, day int) (Lot, bool) {
	for _, lot := range lots {
		if lot.Contains(day) {
			return lot, true
		}
	}
	return Lot{}, false
}
