/*
rollup.go - Cost/quantity rollup: the sector x lot matrix

PURPOSE:
  Produces the dashboard's central table: for a month, a metric and a sector
  selection, a matrix of {value, qty, index} cells per sector and lot, with
  row totals, column totals and a grand total.

METRICS:
  extras  Approved extra-staff requests, bucketed day by day (bucketing.go).
          Only days whose calendar month equals the view month count.
  clt     Fixed payroll staff, from the sector/month ManualRealStat: active
          headcount = max(0, realQty - afastados - apprentices), apportioned
          to lots straight-line by day count. When no stat is recorded the
          sector falls back to approved-request totals for the month.
  total   Elementwise sum of extras and clt.

INDEX (MO/UH):
  Each cell's index is qty / occupied room-nights accumulated over the
  cell's lot. Indices are never summed: row and grand total indices are
  recomputed as totalQty / totalOccupancy. A zero denominator yields a zero
  index, never NaN or Infinity.

SEE ALSO:
  - bucketing.go: Day-level accumulation feeding the extras metric
  - index.go: The daily MO/UH series and targets
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// METRIC
// =============================================================================

type Metric string

const (
	MetricExtras Metric = "extras"
	MetricClt    Metric = "clt"
	MetricTotal  Metric = "total"
)

// =============================================================================
// MATRIX
// =============================================================================

// Cell is one matrix entry.
type Cell struct {
	Qty   decimal.Decimal
	Value decimal.Decimal
	Index decimal.Decimal // qty per occupied room-night, 3dp
}

func (c Cell) add(o Cell) Cell {
	return Cell{Qty: c.Qty.Add(o.Qty), Value: c.Value.Add(o.Value)}
}

// SectorRow is one sector's cells across the month's lots plus its total.
type SectorRow struct {
	Sector Sector
	ByLot  map[int]Cell
	Total  Cell
}

// RollupMatrix is the full month view.
type RollupMatrix struct {
	Month     MonthKey
	Metric    Metric
	Lots      []Lot
	Rows      []SectorRow
	LotTotals map[int]Cell
	Grand     Cell

	// LotOccupancy holds occupied room-nights summed per lot; MonthOccupancy
	// is their total. Kept on the matrix so views can render denominators.
	LotOccupancy   map[int]int
	MonthOccupancy int

	// Unmatched sector names from the extras bucketing (renamed sectors).
	Unmatched []string
}

// =============================================================================
// ROLLUP
// =============================================================================

// Rollup builds the sector x lot matrix for a month. filteredSectors
// restricts rows to the listed sector IDs; nil includes every sector.
// The result is a pure function of the dataset: identical inputs yield an
// identical matrix.
func Rollup(ds Dataset, month MonthKey, metric Metric, filteredSectors []string) (RollupMatrix, error) {
	switch metric {
	case MetricExtras, MetricClt, MetricTotal:
	default:
		return RollupMatrix{}, ErrUnknownMetric
	}

	lots := ds.LotsFor(month)
	sectors := selectSectors(ds.Sectors, filteredSectors)

	out := RollupMatrix{
		Month:        month,
		Metric:       metric,
		Lots:         lots,
		LotTotals:    make(map[int]Cell),
		LotOccupancy: make(map[int]int),
	}

	// Occupancy denominators per lot and for the month.
	daysInMonth := month.DaysInMonth()
	for day := 1; day <= daysInMonth; day++ {
		uh := ds.OccupancyOn(month.Day(day))
		if lot, ok := LotForDay(lots, day); ok {
			out.LotOccupancy[lot.ID] += uh
		}
		out.MonthOccupancy += uh
	}

	var extras map[string]map[int]Bucket
	if metric == MetricExtras || metric == MetricTotal {
		extras = extrasByLot(ds, month, lots, &out)
	}

	for _, sector := range sectors {
		row := SectorRow{Sector: sector, ByLot: make(map[int]Cell)}

		for _, lot := range lots {
			var cell Cell
			switch metric {
			case MetricExtras:
				cell = extrasCell(extras, sector.ID, lot.ID)
			case MetricClt:
				cell = cltCell(ds, sector.ID, month, lot)
			case MetricTotal:
				cell = extrasCell(extras, sector.ID, lot.ID).add(cltCell(ds, sector.ID, month, lot))
			}
			cell.Index = SafeIndex(cell.Qty, out.LotOccupancy[lot.ID])
			row.ByLot[lot.ID] = cell
			row.Total = row.Total.add(cell)

			lt := out.LotTotals[lot.ID]
			out.LotTotals[lot.ID] = lt.add(cell)
		}

		// Row index uses the month's total occupancy, never a sum of
		// per-lot indices.
		row.Total.Index = SafeIndex(row.Total.Qty, out.MonthOccupancy)
		out.Grand = out.Grand.add(row.Total)
		out.Rows = append(out.Rows, row)
	}

	for id, cell := range out.LotTotals {
		cell.Index = SafeIndex(cell.Qty, out.LotOccupancy[id])
		out.LotTotals[id] = cell
	}
	out.Grand.Index = SafeIndex(out.Grand.Qty, out.MonthOccupancy)

	return out, nil
}

// =============================================================================
// METRIC CELLS
// =============================================================================

// extrasByLot buckets approved requests day by day, keeping per-sector,
// per-lot buckets. Only in-month days count, so a request spanning a month
// boundary contributes just its days inside the view month.
func extrasByLot(ds Dataset, month MonthKey, lots []Lot, out *RollupMatrix) map[string]map[int]Bucket {
	tax := taxMultiplier(ds.ConfigFor(month).TaxRate)
	daysInMonth := month.DaysInMonth()
	if daysInMonth == 0 {
		return nil
	}
	year, m, _ := month.Parse()

	buckets := make(map[string]map[int]Bucket)
	unmatched := map[string]bool{}

	for _, r := range ds.Requests {
		if r.Status != StatusApproved {
			continue
		}
		sector, ok := ds.SectorByName(r.Sector)
		if !ok {
			if r.Sector != "" && !unmatched[r.Sector] {
				unmatched[r.Sector] = true
				out.Unmatched = append(out.Unmatched, r.Sector)
			}
			continue
		}

		qty := decimal.NewFromInt(int64(r.ExtrasQty))
		cost := DailyCost(r).Mul(tax)
		start, end := r.Span()

		for day := 1; day <= daysInMonth; day++ {
			d := dayTime(year, m, day)
			if !SpanContains(start, end, d) {
				continue
			}
			lot, ok := LotForDay(lots, day)
			if !ok {
				continue
			}
			if buckets[sector.ID] == nil {
				buckets[sector.ID] = make(map[int]Bucket)
			}
			buckets[sector.ID][lot.ID] = buckets[sector.ID][lot.ID].Add(qty, cost)
		}
	}
	return buckets
}

func extrasCell(buckets map[string]map[int]Bucket, sectorID string, lotID int) Cell {
	b := buckets[sectorID][lotID]
	return Cell{Qty: b.Qty, Value: b.Value}
}

// cltCell apportions the sector/month fixed-staff actuals to a lot
// straight-line by day count. Headcount is clamped to zero here, at the
// usage site; the stored stat is never clamped.
func cltCell(ds Dataset, sectorID string, month MonthKey, lot Lot) Cell {
	daysInMonth := month.DaysInMonth()
	if daysInMonth == 0 {
		return Cell{}
	}
	daysInLot := decimal.NewFromInt(int64(lot.DaysIn(month)))

	stat, ok := ds.ManualStatFor(sectorID, month)
	var head, monthValue decimal.Decimal
	if ok {
		active := stat.ActiveRealQty()
		if active < 0 {
			active = 0
		}
		head = decimal.NewFromInt(int64(active))
		monthValue = stat.RealValue
	} else {
		// Fallback: approved-request totals for the sector's month.
		head, monthValue = approvedTotals(ds, sectorID, month)
	}

	return Cell{
		Qty:   head.Mul(daysInLot),
		Value: monthValue.Div(decimal.NewFromInt(int64(daysInMonth))).Mul(daysInLot),
	}
}

// approvedTotals sums approved requests' extras quantity and total value for
// a sector, keyed by the month of each request's event date.
func approvedTotals(ds Dataset, sectorID string, month MonthKey) (qty, value decimal.Decimal) {
	for _, r := range ds.Requests {
		if r.Status != StatusApproved {
			continue
		}
		sector, ok := ds.SectorByName(r.Sector)
		if !ok || sector.ID != sectorID {
			continue
		}
		if MonthKeyOf(r.DateEvent) != month {
			continue
		}
		qty = qty.Add(decimal.NewFromInt(int64(r.ExtrasQty)))
		value = value.Add(r.TotalValue)
	}
	return qty, value
}

// =============================================================================
// HELPERS
// =============================================================================

// SafeIndex divides quantity by occupancy, guarding the zero denominator:
// the index is zero, never NaN or Infinity. Rounded to 3 decimals.
func SafeIndex(qty decimal.Decimal, occupancy int) decimal.Decimal {
	if occupancy == 0 {
		return decimal.Zero
	}
	return qty.Div(decimal.NewFromInt(int64(occupancy))).Round(3)
}

func selectSectors(sectors []Sector, ids []string) []Sector {
	if len(ids) == 0 {
		return sectors
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []Sector
	for _, s := range sectors {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out
}
