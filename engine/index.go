/*
index.go - Daily occupancy index (MO/UH)

PURPOSE:
  The system's core KPI: headcount normalized per occupied room-night.
  For each day of a month this produces index = headcount / occupiedUH,
  alongside the configured advisory target. Targets are reference lines
  only; nothing is enforced or alerted on.

SEE ALSO:
  - rollup.go: Lot/month-level indices on the matrix
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// DailyIndexPoint is one day of the MO/UH series.
type DailyIndexPoint struct {
	Date      DateKey
	Headcount decimal.Decimal
	Occupancy int
	Index     decimal.Decimal // headcount / occupancy, 3dp, 0 when occupancy is 0
}

// DailyIndexSeries is the month's MO/UH curve for one metric, with the
// advisory target for reference rendering.
type DailyIndexSeries struct {
	Month  MonthKey
	Metric Metric
	Target decimal.Decimal
	Points []DailyIndexPoint
}

// DailyIndex computes the per-day MO/UH series for a month and metric.
// Headcount per day follows the same rules as the rollup: extras count the
// full crew size on each spanned day; clt contributes the sector-summed
// active headcount on every day of the month.
func DailyIndex(ds Dataset, month MonthKey, metric Metric, filteredSectors []string) (DailyIndexSeries, error) {
	switch metric {
	case MetricExtras, MetricClt, MetricTotal:
	default:
		return DailyIndexSeries{}, ErrUnknownMetric
	}

	cfg := ds.ConfigFor(month)
	out := DailyIndexSeries{Month: month, Metric: metric, Target: targetFor(cfg, metric)}

	daysInMonth := month.DaysInMonth()
	if daysInMonth == 0 {
		return out, nil
	}
	year, m, _ := month.Parse()
	sectors := selectSectors(ds.Sectors, filteredSectors)

	// CLT headcount is flat across the month: summed active headcount.
	var cltHead decimal.Decimal
	if metric == MetricClt || metric == MetricTotal {
		for _, sector := range sectors {
			if stat, ok := ds.ManualStatFor(sector.ID, month); ok {
				active := stat.ActiveRealQty()
				if active < 0 {
					active = 0
				}
				cltHead = cltHead.Add(decimal.NewFromInt(int64(active)))
			} else {
				qty, _ := approvedTotals(ds, sector.ID, month)
				cltHead = cltHead.Add(qty)
			}
		}
	}

	inSelection := func(name string) bool {
		sector, ok := ds.SectorByName(name)
		if !ok {
			return false
		}
		if len(filteredSectors) == 0 {
			return true
		}
		for _, id := range filteredSectors {
			if id == sector.ID {
				return true
			}
		}
		return false
	}

	for day := 1; day <= daysInMonth; day++ {
		d := dayTime(year, m, day)
		head := decimal.Zero

		if metric == MetricExtras || metric == MetricTotal {
			for _, r := range ds.Requests {
				if r.Status != StatusApproved || !inSelection(r.Sector) {
					continue
				}
				start, end := r.Span()
				if SpanContains(start, end, d) {
					head = head.Add(decimal.NewFromInt(int64(r.ExtrasQty)))
				}
			}
		}
		if metric == MetricClt || metric == MetricTotal {
			head = head.Add(cltHead)
		}

		uh := ds.OccupancyOn(month.Day(day))
		out.Points = append(out.Points, DailyIndexPoint{
			Date:      month.Day(day),
			Headcount: head,
			Occupancy: uh,
			Index:     SafeIndex(head, uh),
		})
	}

	return out, nil
}

func targetFor(cfg EffectiveConfig, metric Metric) decimal.Decimal {
	switch metric {
	case MetricExtras:
		return cfg.MoTargetExtra
	case MetricClt:
		return cfg.MoTargetClt
	case MetricTotal:
		return cfg.MoTargetTotal
	default:
		return cfg.MoTarget
	}
}
