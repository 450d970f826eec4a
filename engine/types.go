/*
Package engine provides the core labor-budget aggregation engine.

PURPOSE:
  This package contains the pure domain types and algorithms behind the
  workforce dashboard: bucketing extra-staff requests into calendar days and
  configurable month sub-periods ("lots"), rolling up man-day counts and
  payroll cost per sector, normalizing headcount against hotel occupancy,
  merging manual corrections over computed values, and deriving budgeted
  headcount from monetary budgets.

KEY CONCEPTS IN THIS FILE (types.go):
  - Sector: A department, Operational or Support
  - Request: An extra-staff request spanning one or more days
  - MonthlyBudget: Budgeted value/headcount per sector and month
  - Lot: An admin-configured sub-range of days within a month
  - ManualRealStat: Admin-entered actuals that supersede computed values
  - OccupancyRecord: Occupied room-nights per day (the index denominator)
  - Dataset: The full in-memory snapshot every engine call reads from

DESIGN PRINCIPLES:
  1. Purity: The engine never touches a store; it reads a Dataset snapshot
     and returns derived structures. Persistence lives elsewhere.
  2. Precision: Uses decimal.Decimal for money and derived quantities to
     avoid floating-point drift in rollups.
  3. Recompute-from-source: Aggregates are always recomputed in full from
     the snapshot; there is no incremental cache to invalidate.

USAGE:
  ds := engine.Dataset{Sectors: sectors, Requests: reqs, ...}
  matrix, err := engine.Rollup(ds, month, engine.MetricExtras, nil)

SEE ALSO:
  - bucketing.go: Day-to-lot and day-to-sector bucketing
  - rollup.go: The sector x lot matrix
  - index.go: Occupancy index (MO/UH)
  - override.go: Manual stat merge semantics
  - budget.go: Budget derivation
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SECTOR
// =============================================================================

type SectorType string

const (
	SectorOperational SectorType = "operational"
	SectorSupport     SectorType = "support"
)

// Sector is a department. Requests reference sectors by display name at the
// wire level; rollups resolve names through the Dataset's sector list.
type Sector struct {
	ID   string
	Name string
	Type SectorType
}

// =============================================================================
// REQUEST - Extra-staff request
// =============================================================================

type RequestReason string

const (
	ReasonIdealStaffing RequestReason = "ideal_staffing"
	ReasonOccupancy     RequestReason = "occupancy"
)

type RequestType string

const (
	TypeDailyRate RequestType = "daily_rate"
	TypePackage   RequestType = "package"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Request covers the inclusive span [DateEvent, DateEvent+DaysQty-1].
// TotalValue is derived and must be recomputed whenever ExtrasQty, DaysQty,
// SpecialRate or DateEvent changes; see ComputeTotalValue.
type Request struct {
	ID             string
	Sector         string // sector display name
	Reason         RequestReason
	Type           RequestType
	DateEvent      time.Time
	DaysQty        int
	SpecialRate    *decimal.Decimal // overrides the 8h x standard-rate day value
	ExtrasQty      int
	FunctionRole   string
	Shift          string
	TimeIn         string
	TimeOut        string
	Justification  string
	OccupancyRate  decimal.Decimal // informational, percent at request time
	Status         RequestStatus
	CreatedAt      time.Time
	TotalValue     decimal.Decimal
	RequestorEmail string
}

// Span returns the inclusive first and last day the request covers.
func (r Request) Span() (time.Time, time.Time) {
	return RequestSpan(r.DateEvent, r.DaysQty)
}

// =============================================================================
// MONTHLY BUDGET
// =============================================================================

// MonthlyBudget is keyed by (SectorID, Month). BudgetQty and ExtraQtyPerDay
// are derived from the monetary inputs; see Derive in budget.go.
type MonthlyBudget struct {
	SectorID            string
	Month               MonthKey
	BudgetQty           int
	BudgetValue         decimal.Decimal
	HourRate            decimal.Decimal
	WorkHoursPerDay     int
	WorkingDaysPerMonth int
	ExtraQtyPerDay      decimal.Decimal
	CltBudgetQty        int
	CltBudgetValue      decimal.Decimal
}

const (
	DefaultWorkHoursPerDay     = 8
	DefaultWorkingDaysPerMonth = 22
)

// =============================================================================
// LOT - Sub-period of a month
// =============================================================================

// Lot is an admin-configured day range within a month. Ranges are expected
// to partition the month but this is validated, not enforced; bucketing
// assigns a day to the first lot whose range contains it.
type Lot struct {
	ID       int
	Name     string
	StartDay int
	EndDay   int
}

// Contains reports whether the day of month falls in [StartDay, EndDay].
func (l Lot) Contains(day int) bool {
	return day >= l.StartDay && day <= l.EndDay
}

// DaysIn returns how many days of the given month fall in the lot,
// clamping EndDay to the month length.
func (l Lot) DaysIn(month MonthKey) int {
	end := l.EndDay
	if last := month.DaysInMonth(); end > last {
		end = last
	}
	if end < l.StartDay {
		return 0
	}
	return end - l.StartDay + 1
}

// DefaultLots seeds a month with the standard three lots: 1-10, 11-20,
// and 21 through end of month.
func DefaultLots(month MonthKey) []Lot {
	return []Lot{
		{ID: 1, Name: "Lote 1", StartDay: 1, EndDay: 10},
		{ID: 2, Name: "Lote 2", StartDay: 11, EndDay: 20},
		{ID: 3, Name: "Lote 3", StartDay: 21, EndDay: month.DaysInMonth()},
	}
}

// =============================================================================
// MANUAL REAL STAT - Admin-entered actuals
// =============================================================================

// ManualRealStat is keyed by (SectorID, Month). When present, RealQty and
// RealValue supersede the values computed from approved requests for that
// sector/month. Per-lot maps are keyed by lot ID and patched key-by-key;
// see MergeManualRealStat.
type ManualRealStat struct {
	SectorID       string
	Month          MonthKey
	RealQty        int
	RealValue      decimal.Decimal
	AfastadosQty   int // on leave
	ApprenticesQty int
	WfoQty         int

	LoteWfoQty           map[int]decimal.Decimal
	LoteWfoValue         map[int]decimal.Decimal
	LoteIntermitentesQty map[int]decimal.Decimal
	LoteIntermitentesVal map[int]decimal.Decimal
}

// ActiveRealQty is the working headcount after leave and apprentices.
// The stored RealQty is never clamped; callers that need a non-negative
// headcount (the CLT rollup) clamp at the usage site.
func (s ManualRealStat) ActiveRealQty() int {
	return s.RealQty - s.AfastadosQty - s.ApprenticesQty
}

// =============================================================================
// OCCUPANCY
// =============================================================================

// OccupancyRecord holds occupied room-nights for one day. Total is kept as
// lazer+eventos at entry time; the engine reads Total only.
type OccupancyRecord struct {
	Date    DateKey
	Total   int
	Lazer   int
	Eventos int
}

// =============================================================================
// CONFIG
// =============================================================================

// SystemConfig is the global singleton configuration.
type SystemConfig struct {
	StandardHourRate decimal.Decimal
	TaxRate          decimal.Decimal // percent, e.g. 35 for 35%
	IsFormLocked     bool
}

// MonthlyAppConfig overrides SystemConfig for one month. Zero-valued fields
// fall back to the system values; targets are advisory reference lines.
type MonthlyAppConfig struct {
	Month            MonthKey
	StandardHourRate decimal.Decimal
	TaxRate          decimal.Decimal
	MoTarget         decimal.Decimal
	MoTargetExtra    decimal.Decimal
	MoTargetClt      decimal.Decimal
	MoTargetTotal    decimal.Decimal
}

// EffectiveConfig is the resolved per-month view of SystemConfig plus any
// MonthlyAppConfig override.
type EffectiveConfig struct {
	StandardHourRate decimal.Decimal
	TaxRate          decimal.Decimal
	MoTarget         decimal.Decimal
	MoTargetExtra    decimal.Decimal
	MoTargetClt      decimal.Decimal
	MoTargetTotal    decimal.Decimal
}

// =============================================================================
// SPECIAL ROLE - Named pay rates
// =============================================================================

type SpecialRole struct {
	ID   string
	Name string
	Rate decimal.Decimal
}

// =============================================================================
// DATASET - The snapshot every engine call reads
// =============================================================================

// Dataset is the full in-memory snapshot the engine aggregates over. It is
// plain data: how it was fetched or persisted is the store layer's concern.
type Dataset struct {
	Sectors        []Sector
	Requests       []Request
	Budgets        map[string]map[MonthKey]MonthlyBudget // sectorID -> month
	Lots           map[MonthKey][]Lot
	ManualStats    map[string]map[MonthKey]ManualRealStat // sectorID -> month
	Occupancy      map[DateKey]OccupancyRecord
	System         SystemConfig
	MonthlyConfigs map[MonthKey]MonthlyAppConfig
}

// ConfigFor resolves the effective configuration for a month: the monthly
// override where set, the system value otherwise.
func (ds Dataset) ConfigFor(month MonthKey) EffectiveConfig {
	cfg := EffectiveConfig{
		StandardHourRate: ds.System.StandardHourRate,
		TaxRate:          ds.System.TaxRate,
	}
	mc, ok := ds.MonthlyConfigs[month]
	if !ok {
		return cfg
	}
	if !mc.StandardHourRate.IsZero() {
		cfg.StandardHourRate = mc.StandardHourRate
	}
	if !mc.TaxRate.IsZero() {
		cfg.TaxRate = mc.TaxRate
	}
	cfg.MoTarget = mc.MoTarget
	cfg.MoTargetExtra = mc.MoTargetExtra
	cfg.MoTargetClt = mc.MoTargetClt
	cfg.MoTargetTotal = mc.MoTargetTotal
	return cfg
}

// LotsFor returns the month's configured lots, or the default seed when the
// month has none.
func (ds Dataset) LotsFor(month MonthKey) []Lot {
	if lots, ok := ds.Lots[month]; ok && len(lots) > 0 {
		return lots
	}
	return DefaultLots(month)
}

// BudgetFor returns the sector/month budget, or a zero-valued budget with
// the standard defaults when none is recorded.
func (ds Dataset) BudgetFor(sectorID string, month MonthKey) MonthlyBudget {
	if byMonth, ok := ds.Budgets[sectorID]; ok {
		if b, ok := byMonth[month]; ok {
			return b
		}
	}
	return MonthlyBudget{
		SectorID:            sectorID,
		Month:               month,
		WorkHoursPerDay:     DefaultWorkHoursPerDay,
		WorkingDaysPerMonth: DefaultWorkingDaysPerMonth,
	}
}

// ManualStatFor returns the sector/month manual stat and whether one exists.
func (ds Dataset) ManualStatFor(sectorID string, month MonthKey) (ManualRealStat, bool) {
	if byMonth, ok := ds.ManualStats[sectorID]; ok {
		if s, ok := byMonth[month]; ok {
			return s, true
		}
	}
	return ManualRealStat{}, false
}

// SectorByName resolves a sector by display name. Requests carry names, not
// IDs, so a rename silently orphans history; rollups surface unmatched names
// instead of dropping them silently.
func (ds Dataset) SectorByName(name string) (Sector, bool) {
	for _, s := range ds.Sectors {
		if s.Name == name {
			return s, true
		}
	}
	return Sector{}, false
}

// OccupancyOn returns occupied room-nights for a day, zero when unrecorded.
func (ds Dataset) OccupancyOn(day DateKey) int {
	return ds.Occupancy[day].Total
}
