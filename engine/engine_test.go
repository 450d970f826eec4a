package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harborview/staffing-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func decPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testDataset builds the baseline scenario: sector "A&B", October 2023 with
// default lots, standard hour rate 15, no tax.
func testDataset() engine.Dataset {
	return engine.Dataset{
		Sectors: []engine.Sector{
			{ID: "sec-ab", Name: "A&B", Type: engine.SectorOperational},
			{ID: "sec-gov", Name: "Governance", Type: engine.SectorSupport},
		},
		Budgets:        map[string]map[engine.MonthKey]engine.MonthlyBudget{},
		Lots:           map[engine.MonthKey][]engine.Lot{},
		ManualStats:    map[string]map[engine.MonthKey]engine.ManualRealStat{},
		Occupancy:      map[engine.DateKey]engine.OccupancyRecord{},
		System:         engine.SystemConfig{StandardHourRate: dec(15)},
		MonthlyConfigs: map[engine.MonthKey]engine.MonthlyAppConfig{},
	}
}

func approvedRequest(id, sector string, start time.Time, daysQty, extrasQty int, specialRate *decimal.Decimal) engine.Request {
	return engine.Request{
		ID:          id,
		Sector:      sector,
		Reason:      engine.ReasonOccupancy,
		Type:        engine.TypeDailyRate,
		DateEvent:   start,
		DaysQty:     daysQty,
		ExtrasQty:   extrasQty,
		SpecialRate: specialRate,
		Status:      engine.StatusApproved,
	}
}

const oct23 = engine.MonthKey("2023-10")

// =============================================================================
// MONTH / DATE KEY TESTS
// =============================================================================

func TestMonthKey_DaysInMonth(t *testing.T) {
	cases := map[engine.MonthKey]int{
		"2023-10": 31,
		"2023-02": 28,
		"2024-02": 29,
		"2023-04": 30,
		"bogus":   0,
	}
	for mk, want := range cases {
		if got := mk.DaysInMonth(); got != want {
			t.Errorf("%s: expected %d days, got %d", mk, want, got)
		}
	}
}

func TestMonthKey_Valid(t *testing.T) {
	// Valid keys are exactly "YYYY-MM"; a full date or trailing junk must be
	// rejected, or month-keyed rows would fragment across lookalike keys.
	cases := map[engine.MonthKey]bool{
		"2023-10":    true,
		"2024-02":    true,
		"2023-10-05": false,
		"2023-10x":   false,
		"2023-13":    false,
		"2023-0":     false,
		"202310":     false,
		"bogus":      false,
		"":           false,
	}
	for mk, want := range cases {
		if got := mk.Valid(); got != want {
			t.Errorf("%q: expected valid=%v, got %v", mk, want, got)
		}
	}
}

func TestDateKey_MonthKey(t *testing.T) {
	if got := engine.DateKey("2023-10-15").MonthKey(); got != oct23 {
		t.Errorf("expected 2023-10, got %s", got)
	}
}

func TestRequestSpan_ZeroDaysTreatedAsOne(t *testing.T) {
	start, end := engine.RequestSpan(date(2023, time.October, 15), 0)
	if !start.Equal(end) {
		t.Errorf("zero-day span should collapse to one day, got [%v, %v]", start, end)
	}
}

// =============================================================================
// TOTAL VALUE TESTS
// =============================================================================

func TestComputeTotalValue_StandardRate(t *testing.T) {
	// GIVEN: 2 extras for 1 day, no special rate, standard hour rate 15
	// THEN: totalValue = 2 x 1 x 8 x 15 = 240
	ds := testDataset()
	r := approvedRequest("req-1", "A&B", date(2023, time.October, 15), 1, 2, nil)

	r = engine.Reprice(r, ds)

	if !r.TotalValue.Equal(dec(240)) {
		t.Errorf("expected 240, got %v", r.TotalValue)
	}
}

func TestComputeTotalValue_SpecialRate(t *testing.T) {
	// GIVEN: 1 extra for 5 days at special rate 25.50
	// THEN: totalValue = 1 x 5 x 25.50 = 127.50
	ds := testDataset()
	r := approvedRequest("req-2", "A&B", date(2023, time.October, 20), 5, 1, decPtr(25.50))

	r = engine.Reprice(r, ds)

	if !r.TotalValue.Equal(dec(127.50)) {
		t.Errorf("expected 127.50, got %v", r.TotalValue)
	}
}

func TestComputeTotalValue_UsesMonthOverrideRate(t *testing.T) {
	// GIVEN: A monthly config overriding the hour rate to 20
	// WHEN: Repricing a request dated inside that month
	// THEN: The override rate applies, not the system rate
	ds := testDataset()
	ds.MonthlyConfigs[oct23] = engine.MonthlyAppConfig{Month: oct23, StandardHourRate: dec(20)}
	r := approvedRequest("req-3", "A&B", date(2023, time.October, 5), 1, 1, nil)

	r = engine.Reprice(r, ds)

	if !r.TotalValue.Equal(dec(160)) { // 1 x 1 x 8 x 20
		t.Errorf("expected 160, got %v", r.TotalValue)
	}
}

func TestValidateRequest_RejectsNonPositiveQuantities(t *testing.T) {
	r := approvedRequest("req-4", "A&B", date(2023, time.October, 1), 0, 1, nil)
	if err := engine.ValidateRequest(r); err == nil {
		t.Error("expected error for days_qty 0")
	}
	r = approvedRequest("req-5", "A&B", date(2023, time.October, 1), 1, 0, nil)
	if err := engine.ValidateRequest(r); err == nil {
		t.Error("expected error for extras_qty 0")
	}
}
