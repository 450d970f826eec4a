package engine_test

import (
	"testing"
	"time"

	"github.com/harborview/staffing-engine/engine"
)

// =============================================================================
// DAILY OCCUPANCY INDEX (MO/UH) TESTS
// =============================================================================

func TestDailyIndex_ExtrasSeries(t *testing.T) {
	// GIVEN: 200 UH on Oct 15, one approved single-day request with 2 extras
	// THEN: Oct 15 index = 2/200 = 0.010; other days 0
	ds := testDataset()
	ds.Occupancy["2023-10-15"] = engine.OccupancyRecord{Date: "2023-10-15", Total: 200, Lazer: 200}
	ds.Requests = []engine.Request{
		engine.Reprice(approvedRequest("req-1", "A&B", date(2023, time.October, 15), 1, 2, nil), ds),
	}

	series, err := engine.DailyIndex(ds, oct23, engine.MetricExtras, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(series.Points) != 31 {
		t.Fatalf("expected 31 points, got %d", len(series.Points))
	}
	p := series.Points[14] // Oct 15
	if p.Date != "2023-10-15" {
		t.Fatalf("expected point for Oct 15, got %s", p.Date)
	}
	if !p.Index.Equal(dec(0.01)) {
		t.Errorf("expected index 0.010, got %v", p.Index)
	}
	if !series.Points[0].Index.IsZero() {
		t.Errorf("days without requests should index 0, got %v", series.Points[0].Index)
	}
}

func TestDailyIndex_ZeroOccupancyNeverNaN(t *testing.T) {
	// Index must be 0 when occupancy is 0, even with headcount present.
	ds := testDataset()
	ds.Requests = []engine.Request{
		engine.Reprice(approvedRequest("req-1", "A&B", date(2023, time.October, 15), 31, 2, nil), ds),
	}

	series, err := engine.DailyIndex(ds, oct23, engine.MetricExtras, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range series.Points {
		if !p.Index.IsZero() {
			t.Errorf("%s: expected 0 index with zero occupancy, got %v", p.Date, p.Index)
		}
	}
}

func TestDailyIndex_CltUsesActiveHeadcount(t *testing.T) {
	// GIVEN: realQty 10, afastados 2, apprentices 1 -> active 7; 100 UH/day
	// THEN: every day's CLT index = 7/100 = 0.070
	ds := testDataset()
	fillOccupancy(&ds, oct23, 100)
	ds.ManualStats["sec-ab"] = map[engine.MonthKey]engine.ManualRealStat{
		oct23: {SectorID: "sec-ab", Month: oct23, RealQty: 10, AfastadosQty: 2, ApprenticesQty: 1},
	}

	series, err := engine.DailyIndex(ds, oct23, engine.MetricClt, []string{"sec-ab"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range series.Points {
		if !p.Index.Equal(dec(0.07)) {
			t.Errorf("%s: expected 0.070, got %v", p.Date, p.Index)
			break
		}
	}
}

func TestDailyIndex_TargetCarriedFromMonthlyConfig(t *testing.T) {
	ds := testDataset()
	ds.MonthlyConfigs[oct23] = engine.MonthlyAppConfig{
		Month:         oct23,
		MoTargetExtra: dec(0.05),
		MoTargetClt:   dec(0.12),
	}

	extras, _ := engine.DailyIndex(ds, oct23, engine.MetricExtras, nil)
	clt, _ := engine.DailyIndex(ds, oct23, engine.MetricClt, nil)

	if !extras.Target.Equal(dec(0.05)) {
		t.Errorf("expected extras target 0.05, got %v", extras.Target)
	}
	if !clt.Target.Equal(dec(0.12)) {
		t.Errorf("expected clt target 0.12, got %v", clt.Target)
	}
}

func TestDailyIndex_RoundingToThreeDecimals(t *testing.T) {
	// 2 heads / 300 UH = 0.00666... -> 0.007
	ds := testDataset()
	ds.Occupancy["2023-10-15"] = engine.OccupancyRecord{Date: "2023-10-15", Total: 300, Lazer: 300}
	ds.Requests = []engine.Request{
		engine.Reprice(approvedRequest("req-1", "A&B", date(2023, time.October, 15), 1, 2, nil), ds),
	}

	series, err := engine.DailyIndex(ds, oct23, engine.MetricExtras, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !series.Points[14].Index.Equal(dec(0.007)) {
		t.Errorf("expected 0.007, got %v", series.Points[14].Index)
	}
}
