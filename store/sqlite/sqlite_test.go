/*
sqlite_test.go - Repository tests against an in-memory database

Tests for:
- Request lifecycle (save, get, status transition, delete)
- Not-found reporting on lookups and deletes
- Budget and monthly config upserts
- Lot replace-on-save semantics
- Manual stat upsert-merge (partial patch, no-op suppression)
- Occupancy total recomputation
- Dataset assembly
*/
package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harborview/staffing-engine/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testRequest(id string) engine.Request {
	return engine.Request{
		ID:             id,
		Sector:         "A&B",
		Reason:         engine.ReasonOccupancy,
		Type:           engine.TypeDailyRate,
		DateEvent:      time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC),
		DaysQty:        2,
		ExtrasQty:      3,
		FunctionRole:   "waiter",
		Shift:          "night",
		TimeIn:         "18:00",
		TimeOut:        "02:00",
		Justification:  "banquet coverage",
		OccupancyRate:  dec("82.5"),
		Status:         engine.StatusPending,
		CreatedAt:      time.Date(2023, 10, 1, 9, 30, 0, 0, time.UTC),
		TotalValue:     dec("720"),
		RequestorEmail: "chef@example.com",
	}
}

func TestRequestLifecycle(t *testing.T) {
	// GIVEN: A stored pending request
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRequest(ctx, testRequest("req-1")); err != nil {
		t.Fatalf("Failed to save request: %v", err)
	}

	// WHEN: Reading it back
	got, err := store.GetRequest(ctx, "req-1")
	if err != nil {
		t.Fatalf("Failed to get request: %v", err)
	}

	// THEN: All fields round-trip
	if got.Sector != "A&B" || got.ExtrasQty != 3 || got.DaysQty != 2 {
		t.Errorf("Request fields did not round-trip: %+v", got)
	}
	if !got.TotalValue.Equal(dec("720")) {
		t.Errorf("Expected total value 720, got %s", got.TotalValue)
	}
	if !got.DateEvent.Equal(time.Date(2023, 10, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected event date: %v", got.DateEvent)
	}
	if got.SpecialRate != nil {
		t.Errorf("Expected nil special rate, got %s", got.SpecialRate)
	}

	// WHEN: Approving it
	if err := store.UpdateRequestStatus(ctx, "req-1", engine.StatusApproved); err != nil {
		t.Fatalf("Failed to approve request: %v", err)
	}
	got, _ = store.GetRequest(ctx, "req-1")
	if got.Status != engine.StatusApproved {
		t.Errorf("Expected approved status, got %s", got.Status)
	}

	// WHEN: Deleting it
	if err := store.DeleteRequest(ctx, "req-1"); err != nil {
		t.Fatalf("Failed to delete request: %v", err)
	}

	// THEN: Further lookups and deletes report not-found
	if _, err := store.GetRequest(ctx, "req-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteRequest(ctx, "req-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestRequestSpecialRateRoundTrip(t *testing.T) {
	// GIVEN: A request with a special rate
	store := newTestStore(t)
	ctx := context.Background()

	r := testRequest("req-rate")
	rate := dec("25.50")
	r.SpecialRate = &rate
	if err := store.SaveRequest(ctx, r); err != nil {
		t.Fatalf("Failed to save request: %v", err)
	}

	// THEN: The rate survives as an exact decimal
	got, err := store.GetRequest(ctx, "req-rate")
	if err != nil {
		t.Fatalf("Failed to get request: %v", err)
	}
	if got.SpecialRate == nil || !got.SpecialRate.Equal(dec("25.50")) {
		t.Errorf("Special rate did not round-trip: %v", got.SpecialRate)
	}
}

func TestListRequestsByMonth_SpanCrossesIn(t *testing.T) {
	// GIVEN: A request inside October, a 120-day span starting in July that
	// reaches into October, and a short September span that does not
	store := newTestStore(t)
	ctx := context.Background()

	inMonth := testRequest("req-oct")
	if err := store.SaveRequest(ctx, inMonth); err != nil {
		t.Fatalf("Failed to save request: %v", err)
	}
	long := testRequest("req-long")
	long.DateEvent = time.Date(2023, 7, 20, 0, 0, 0, 0, time.UTC)
	long.DaysQty = 120
	if err := store.SaveRequest(ctx, long); err != nil {
		t.Fatalf("Failed to save request: %v", err)
	}
	short := testRequest("req-sep")
	short.DateEvent = time.Date(2023, 9, 5, 0, 0, 0, 0, time.UTC)
	short.DaysQty = 2
	if err := store.SaveRequest(ctx, short); err != nil {
		t.Fatalf("Failed to save request: %v", err)
	}

	// WHEN: Listing October
	got, err := store.ListRequestsByMonth(ctx, engine.MonthKey("2023-10"))
	if err != nil {
		t.Fatalf("Failed to list requests by month: %v", err)
	}

	// THEN: The long span is included, the September one is not
	ids := make(map[string]bool, len(got))
	for _, r := range got {
		ids[r.ID] = true
	}
	if len(got) != 2 || !ids["req-oct"] || !ids["req-long"] {
		t.Errorf("Expected req-oct and req-long, got %v", ids)
	}
}

func TestUpdateRequestStatus_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateRequestStatus(context.Background(), "missing", engine.StatusApproved)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSectorUpsert(t *testing.T) {
	// GIVEN: A saved sector
	store := newTestStore(t)
	ctx := context.Background()

	sec := engine.Sector{ID: "sec-1", Name: "Governance", Type: engine.SectorSupport}
	if err := store.SaveSector(ctx, sec); err != nil {
		t.Fatalf("Failed to save sector: %v", err)
	}

	// WHEN: Saving again with a new name
	sec.Name = "Housekeeping"
	sec.Type = engine.SectorOperational
	if err := store.SaveSector(ctx, sec); err != nil {
		t.Fatalf("Failed to update sector: %v", err)
	}

	// THEN: One row, updated in place
	sectors, err := store.ListSectors(ctx)
	if err != nil {
		t.Fatalf("Failed to list sectors: %v", err)
	}
	if len(sectors) != 1 {
		t.Fatalf("Expected 1 sector, got %d", len(sectors))
	}
	if sectors[0].Name != "Housekeeping" || sectors[0].Type != engine.SectorOperational {
		t.Errorf("Sector not updated: %+v", sectors[0])
	}
}

func TestBudgetUpsert(t *testing.T) {
	// GIVEN: A derived budget
	store := newTestStore(t)
	ctx := context.Background()

	b := engine.MonthlyBudget{
		SectorID:            "sec-1",
		Month:               engine.MonthKey("2023-10"),
		BudgetQty:           220,
		BudgetValue:         dec("35200"),
		HourRate:            dec("20"),
		WorkHoursPerDay:     8,
		WorkingDaysPerMonth: 22,
		ExtraQtyPerDay:      dec("10"),
		CltBudgetQty:        12,
		CltBudgetValue:      dec("40000"),
	}
	if err := store.SaveBudget(ctx, b); err != nil {
		t.Fatalf("Failed to save budget: %v", err)
	}

	// WHEN: Saving again with a changed value
	b.BudgetValue = dec("36000")
	if err := store.SaveBudget(ctx, b); err != nil {
		t.Fatalf("Failed to update budget: %v", err)
	}

	// THEN: One row per (sector, month), latest value wins
	budgets, err := store.ListBudgetsByMonth(ctx, engine.MonthKey("2023-10"))
	if err != nil {
		t.Fatalf("Failed to list budgets: %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("Expected 1 budget, got %d", len(budgets))
	}
	if !budgets[0].BudgetValue.Equal(dec("36000")) {
		t.Errorf("Expected 36000, got %s", budgets[0].BudgetValue)
	}
	if budgets[0].WorkingDaysPerMonth != 22 || budgets[0].CltBudgetQty != 12 {
		t.Errorf("Budget fields did not round-trip: %+v", budgets[0])
	}
}

func TestReplaceLots(t *testing.T) {
	// GIVEN: A month with a stored lot configuration
	store := newTestStore(t)
	ctx := context.Background()
	month := engine.MonthKey("2023-10")

	first := []engine.Lot{
		{ID: 1, Name: "Lote 1", StartDay: 1, EndDay: 10},
		{ID: 2, Name: "Lote 2", StartDay: 11, EndDay: 20},
		{ID: 3, Name: "Lote 3", StartDay: 21, EndDay: 31},
	}
	if err := store.ReplaceLots(ctx, month, first); err != nil {
		t.Fatalf("Failed to save lots: %v", err)
	}

	// WHEN: Replacing with a two-lot split
	second := []engine.Lot{
		{ID: 1, Name: "First half", StartDay: 1, EndDay: 15},
		{ID: 2, Name: "Second half", StartDay: 16, EndDay: 31},
	}
	if err := store.ReplaceLots(ctx, month, second); err != nil {
		t.Fatalf("Failed to replace lots: %v", err)
	}

	// THEN: Only the new configuration remains, in position order
	lots, err := store.GetLots(ctx, month)
	if err != nil {
		t.Fatalf("Failed to get lots: %v", err)
	}
	if len(lots) != 2 {
		t.Fatalf("Expected 2 lots after replace, got %d", len(lots))
	}
	if lots[0].Name != "First half" || lots[1].EndDay != 31 {
		t.Errorf("Unexpected lots: %+v", lots)
	}

	// AND: Other months are untouched
	other, err := store.GetLots(ctx, engine.MonthKey("2023-11"))
	if err != nil {
		t.Fatalf("Failed to get lots: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no lots for other month, got %d", len(other))
	}
}

func TestUpsertManualStat_PartialPatch(t *testing.T) {
	// GIVEN: A stored stat with one lot key populated
	store := newTestStore(t)
	ctx := context.Background()
	month := engine.MonthKey("2023-10")

	qty := 12
	val := dec("31000")
	_, err := store.UpsertManualStat(ctx, "sec-1", month, engine.ManualStatPatch{
		RealQty:    &qty,
		RealValue:  &val,
		LoteWfoQty: map[int]decimal.Decimal{1: dec("5")},
	})
	if err != nil {
		t.Fatalf("Failed to upsert stat: %v", err)
	}

	// WHEN: Patching only lot 2 of the same map
	merged, err := store.UpsertManualStat(ctx, "sec-1", month, engine.ManualStatPatch{
		LoteWfoQty: map[int]decimal.Decimal{2: dec("7")},
	})
	if err != nil {
		t.Fatalf("Failed to patch stat: %v", err)
	}

	// THEN: Lot 1 and the scalars survive the patch
	if merged.RealQty != 12 || !merged.RealValue.Equal(dec("31000")) {
		t.Errorf("Scalars clobbered by lot patch: %+v", merged)
	}
	if !merged.LoteWfoQty[1].Equal(dec("5")) || !merged.LoteWfoQty[2].Equal(dec("7")) {
		t.Errorf("Lot keys not merged: %v", merged.LoteWfoQty)
	}

	// AND: The merged state is what reads return
	got, err := store.GetManualStat(ctx, "sec-1", month)
	if err != nil {
		t.Fatalf("Failed to get stat: %v", err)
	}
	if len(got.LoteWfoQty) != 2 {
		t.Errorf("Expected 2 lot keys persisted, got %v", got.LoteWfoQty)
	}
}

func TestUpsertManualStat_NoopPatchSkipsWrite(t *testing.T) {
	// GIVEN: A stored stat
	store := newTestStore(t)
	ctx := context.Background()
	month := engine.MonthKey("2023-10")

	qty := 10
	if _, err := store.UpsertManualStat(ctx, "sec-1", month, engine.ManualStatPatch{RealQty: &qty}); err != nil {
		t.Fatalf("Failed to upsert stat: %v", err)
	}

	// WHEN: Re-sending the same value
	merged, err := store.UpsertManualStat(ctx, "sec-1", month, engine.ManualStatPatch{RealQty: &qty})
	if err != nil {
		t.Fatalf("No-op patch failed: %v", err)
	}

	// THEN: The merged result still reflects the stored state
	if merged.RealQty != 10 {
		t.Errorf("Expected qty 10, got %d", merged.RealQty)
	}
}

func TestDeleteManualStat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	month := engine.MonthKey("2023-10")

	qty := 4
	if _, err := store.UpsertManualStat(ctx, "sec-1", month, engine.ManualStatPatch{RealQty: &qty}); err != nil {
		t.Fatalf("Failed to upsert stat: %v", err)
	}
	if err := store.DeleteManualStat(ctx, "sec-1", month); err != nil {
		t.Fatalf("Failed to delete stat: %v", err)
	}
	if _, err := store.GetManualStat(ctx, "sec-1", month); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestUpsertOccupancy_RecomputesTotal(t *testing.T) {
	// GIVEN: An occupancy entry with a stale total
	store := newTestStore(t)
	ctx := context.Background()

	rec := engine.OccupancyRecord{
		Date:    engine.DateKey("2023-10-15"),
		Total:   999, // ignored
		Lazer:   120,
		Eventos: 80,
	}
	if err := store.UpsertOccupancy(ctx, rec); err != nil {
		t.Fatalf("Failed to upsert occupancy: %v", err)
	}

	// THEN: Total is recomputed as lazer + eventos
	records, err := store.ListOccupancy(ctx)
	if err != nil {
		t.Fatalf("Failed to list occupancy: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Total != 200 {
		t.Errorf("Expected total 200, got %d", records[0].Total)
	}

	// AND: Malformed dates are rejected
	bad := engine.OccupancyRecord{Date: engine.DateKey("15/10/2023"), Lazer: 1}
	if err := store.UpsertOccupancy(ctx, bad); err == nil {
		t.Error("Expected error for malformed date")
	}
}

func TestSystemConfigSingleton(t *testing.T) {
	// GIVEN: A fresh store
	store := newTestStore(t)
	ctx := context.Background()

	// THEN: The singleton row exists with zero values
	cfg, err := store.GetSystemConfig(ctx)
	if err != nil {
		t.Fatalf("Failed to get system config: %v", err)
	}
	if !cfg.StandardHourRate.IsZero() || cfg.IsFormLocked {
		t.Errorf("Expected zero-valued defaults, got %+v", cfg)
	}

	// WHEN: Saving new values
	cfg.StandardHourRate = dec("15")
	cfg.TaxRate = dec("35")
	cfg.IsFormLocked = true
	if err := store.SaveSystemConfig(ctx, cfg); err != nil {
		t.Fatalf("Failed to save system config: %v", err)
	}

	// THEN: They persist
	got, err := store.GetSystemConfig(ctx)
	if err != nil {
		t.Fatalf("Failed to reload system config: %v", err)
	}
	if !got.StandardHourRate.Equal(dec("15")) || !got.TaxRate.Equal(dec("35")) || !got.IsFormLocked {
		t.Errorf("System config did not round-trip: %+v", got)
	}
}

func TestMonthlyConfigUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mc := engine.MonthlyAppConfig{
		Month:            engine.MonthKey("2023-10"),
		StandardHourRate: dec("18"),
		MoTargetExtra:    dec("0.012"),
	}
	if err := store.SaveMonthlyConfig(ctx, mc); err != nil {
		t.Fatalf("Failed to save monthly config: %v", err)
	}

	mc.MoTargetExtra = dec("0.015")
	if err := store.SaveMonthlyConfig(ctx, mc); err != nil {
		t.Fatalf("Failed to update monthly config: %v", err)
	}

	configs, err := store.ListMonthlyConfigs(ctx)
	if err != nil {
		t.Fatalf("Failed to list monthly configs: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("Expected 1 config, got %d", len(configs))
	}
	if !configs[0].MoTargetExtra.Equal(dec("0.015")) {
		t.Errorf("Expected target 0.015, got %s", configs[0].MoTargetExtra)
	}
}

func TestProfileByEmail(t *testing.T) {
	// GIVEN: A saved profile
	store := newTestStore(t)
	ctx := context.Background()

	p := Profile{
		ID:           "usr-1",
		Email:        "admin@example.com",
		Name:         "Admin",
		Role:         "admin",
		PasswordHash: "$2a$10$fakehashfortest",
	}
	if err := store.SaveProfile(ctx, p); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}

	// THEN: Lookup by email works, missing email reports not-found
	got, err := store.GetProfileByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("Failed to get profile: %v", err)
	}
	if got.Role != "admin" || got.PasswordHash != p.PasswordHash {
		t.Errorf("Profile did not round-trip: %+v", got)
	}
	if _, err := store.GetProfileByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLoadDataset(t *testing.T) {
	// GIVEN: A store with one entity of each kind
	store := newTestStore(t)
	ctx := context.Background()
	month := engine.MonthKey("2023-10")

	if err := store.SaveSector(ctx, engine.Sector{ID: "sec-1", Name: "A&B", Type: engine.SectorOperational}); err != nil {
		t.Fatalf("Failed to save sector: %v", err)
	}
	if err := store.SaveRequest(ctx, testRequest("req-1")); err != nil {
		t.Fatalf("Failed to save request: %v", err)
	}
	if err := store.SaveBudget(ctx, engine.MonthlyBudget{
		SectorID: "sec-1", Month: month, BudgetValue: dec("35200"), HourRate: dec("20"),
		WorkHoursPerDay: 8, WorkingDaysPerMonth: 22,
	}); err != nil {
		t.Fatalf("Failed to save budget: %v", err)
	}
	if err := store.ReplaceLots(ctx, month, engine.DefaultLots(month)); err != nil {
		t.Fatalf("Failed to save lots: %v", err)
	}
	qty := 9
	if _, err := store.UpsertManualStat(ctx, "sec-1", month, engine.ManualStatPatch{RealQty: &qty}); err != nil {
		t.Fatalf("Failed to upsert stat: %v", err)
	}
	if err := store.UpsertOccupancy(ctx, engine.OccupancyRecord{Date: engine.DateKey("2023-10-15"), Lazer: 100, Eventos: 50}); err != nil {
		t.Fatalf("Failed to upsert occupancy: %v", err)
	}
	if err := store.SaveMonthlyConfig(ctx, engine.MonthlyAppConfig{Month: month, StandardHourRate: dec("18")}); err != nil {
		t.Fatalf("Failed to save monthly config: %v", err)
	}

	// WHEN: Assembling the snapshot
	ds, err := store.LoadDataset(ctx)
	if err != nil {
		t.Fatalf("Failed to load dataset: %v", err)
	}

	// THEN: Every entity appears under its key
	if len(ds.Sectors) != 1 || len(ds.Requests) != 1 {
		t.Errorf("Expected 1 sector and 1 request, got %d/%d", len(ds.Sectors), len(ds.Requests))
	}
	if _, ok := ds.Budgets["sec-1"][month]; !ok {
		t.Error("Budget missing from dataset")
	}
	if len(ds.Lots[month]) != 3 {
		t.Errorf("Expected 3 lots, got %d", len(ds.Lots[month]))
	}
	if st, ok := ds.ManualStats["sec-1"][month]; !ok || st.RealQty != 9 {
		t.Errorf("Manual stat missing or wrong: %+v ok=%v", st, ok)
	}
	if ds.OccupancyOn(engine.DateKey("2023-10-15")) != 150 {
		t.Errorf("Expected occupancy 150, got %d", ds.OccupancyOn(engine.DateKey("2023-10-15")))
	}
	if mc, ok := ds.MonthlyConfigs[month]; !ok || !mc.StandardHourRate.Equal(dec("18")) {
		t.Error("Monthly config missing from dataset")
	}
}
