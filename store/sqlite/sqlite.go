/*
Package sqlite provides the SQLite-backed repositories for the dashboard.

PURPOSE:
  Implements one repository surface per entity (sectors, requests, budgets,
  lots, manual stats, occupancy, configs, special roles, profiles) over a
  single SQLite database. The aggregation engine never sees this package:
  it reads an engine.Dataset snapshot assembled by LoadDataset.

KEY TABLES:
  sectors             Departments, referenced by name from requests
  requests            Extra-staff requests with approval lifecycle
  monthly_budgets     Composite key (sector_id, month)
  monthly_lotes       Lot configuration per month, replace-on-save
  manual_real_stats   Composite key (sector_id, month), upsert-merge
  occupancy_data      Keyed by date (YYYY-MM-DD)
  system_config       Singleton row (id = 1)
  monthly_app_configs Keyed by month
  special_roles       Named pay rates
  profiles            User directory (auth handled in the auth package)

VALUE ENCODING:
  Monetary values and rates are stored as decimal strings, never floats.
  The per-lot maps of manual stats are stored as JSON objects keyed by
  lot ID.

UPSERT-MERGE:
  manual_real_stats writes go through engine.MergeManualRealStat: the
  caller sends a partial patch, the store reads the current row, merges
  key-by-key and writes the result inside one database transaction, so
  concurrent edits of different lot keys cannot clobber each other.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL the database's own
  concurrency control would take over; the repository surfaces keep that
  port mechanical.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/staffing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ds, err := store.LoadDataset(ctx)

SEE ALSO:
  - engine: Dataset assembly and merge semantics
  - api: Handlers calling these repositories
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/harborview/staffing-engine/engine"
)

// ErrNotFound is returned when a lookup or delete matches no row.
var ErrNotFound = errors.New("not found")

// Store implements all repositories over one SQLite database.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sectors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		sector TEXT NOT NULL,
		reason TEXT NOT NULL,
		req_type TEXT NOT NULL,
		date_event TEXT NOT NULL,
		days_qty INTEGER NOT NULL,
		special_rate TEXT,
		extras_qty INTEGER NOT NULL,
		function_role TEXT,
		shift TEXT,
		time_in TEXT,
		time_out TEXT,
		justification TEXT,
		occupancy_rate TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		total_value TEXT NOT NULL DEFAULT '0',
		requestor_email TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_date_event ON requests(date_event);
	CREATE INDEX IF NOT EXISTS idx_requests_sector ON requests(sector);

	CREATE TABLE IF NOT EXISTS monthly_budgets (
		sector_id TEXT NOT NULL,
		month TEXT NOT NULL,
		budget_qty INTEGER NOT NULL DEFAULT 0,
		budget_value TEXT NOT NULL DEFAULT '0',
		hour_rate TEXT NOT NULL DEFAULT '0',
		work_hours_per_day INTEGER NOT NULL DEFAULT 8,
		working_days_per_month INTEGER NOT NULL DEFAULT 22,
		extra_qty_per_day TEXT NOT NULL DEFAULT '0',
		clt_budget_qty INTEGER NOT NULL DEFAULT 0,
		clt_budget_value TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (sector_id, month)
	);

	CREATE TABLE IF NOT EXISTS monthly_lotes (
		month TEXT NOT NULL,
		lot_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		start_day INTEGER NOT NULL,
		end_day INTEGER NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (month, lot_id)
	);

	CREATE TABLE IF NOT EXISTS manual_real_stats (
		sector_id TEXT NOT NULL,
		month TEXT NOT NULL,
		real_qty INTEGER NOT NULL DEFAULT 0,
		real_value TEXT NOT NULL DEFAULT '0',
		afastados_qty INTEGER NOT NULL DEFAULT 0,
		apprentices_qty INTEGER NOT NULL DEFAULT 0,
		wfo_qty INTEGER NOT NULL DEFAULT 0,
		lote_wfo_qty_json TEXT,
		lote_wfo_value_json TEXT,
		lote_intermitentes_qty_json TEXT,
		lote_intermitentes_value_json TEXT,
		PRIMARY KEY (sector_id, month)
	);

	CREATE TABLE IF NOT EXISTS occupancy_data (
		date TEXT PRIMARY KEY,
		total INTEGER NOT NULL DEFAULT 0,
		lazer INTEGER NOT NULL DEFAULT 0,
		eventos INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS system_config (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		standard_hour_rate TEXT NOT NULL DEFAULT '0',
		tax_rate TEXT NOT NULL DEFAULT '0',
		is_form_locked INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS monthly_app_configs (
		month TEXT PRIMARY KEY,
		standard_hour_rate TEXT NOT NULL DEFAULT '0',
		tax_rate TEXT NOT NULL DEFAULT '0',
		mo_target TEXT NOT NULL DEFAULT '0',
		mo_target_extra TEXT NOT NULL DEFAULT '0',
		mo_target_clt TEXT NOT NULL DEFAULT '0',
		mo_target_total TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS special_roles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rate TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		role TEXT NOT NULL DEFAULT 'requester',
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	INSERT OR IGNORE INTO system_config (id) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SECTORS
// =============================================================================

// ListSectors returns all sectors ordered by name.
func (s *Store) ListSectors(ctx context.Context) ([]engine.Sector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type FROM sectors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sectors: %w", err)
	}
	defer rows.Close()

	var sectors []engine.Sector
	for rows.Next() {
		var sec engine.Sector
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.Type); err != nil {
			return nil, err
		}
		sectors = append(sectors, sec)
	}
	return sectors, rows.Err()
}

// SaveSector inserts or replaces a sector.
func (s *Store) SaveSector(ctx context.Context, sec engine.Sector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sectors (id, name, type, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type`,
		sec.ID, sec.Name, sec.Type, nowRFC3339(),
	)
	if err != nil {
		return fmt.Errorf("failed to save sector: %w", err)
	}
	return nil
}

// DeleteSector removes a sector. Zero rows affected reports ErrNotFound.
func (s *Store) DeleteSector(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteOne(ctx, `DELETE FROM sectors WHERE id = ?`, id)
}

// =============================================================================
// REQUESTS
// =============================================================================

const requestColumns = `id, sector, reason, req_type, date_event, days_qty, special_rate,
	extras_qty, function_role, shift, time_in, time_out, justification,
	occupancy_rate, status, created_at, total_value, requestor_email`

// ListRequests returns all requests, newest event first.
func (s *Store) ListRequests(ctx context.Context) ([]engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests ORDER BY date_event DESC, created_at DESC`)
}

// ListRequestsByMonth returns requests whose span touches the month: the
// event starts on or before the last day and its final day (date_event plus
// days_qty-1, a zero days_qty counting as one day) reaches the first day.
// Day-level bucketing within the month lives in the engine.
func (s *Store) ListRequestsByMonth(ctx context.Context, month engine.MonthKey) ([]engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	year, m, err := month.Parse()
	if err != nil {
		return nil, err
	}
	first := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	return s.queryRequests(ctx,
		`SELECT `+requestColumns+` FROM requests
		 WHERE date_event <= ?
		   AND date(date_event, '+' || (MAX(days_qty, 1) - 1) || ' days') >= ?
		 ORDER BY date_event ASC`,
		last.Format("2006-01-02"), first.Format("2006-01-02"))
}

// GetRequest returns one request or ErrNotFound.
func (s *Store) GetRequest(ctx context.Context, id string) (engine.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reqs, err := s.queryRequests(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	if err != nil {
		return engine.Request{}, err
	}
	if len(reqs) == 0 {
		return engine.Request{}, ErrNotFound
	}
	return reqs[0], nil
}

// SaveRequest inserts or replaces a request. Callers reprice before saving;
// the store persists TotalValue as given.
func (s *Store) SaveRequest(ctx context.Context, r engine.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var specialRate any
	if r.SpecialRate != nil {
		specialRate = r.SpecialRate.String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sector = excluded.sector,
			reason = excluded.reason,
			req_type = excluded.req_type,
			date_event = excluded.date_event,
			days_qty = excluded.days_qty,
			special_rate = excluded.special_rate,
			extras_qty = excluded.extras_qty,
			function_role = excluded.function_role,
			shift = excluded.shift,
			time_in = excluded.time_in,
			time_out = excluded.time_out,
			justification = excluded.justification,
			occupancy_rate = excluded.occupancy_rate,
			status = excluded.status,
			total_value = excluded.total_value,
			requestor_email = excluded.requestor_email`,
		r.ID, r.Sector, r.Reason, r.Type,
		r.DateEvent.Format("2006-01-02"), r.DaysQty, specialRate,
		r.ExtrasQty, r.FunctionRole, r.Shift, r.TimeIn, r.TimeOut,
		r.Justification, r.OccupancyRate.String(), r.Status,
		r.CreatedAt.UTC().Format(time.RFC3339), r.TotalValue.String(), r.RequestorEmail,
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

// UpdateRequestStatus transitions a request's lifecycle status.
func (s *Store) UpdateRequestStatus(ctx context.Context, id string, status engine.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE requests SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRequest removes a request. Zero rows affected reports ErrNotFound.
func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteOne(ctx, `DELETE FROM requests WHERE id = ?`, id)
}

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]engine.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []engine.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func scanRequest(rows *sql.Rows) (engine.Request, error) {
	var (
		r             engine.Request
		dateEvent     string
		specialRate   sql.NullString
		functionRole  sql.NullString
		shift         sql.NullString
		timeIn        sql.NullString
		timeOut       sql.NullString
		justification sql.NullString
		occupancyRate string
		createdAt     string
		totalValue    string
		requestor     sql.NullString
	)

	err := rows.Scan(
		&r.ID, &r.Sector, &r.Reason, &r.Type, &dateEvent, &r.DaysQty, &specialRate,
		&r.ExtrasQty, &functionRole, &shift, &timeIn, &timeOut, &justification,
		&occupancyRate, &r.Status, &createdAt, &totalValue, &requestor,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan request: %w", err)
	}

	r.DateEvent, _ = time.Parse("2006-01-02", dateEvent)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if specialRate.Valid {
		d := mustDecimal(specialRate.String)
		r.SpecialRate = &d
	}
	r.FunctionRole = functionRole.String
	r.Shift = shift.String
	r.TimeIn = timeIn.String
	r.TimeOut = timeOut.String
	r.Justification = justification.String
	r.OccupancyRate = mustDecimal(occupancyRate)
	r.TotalValue = mustDecimal(totalValue)
	r.RequestorEmail = requestor.String
	return r, nil
}

// =============================================================================
// MONTHLY BUDGETS
// =============================================================================

const budgetColumns = `sector_id, month, budget_qty, budget_value, hour_rate,
	work_hours_per_day, working_days_per_month, extra_qty_per_day,
	clt_budget_qty, clt_budget_value`

// ListBudgetsByMonth returns every sector's budget for a month.
func (s *Store) ListBudgetsByMonth(ctx context.Context, month engine.MonthKey) ([]engine.MonthlyBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM monthly_budgets WHERE month = ?`, string(month))
}

// ListBudgets returns all budgets across months.
func (s *Store) ListBudgets(ctx context.Context) ([]engine.MonthlyBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryBudgets(ctx, `SELECT `+budgetColumns+` FROM monthly_budgets`)
}

// SaveBudget upserts a derived budget; derivation happens in the engine
// before the write.
func (s *Store) SaveBudget(ctx context.Context, b engine.MonthlyBudget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monthly_budgets (`+budgetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sector_id, month) DO UPDATE SET
			budget_qty = excluded.budget_qty,
			budget_value = excluded.budget_value,
			hour_rate = excluded.hour_rate,
			work_hours_per_day = excluded.work_hours_per_day,
			working_days_per_month = excluded.working_days_per_month,
			extra_qty_per_day = excluded.extra_qty_per_day,
			clt_budget_qty = excluded.clt_budget_qty,
			clt_budget_value = excluded.clt_budget_value`,
		b.SectorID, string(b.Month), b.BudgetQty, b.BudgetValue.String(), b.HourRate.String(),
		b.WorkHoursPerDay, b.WorkingDaysPerMonth, b.ExtraQtyPerDay.String(),
		b.CltBudgetQty, b.CltBudgetValue.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

func (s *Store) queryBudgets(ctx context.Context, query string, args ...any) ([]engine.MonthlyBudget, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []engine.MonthlyBudget
	for rows.Next() {
		var (
			b              engine.MonthlyBudget
			month          string
			budgetValue    string
			hourRate       string
			extraQty       string
			cltBudgetValue string
		)
		err := rows.Scan(&b.SectorID, &month, &b.BudgetQty, &budgetValue, &hourRate,
			&b.WorkHoursPerDay, &b.WorkingDaysPerMonth, &extraQty,
			&b.CltBudgetQty, &cltBudgetValue)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		b.Month = engine.MonthKey(month)
		b.BudgetValue = mustDecimal(budgetValue)
		b.HourRate = mustDecimal(hourRate)
		b.ExtraQtyPerDay = mustDecimal(extraQty)
		b.CltBudgetValue = mustDecimal(cltBudgetValue)
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// =============================================================================
// LOTS - replace-on-save per month
// =============================================================================

// GetLots returns a month's lot configuration in position order. An empty
// result means the month uses the default seed.
func (s *Store) GetLots(ctx context.Context, month engine.MonthKey) ([]engine.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLots(ctx, month)
}

func (s *Store) getLots(ctx context.Context, month engine.MonthKey) ([]engine.Lot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lot_id, name, start_day, end_day
		FROM monthly_lotes WHERE month = ? ORDER BY position`, string(month))
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var lots []engine.Lot
	for rows.Next() {
		var l engine.Lot
		if err := rows.Scan(&l.ID, &l.Name, &l.StartDay, &l.EndDay); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

// ReplaceLots swaps the month's entire lot configuration atomically.
func (s *Store) ReplaceLots(ctx context.Context, month engine.MonthKey, lots []engine.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM monthly_lotes WHERE month = ?`, string(month)); err != nil {
		return fmt.Errorf("failed to clear lots: %w", err)
	}
	for i, l := range lots {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO monthly_lotes (month, lot_id, name, start_day, end_day, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(month), l.ID, l.Name, l.StartDay, l.EndDay, i)
		if err != nil {
			return fmt.Errorf("failed to insert lot: %w", err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// MANUAL REAL STATS - upsert-merge
// =============================================================================

const manualStatColumns = `sector_id, month, real_qty, real_value, afastados_qty,
	apprentices_qty, wfo_qty, lote_wfo_qty_json, lote_wfo_value_json,
	lote_intermitentes_qty_json, lote_intermitentes_value_json`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// GetManualStat returns the sector/month stat, or ErrNotFound.
func (s *Store) GetManualStat(ctx context.Context, sectorID string, month engine.MonthKey) (engine.ManualRealStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getManualStat(ctx, s.db, sectorID, month)
}

func getManualStat(ctx context.Context, db querier, sectorID string, month engine.MonthKey) (engine.ManualRealStat, error) {
	var (
		stat      engine.ManualRealStat
		monthStr  string
		realValue string
		wfoQty    sql.NullString
		wfoVal    sql.NullString
		intQty    sql.NullString
		intVal    sql.NullString
	)
	err := db.QueryRowContext(ctx,
		`SELECT `+manualStatColumns+` FROM manual_real_stats WHERE sector_id = ? AND month = ?`,
		sectorID, string(month),
	).Scan(&stat.SectorID, &monthStr, &stat.RealQty, &realValue,
		&stat.AfastadosQty, &stat.ApprenticesQty, &stat.WfoQty,
		&wfoQty, &wfoVal, &intQty, &intVal)
	if err == sql.ErrNoRows {
		return engine.ManualRealStat{}, ErrNotFound
	}
	if err != nil {
		return engine.ManualRealStat{}, fmt.Errorf("failed to get manual stat: %w", err)
	}

	stat.Month = engine.MonthKey(monthStr)
	stat.RealValue = mustDecimal(realValue)
	stat.LoteWfoQty = decodeLotMap(wfoQty)
	stat.LoteWfoValue = decodeLotMap(wfoVal)
	stat.LoteIntermitentesQty = decodeLotMap(intQty)
	stat.LoteIntermitentesVal = decodeLotMap(intVal)
	return stat, nil
}

// ListManualStats returns every stored stat.
func (s *Store) ListManualStats(ctx context.Context) ([]engine.ManualRealStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+manualStatColumns+` FROM manual_real_stats`)
	if err != nil {
		return nil, fmt.Errorf("failed to query manual stats: %w", err)
	}
	defer rows.Close()

	var stats []engine.ManualRealStat
	for rows.Next() {
		var (
			stat      engine.ManualRealStat
			monthStr  string
			realValue string
			wfoQty    sql.NullString
			wfoVal    sql.NullString
			intQty    sql.NullString
			intVal    sql.NullString
		)
		err := rows.Scan(&stat.SectorID, &monthStr, &stat.RealQty, &realValue,
			&stat.AfastadosQty, &stat.ApprenticesQty, &stat.WfoQty,
			&wfoQty, &wfoVal, &intQty, &intVal)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manual stat: %w", err)
		}
		stat.Month = engine.MonthKey(monthStr)
		stat.RealValue = mustDecimal(realValue)
		stat.LoteWfoQty = decodeLotMap(wfoQty)
		stat.LoteWfoValue = decodeLotMap(wfoVal)
		stat.LoteIntermitentesQty = decodeLotMap(intQty)
		stat.LoteIntermitentesVal = decodeLotMap(intVal)
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// UpsertManualStat applies a partial patch to the sector/month stat inside
// one database transaction: read current, merge key-by-key, write back.
// A patch that changes nothing within the engine's epsilon skips the write.
// Returns the merged stat.
func (s *Store) UpsertManualStat(ctx context.Context, sectorID string, month engine.MonthKey, patch engine.ManualStatPatch) (engine.ManualRealStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return engine.ManualRealStat{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := getManualStat(ctx, tx, sectorID, month)
	if errors.Is(err, ErrNotFound) {
		existing = engine.ManualRealStat{SectorID: sectorID, Month: month}
	} else if err != nil {
		return engine.ManualRealStat{}, err
	}

	merged, changed := engine.MergeManualRealStat(existing, patch)
	if !changed {
		return merged, nil
	}
	merged.SectorID = sectorID
	merged.Month = month

	_, err = tx.ExecContext(ctx, `
		INSERT INTO manual_real_stats (`+manualStatColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sector_id, month) DO UPDATE SET
			real_qty = excluded.real_qty,
			real_value = excluded.real_value,
			afastados_qty = excluded.afastados_qty,
			apprentices_qty = excluded.apprentices_qty,
			wfo_qty = excluded.wfo_qty,
			lote_wfo_qty_json = excluded.lote_wfo_qty_json,
			lote_wfo_value_json = excluded.lote_wfo_value_json,
			lote_intermitentes_qty_json = excluded.lote_intermitentes_qty_json,
			lote_intermitentes_value_json = excluded.lote_intermitentes_value_json`,
		merged.SectorID, string(merged.Month), merged.RealQty, merged.RealValue.String(),
		merged.AfastadosQty, merged.ApprenticesQty, merged.WfoQty,
		encodeLotMap(merged.LoteWfoQty), encodeLotMap(merged.LoteWfoValue),
		encodeLotMap(merged.LoteIntermitentesQty), encodeLotMap(merged.LoteIntermitentesVal),
	)
	if err != nil {
		return engine.ManualRealStat{}, fmt.Errorf("failed to upsert manual stat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return engine.ManualRealStat{}, err
	}
	return merged, nil
}

// DeleteManualStat removes the override, restoring computed values.
func (s *Store) DeleteManualStat(ctx context.Context, sectorID string, month engine.MonthKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteOne(ctx, `DELETE FROM manual_real_stats WHERE sector_id = ? AND month = ?`,
		sectorID, string(month))
}

// =============================================================================
// OCCUPANCY
// =============================================================================

// ListOccupancy returns all occupancy records.
func (s *Store) ListOccupancy(ctx context.Context) ([]engine.OccupancyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT date, total, lazer, eventos FROM occupancy_data ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query occupancy: %w", err)
	}
	defer rows.Close()

	var records []engine.OccupancyRecord
	for rows.Next() {
		var rec engine.OccupancyRecord
		var dateStr string
		if err := rows.Scan(&dateStr, &rec.Total, &rec.Lazer, &rec.Eventos); err != nil {
			return nil, err
		}
		rec.Date = engine.DateKey(dateStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpsertOccupancy records occupied room-nights for a day. Total is kept as
// lazer + eventos at entry time; a stored total that disagrees is replaced.
func (s *Store) UpsertOccupancy(ctx context.Context, rec engine.OccupancyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := rec.Date.Parse(); err != nil {
		return err
	}
	rec.Total = rec.Lazer + rec.Eventos

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO occupancy_data (date, total, lazer, eventos) VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total = excluded.total, lazer = excluded.lazer, eventos = excluded.eventos`,
		string(rec.Date), rec.Total, rec.Lazer, rec.Eventos)
	if err != nil {
		return fmt.Errorf("failed to upsert occupancy: %w", err)
	}
	return nil
}

// =============================================================================
// CONFIG
// =============================================================================

// GetSystemConfig returns the singleton configuration row.
func (s *Store) GetSystemConfig(ctx context.Context) (engine.SystemConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		cfg        engine.SystemConfig
		hourRate   string
		taxRate    string
		formLocked int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT standard_hour_rate, tax_rate, is_form_locked FROM system_config WHERE id = 1`,
	).Scan(&hourRate, &taxRate, &formLocked)
	if err != nil {
		return cfg, fmt.Errorf("failed to get system config: %w", err)
	}
	cfg.StandardHourRate = mustDecimal(hourRate)
	cfg.TaxRate = mustDecimal(taxRate)
	cfg.IsFormLocked = formLocked != 0
	return cfg, nil
}

// SaveSystemConfig replaces the singleton configuration row.
func (s *Store) SaveSystemConfig(ctx context.Context, cfg engine.SystemConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked := 0
	if cfg.IsFormLocked {
		locked = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE system_config SET standard_hour_rate = ?, tax_rate = ?, is_form_locked = ? WHERE id = 1`,
		cfg.StandardHourRate.String(), cfg.TaxRate.String(), locked)
	if err != nil {
		return fmt.Errorf("failed to save system config: %w", err)
	}
	return nil
}

// ListMonthlyConfigs returns all per-month overrides.
func (s *Store) ListMonthlyConfigs(ctx context.Context) ([]engine.MonthlyAppConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT month, standard_hour_rate, tax_rate, mo_target, mo_target_extra, mo_target_clt, mo_target_total
		FROM monthly_app_configs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly configs: %w", err)
	}
	defer rows.Close()

	var configs []engine.MonthlyAppConfig
	for rows.Next() {
		var (
			mc    engine.MonthlyAppConfig
			month string
			vals  [6]string
		)
		if err := rows.Scan(&month, &vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5]); err != nil {
			return nil, err
		}
		mc.Month = engine.MonthKey(month)
		mc.StandardHourRate = mustDecimal(vals[0])
		mc.TaxRate = mustDecimal(vals[1])
		mc.MoTarget = mustDecimal(vals[2])
		mc.MoTargetExtra = mustDecimal(vals[3])
		mc.MoTargetClt = mustDecimal(vals[4])
		mc.MoTargetTotal = mustDecimal(vals[5])
		configs = append(configs, mc)
	}
	return configs, rows.Err()
}

// SaveMonthlyConfig upserts one month's override.
func (s *Store) SaveMonthlyConfig(ctx context.Context, mc engine.MonthlyAppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monthly_app_configs
		(month, standard_hour_rate, tax_rate, mo_target, mo_target_extra, mo_target_clt, mo_target_total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(month) DO UPDATE SET
			standard_hour_rate = excluded.standard_hour_rate,
			tax_rate = excluded.tax_rate,
			mo_target = excluded.mo_target,
			mo_target_extra = excluded.mo_target_extra,
			mo_target_clt = excluded.mo_target_clt,
			mo_target_total = excluded.mo_target_total`,
		string(mc.Month), mc.StandardHourRate.String(), mc.TaxRate.String(),
		mc.MoTarget.String(), mc.MoTargetExtra.String(), mc.MoTargetClt.String(), mc.MoTargetTotal.String())
	if err != nil {
		return fmt.Errorf("failed to save monthly config: %w", err)
	}
	return nil
}

// =============================================================================
// SPECIAL ROLES
// =============================================================================

// ListSpecialRoles returns all named pay rates.
func (s *Store) ListSpecialRoles(ctx context.Context) ([]engine.SpecialRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, rate FROM special_roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query special roles: %w", err)
	}
	defer rows.Close()

	var roles []engine.SpecialRole
	for rows.Next() {
		var role engine.SpecialRole
		var rate string
		if err := rows.Scan(&role.ID, &role.Name, &rate); err != nil {
			return nil, err
		}
		role.Rate = mustDecimal(rate)
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// SaveSpecialRole inserts or replaces a named pay rate.
func (s *Store) SaveSpecialRole(ctx context.Context, role engine.SpecialRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO special_roles (id, name, rate) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, rate = excluded.rate`,
		role.ID, role.Name, role.Rate.String())
	if err != nil {
		return fmt.Errorf("failed to save special role: %w", err)
	}
	return nil
}

// DeleteSpecialRole removes a named pay rate.
func (s *Store) DeleteSpecialRole(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteOne(ctx, `DELETE FROM special_roles WHERE id = ?`, id)
}

// =============================================================================
// PROFILES
// =============================================================================

// Profile is a directory row for one user. Password hashes are bcrypt,
// produced by the auth package.
type Profile struct {
	ID           string
	Email        string
	Name         string
	Role         string // "admin" or "requester"
	PasswordHash string
	CreatedAt    time.Time
}

// ListProfiles returns the user directory.
func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, role, password_hash, created_at FROM profiles ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var (
			p         Profile
			name      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Email, &name, &p.Role, &p.PasswordHash, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		p.Name = name.String
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// GetProfileByEmail returns one profile or ErrNotFound.
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p         Profile
		name      sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, password_hash, created_at FROM profiles WHERE email = ?`,
		email,
	).Scan(&p.ID, &p.Email, &name, &p.Role, &p.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	p.Name = name.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

// SaveProfile upserts a directory row keyed by email.
func (s *Store) SaveProfile(ctx context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, name, role, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name, role = excluded.role, password_hash = excluded.password_hash`,
		p.ID, p.Email, p.Name, p.Role, p.PasswordHash, nowRFC3339())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// =============================================================================
// DATASET ASSEMBLY
// =============================================================================

// LoadDataset assembles the full in-memory snapshot the engine reads. One
// fetch per entity type; the engine never queries the store directly.
func (s *Store) LoadDataset(ctx context.Context) (engine.Dataset, error) {
	ds := engine.Dataset{
		Budgets:        make(map[string]map[engine.MonthKey]engine.MonthlyBudget),
		Lots:           make(map[engine.MonthKey][]engine.Lot),
		ManualStats:    make(map[string]map[engine.MonthKey]engine.ManualRealStat),
		Occupancy:      make(map[engine.DateKey]engine.OccupancyRecord),
		MonthlyConfigs: make(map[engine.MonthKey]engine.MonthlyAppConfig),
	}

	var err error
	if ds.Sectors, err = s.ListSectors(ctx); err != nil {
		return ds, err
	}
	if ds.Requests, err = s.ListRequests(ctx); err != nil {
		return ds, err
	}
	if ds.System, err = s.GetSystemConfig(ctx); err != nil {
		return ds, err
	}

	budgets, err := s.ListBudgets(ctx)
	if err != nil {
		return ds, err
	}
	for _, b := range budgets {
		if ds.Budgets[b.SectorID] == nil {
			ds.Budgets[b.SectorID] = make(map[engine.MonthKey]engine.MonthlyBudget)
		}
		ds.Budgets[b.SectorID][b.Month] = b
	}

	stats, err := s.ListManualStats(ctx)
	if err != nil {
		return ds, err
	}
	for _, st := range stats {
		if ds.ManualStats[st.SectorID] == nil {
			ds.ManualStats[st.SectorID] = make(map[engine.MonthKey]engine.ManualRealStat)
		}
		ds.ManualStats[st.SectorID][st.Month] = st
	}

	occ, err := s.ListOccupancy(ctx)
	if err != nil {
		return ds, err
	}
	for _, rec := range occ {
		ds.Occupancy[rec.Date] = rec
	}

	configs, err := s.ListMonthlyConfigs(ctx)
	if err != nil {
		return ds, err
	}
	for _, mc := range configs {
		ds.MonthlyConfigs[mc.Month] = mc
	}

	months, err := s.lotMonths(ctx)
	if err != nil {
		return ds, err
	}
	for _, month := range months {
		lots, err := s.getLotsLocked(ctx, month)
		if err != nil {
			return ds, err
		}
		ds.Lots[month] = lots
	}

	return ds, nil
}

func (s *Store) getLotsLocked(ctx context.Context, month engine.MonthKey) ([]engine.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLots(ctx, month)
}

func (s *Store) lotMonths(ctx context.Context) ([]engine.MonthKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT month FROM monthly_lotes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lot months: %w", err)
	}
	defer rows.Close()

	var months []engine.MonthKey
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		months = append(months, engine.MonthKey(m))
	}
	return months, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) deleteOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// encodeLotMap serializes a lot-keyed decimal map as a JSON object with
// string keys; empty maps encode as NULL.
func encodeLotMap(m map[int]decimal.Decimal) any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v.String()
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func decodeLotMap(ns sql.NullString) map[int]decimal.Decimal {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var raw map[string]string
	if err := json.Unmarshal([]byte(ns.String), &raw); err != nil {
		return nil
	}
	out := make(map[int]decimal.Decimal, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[id] = mustDecimal(v)
	}
	return out
}
