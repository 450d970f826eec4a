/*
handlers.go - HTTP API handlers for the workforce dashboard

PURPOSE:
  Exposes the labor-budget engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/auth/login                      Sign in, returns JWT
    POST   /api/auth/admin-pin                  Verify the admin-area PIN

  Requests:
    GET    /api/requests                        List (optionally ?month=)
    POST   /api/requests                        Create (pending, repriced)
    PUT    /api/requests/{id}                   Update (repriced)
    POST   /api/requests/{id}/status            Approve / reject / re-pend
    DELETE /api/requests/{id}                   Delete (admin)
    GET    /api/requests/export                 CSV extract

  Dashboard:
    GET    /api/rollup?month=&metric=           Sector x lot matrix
    GET    /api/daily-index?month=&metric=      MO/UH day series

  Admin:
    sectors, budgets (+bulk paste), lots, manual stats (+bulk paste),
    occupancy, config, special roles, users

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Load the dataset snapshot where aggregation is involved
  4. Call domain logic (engine, tabular, export)
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, malformed pastes
  - 401/403: Missing or insufficient credentials
  - 404: Resource not found (including zero-row deletes)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborview/staffing-engine/auth"
	"github.com/harborview/staffing-engine/engine"
	"github.com/harborview/staffing-engine/export"
	"github.com/harborview/staffing-engine/store/sqlite"
	"github.com/harborview/staffing-engine/tabular"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Auth  *auth.Authenticator
}

// NewHandler creates a new handler with the given store and authenticator.
func NewHandler(store *sqlite.Store, authenticator *auth.Authenticator) *Handler {
	return &Handler{Store: store, Auth: authenticator}
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Login verifies credentials and issues a session token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token, profile, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  ProfileDTO{ID: profile.ID, Email: profile.Email, Name: profile.Name, Role: profile.Role},
	})
}

// VerifyAdminPin gates entry to the admin area. The PIN lives server-side
// only.
// POST /api/auth/admin-pin
func (h *Handler) VerifyAdminPin(w http.ResponseWriter, r *http.Request) {
	var req AdminPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Auth.VerifyAdminPin(req.Pin); err != nil {
		writeError(w, http.StatusForbidden, "Invalid PIN", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListUsers returns the profile directory without password hashes.
// GET /api/admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Store.ListProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	dtos := make([]ProfileDTO, len(profiles))
	for i, p := range profiles {
		dtos[i] = ProfileDTO{ID: p.ID, Email: p.Email, Name: p.Name, Role: p.Role}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser registers a profile. The acting admin's own session token is
// untouched: tokens are stateless, so creating users never signs the admin
// out.
// POST /api/admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required", nil)
		return
	}

	profile, err := h.Auth.Register(r.Context(), req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, ProfileDTO{
		ID: profile.ID, Email: profile.Email, Name: profile.Name, Role: profile.Role,
	})
}

// =============================================================================
// SECTOR HANDLERS
// =============================================================================

// ListSectors returns all sectors.
// GET /api/sectors
func (h *Handler) ListSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.Store.ListSectors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sectors", err)
		return
	}
	dtos := make([]SectorDTO, len(sectors))
	for i, s := range sectors {
		dtos[i] = toSectorDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveSector creates or renames a sector.
// POST /api/sectors
func (h *Handler) SaveSector(w http.ResponseWriter, r *http.Request) {
	var req SaveSectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Sector name is required", nil)
		return
	}
	secType := engine.SectorType(req.Type)
	if secType != engine.SectorOperational && secType != engine.SectorSupport {
		writeError(w, http.StatusBadRequest, "Sector type must be operational or support", nil)
		return
	}

	sec := engine.Sector{ID: req.ID, Name: req.Name, Type: secType}
	if sec.ID == "" {
		sec.ID = uuid.New().String()
	}
	if err := h.Store.SaveSector(r.Context(), sec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save sector", err)
		return
	}
	writeJSON(w, http.StatusOK, toSectorDTO(sec))
}

// DeleteSector removes a sector.
// DELETE /api/sectors/{id}
func (h *Handler) DeleteSector(w http.ResponseWriter, r *http.Request) {
	err := h.Store.DeleteSector(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Sector not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete sector", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// ListRequests returns requests, restricted to one month when ?month= is
// given (the window includes spans crossing into the month).
// GET /api/requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		requests []engine.Request
		err      error
	)
	if monthParam := r.URL.Query().Get("month"); monthParam != "" {
		month := engine.MonthKey(monthParam)
		if !month.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", nil)
			return
		}
		requests, err = h.Store.ListRequestsByMonth(ctx, month)
	} else {
		requests, err = h.Store.ListRequests(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	dtos := make([]RequestDTO, len(requests))
	for i, req := range requests {
		dtos[i] = toRequestDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRequest stores a new pending request, priced server-side.
// POST /api/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, err := h.Store.GetSystemConfig(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load config", err)
		return
	}
	if cfg.IsFormLocked {
		writeError(w, http.StatusForbidden, "Request form is locked", nil)
		return
	}

	req, err := h.decodeRequestBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	req.ID = uuid.New().String()
	req.Status = engine.StatusPending
	req.CreatedAt = time.Now().UTC()
	if claims := ClaimsFrom(ctx); claims != nil {
		req.RequestorEmail = claims.Email
	}

	if err := engine.ValidateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	priced, err := h.reprice(r, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to price request", err)
		return
	}
	if err := h.Store.SaveRequest(ctx, priced); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(priced))
}

// UpdateRequest replaces a request's fields and reprices it. Status is
// preserved; use the status endpoint to transition it.
// PUT /api/requests/{id}
func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	existing, err := h.Store.GetRequest(ctx, id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get request", err)
		return
	}

	req, err := h.decodeRequestBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	req.ID = existing.ID
	req.Status = existing.Status
	req.CreatedAt = existing.CreatedAt
	req.RequestorEmail = existing.RequestorEmail

	if err := engine.ValidateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	priced, err := h.reprice(r, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to price request", err)
		return
	}
	if err := h.Store.SaveRequest(ctx, priced); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(priced))
}

// UpdateRequestStatus transitions the approval lifecycle.
// POST /api/requests/{id}/status
func (h *Handler) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status := engine.RequestStatus(req.Status)
	switch status {
	case engine.StatusPending, engine.StatusApproved, engine.StatusRejected:
	default:
		writeError(w, http.StatusBadRequest, "Status must be pending, approved or rejected", nil)
		return
	}

	err := h.Store.UpdateRequestStatus(r.Context(), chi.URLParam(r, "id"), status)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// DeleteRequest removes a request; a delete matching no row is a 404.
// DELETE /api/requests/{id}
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	err := h.Store.DeleteRequest(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Request not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete request", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportRequests streams the semicolon-separated CSV extract.
// GET /api/requests/export
func (h *Handler) ExportRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		requests []engine.Request
		err      error
	)
	monthParam := r.URL.Query().Get("month")
	if monthParam != "" {
		month := engine.MonthKey(monthParam)
		if !month.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", nil)
			return
		}
		requests, err = h.Store.ListRequestsByMonth(ctx, month)
	} else {
		requests, err = h.Store.ListRequests(ctx)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := requests[:0]
		for _, req := range requests {
			if string(req.Status) == status {
				filtered = append(filtered, req)
			}
		}
		requests = filtered
	}

	name := "requests.csv"
	if monthParam != "" {
		name = fmt.Sprintf("requests-%s.csv", monthParam)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := export.WriteRequestsCSV(w, requests); err != nil {
		// Headers are gone; nothing useful left to send.
		return
	}
}

func (h *Handler) decodeRequestBody(r *http.Request) (engine.Request, error) {
	var body SaveRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return engine.Request{}, err
	}

	dateEvent, err := time.Parse("2006-01-02", body.DateEvent)
	if err != nil {
		return engine.Request{}, fmt.Errorf("invalid dateEvent (use YYYY-MM-DD): %w", err)
	}

	req := engine.Request{
		Sector:        body.Sector,
		Reason:        engine.RequestReason(body.Reason),
		Type:          engine.RequestType(body.Type),
		DateEvent:     dateEvent,
		DaysQty:       body.DaysQty,
		ExtrasQty:     body.ExtrasQty,
		FunctionRole:  body.FunctionRole,
		Shift:         body.Shift,
		TimeIn:        body.TimeIn,
		TimeOut:       body.TimeOut,
		Justification: body.Justification,
	}
	if body.SpecialRate != "" {
		rate, err := decimal.NewFromString(body.SpecialRate)
		if err != nil {
			return engine.Request{}, fmt.Errorf("invalid specialRate: %w", err)
		}
		req.SpecialRate = &rate
	}
	if body.OccupancyRate != "" {
		occ, err := decimal.NewFromString(body.OccupancyRate)
		if err != nil {
			return engine.Request{}, fmt.Errorf("invalid occupancyRate: %w", err)
		}
		req.OccupancyRate = occ
	}
	return req, nil
}

func (h *Handler) reprice(r *http.Request, req engine.Request) (engine.Request, error) {
	ds, err := h.Store.LoadDataset(r.Context())
	if err != nil {
		return engine.Request{}, err
	}
	return engine.Reprice(req, ds), nil
}

// =============================================================================
// DASHBOARD HANDLERS
// =============================================================================

// GetRollup returns the sector x lot matrix for a month and metric.
// GET /api/rollup?month=YYYY-MM&metric=extras|clt|total&sectors=id1,id2
func (h *Handler) GetRollup(w http.ResponseWriter, r *http.Request) {
	month, metric, sectors, ok := h.dashboardParams(w, r)
	if !ok {
		return
	}

	ds, err := h.Store.LoadDataset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load data", err)
		return
	}
	matrix, err := engine.Rollup(ds, month, metric, sectors)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Rollup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toRollupDTO(matrix))
}

// GetDailyIndex returns the per-day MO/UH series for a month and metric.
// GET /api/daily-index?month=YYYY-MM&metric=extras|clt|total
func (h *Handler) GetDailyIndex(w http.ResponseWriter, r *http.Request) {
	month, metric, sectors, ok := h.dashboardParams(w, r)
	if !ok {
		return
	}

	ds, err := h.Store.LoadDataset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load data", err)
		return
	}
	series, err := engine.DailyIndex(ds, month, metric, sectors)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Index computation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toDailyIndexDTO(series))
}

func (h *Handler) dashboardParams(w http.ResponseWriter, r *http.Request) (engine.MonthKey, engine.Metric, []string, bool) {
	month := engine.MonthKey(r.URL.Query().Get("month"))
	if !month.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", nil)
		return "", "", nil, false
	}

	metric := engine.Metric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = engine.MetricExtras
	}

	var sectors []string
	if raw := r.URL.Query().Get("sectors"); raw != "" {
		sectors = strings.Split(raw, ",")
	}
	return month, metric, sectors, true
}

// =============================================================================
// BUDGET HANDLERS
// =============================================================================

// ListBudgets returns every sector's budget for a month, filling defaults
// for sectors with no stored row.
// GET /api/budgets/{month}
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	sectors, err := h.Store.ListSectors(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sectors", err)
		return
	}
	stored, err := h.Store.ListBudgetsByMonth(ctx, month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list budgets", err)
		return
	}
	byID := make(map[string]engine.MonthlyBudget, len(stored))
	for _, b := range stored {
		byID[b.SectorID] = b
	}

	dtos := make([]BudgetDTO, len(sectors))
	for i, sec := range sectors {
		b, ok := byID[sec.ID]
		if !ok {
			b = engine.MonthlyBudget{
				SectorID:            sec.ID,
				Month:               month,
				WorkHoursPerDay:     engine.DefaultWorkHoursPerDay,
				WorkingDaysPerMonth: engine.DefaultWorkingDaysPerMonth,
			}
		}
		dtos[i] = toBudgetDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveBudget patches one sector's monetary inputs and re-derives headcount.
// PUT /api/budgets/{month}/{sectorID}
func (h *Handler) SaveBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	sectorID := chi.URLParam(r, "sectorID")

	var body SaveBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	inputs, err := budgetInputs(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid budget values", err)
		return
	}

	ds, err := h.Store.LoadDataset(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load data", err)
		return
	}
	budget := engine.ApplyBudgetInputs(ds.BudgetFor(sectorID, month), inputs)
	if err := h.Store.SaveBudget(ctx, budget); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save budget", err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetDTO(budget))
}

// PasteBudgets applies a pasted grid block onto sectors starting at the
// given row index.
// POST /api/budgets/{month}/paste
func (h *Handler) PasteBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	var body PasteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rows, err := tabular.ParseBudgetBlock(body.Block)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not parse pasted block", err)
		return
	}

	ds, err := h.Store.LoadDataset(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load data", err)
		return
	}
	budgets := engine.ApplyBudgetRows(ds, month, body.StartIndex, rows)
	for _, b := range budgets {
		if err := h.Store.SaveBudget(ctx, b); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save budget", err)
			return
		}
	}

	dtos := make([]BudgetDTO, len(budgets))
	for i, b := range budgets {
		dtos[i] = toBudgetDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func budgetInputs(body SaveBudgetRequest) (engine.BudgetInputs, error) {
	var in engine.BudgetInputs
	var err error
	if in.BudgetValue, err = decimalPtr(body.BudgetValue); err != nil {
		return in, err
	}
	if in.HourRate, err = decimalPtr(body.HourRate); err != nil {
		return in, err
	}
	if in.CltBudgetValue, err = decimalPtr(body.CltBudgetValue); err != nil {
		return in, err
	}
	in.WorkHoursPerDay = body.WorkHoursPerDay
	in.WorkingDaysPerMonth = body.WorkingDaysPerMonth
	in.CltBudgetQty = body.CltBudgetQty
	return in, nil
}

func decimalPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// =============================================================================
// LOT HANDLERS
// =============================================================================

// GetLots returns a month's lot configuration, seeding the default split
// when the month has none stored.
// GET /api/lots/{month}
func (h *Handler) GetLots(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	lots, err := h.Store.GetLots(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get lots", err)
		return
	}
	if len(lots) == 0 {
		lots = engine.DefaultLots(month)
	}

	dtos := make([]LotDTO, len(lots))
	for i, l := range lots {
		dtos[i] = toLotDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveLots validates and replaces the month's entire lot configuration.
// Overlaps and uncovered days are reported but do not block the save:
// bucketing is first-match-wins and out-of-lot days still count in sector
// totals.
// PUT /api/lots/{month}
func (h *Handler) SaveLots(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	var body SaveLotsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	lots := make([]engine.Lot, len(body.Lots))
	for i, l := range body.Lots {
		lots[i] = engine.Lot{ID: l.ID, Name: l.Name, StartDay: l.StartDay, EndDay: l.EndDay}
	}

	var warnings []string
	for _, err := range engine.ValidateLots(month, lots) {
		var cfgErr *engine.LotConfigError
		if errors.As(err, &cfgErr) && cfgErr.Code == "invalid_range" {
			writeError(w, http.StatusBadRequest, "Invalid lot range", err)
			return
		}
		warnings = append(warnings, err.Error())
	}

	if err := h.Store.ReplaceLots(r.Context(), month, lots); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save lots", err)
		return
	}

	dtos := make([]LotDTO, len(lots))
	for i, l := range lots {
		dtos[i] = toLotDTO(l)
	}
	writeJSON(w, http.StatusOK, map[string]any{"lots": dtos, "warnings": warnings})
}

// =============================================================================
// MANUAL STAT HANDLERS
// =============================================================================

// ListManualStats returns the stored stats for a month.
// GET /api/stats/{month}
func (h *Handler) ListManualStats(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	stats, err := h.Store.ListManualStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stats", err)
		return
	}

	dtos := []ManualStatDTO{}
	for _, s := range stats {
		if s.Month == month {
			dtos = append(dtos, toManualStatDTO(s))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PatchManualStat applies a partial patch to one sector/month stat.
// PUT /api/stats/{month}/{sectorID}
func (h *Handler) PatchManualStat(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}
	sectorID := chi.URLParam(r, "sectorID")

	var body PatchStatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	patch, err := statPatch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stat values", err)
		return
	}

	merged, err := h.Store.UpsertManualStat(r.Context(), sectorID, month, patch)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save stat", err)
		return
	}
	writeJSON(w, http.StatusOK, toManualStatDTO(merged))
}

// PasteManualStats maps a pasted grid block onto sectors starting at the
// given row index.
// POST /api/stats/{month}/paste
func (h *Handler) PasteManualStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	var body PasteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.StartIndex < 0 {
		writeError(w, http.StatusBadRequest, "Start index must not be negative", nil)
		return
	}
	rows, err := tabular.ParseStatBlock(body.Block)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not parse pasted block", err)
		return
	}

	sectors, err := h.Store.ListSectors(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sectors", err)
		return
	}

	var dtos []ManualStatDTO
	for i, row := range rows {
		idx := body.StartIndex + i
		if idx >= len(sectors) {
			break
		}
		row := row
		patch := engine.ManualStatPatch{
			RealQty:        &row.RealQty,
			RealValue:      &row.RealValue,
			AfastadosQty:   &row.AfastadosQty,
			ApprenticesQty: &row.ApprenticesQty,
			WfoQty:         &row.WfoQty,
		}
		merged, err := h.Store.UpsertManualStat(ctx, sectors[idx].ID, month, patch)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save stat", err)
			return
		}
		dtos = append(dtos, toManualStatDTO(merged))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteManualStat removes the override; computed values take over again.
// DELETE /api/stats/{month}/{sectorID}
func (h *Handler) DeleteManualStat(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	err := h.Store.DeleteManualStat(r.Context(), chi.URLParam(r, "sectorID"), month)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Stat not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete stat", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statPatch(body PatchStatRequest) (engine.ManualStatPatch, error) {
	patch := engine.ManualStatPatch{
		RealQty:        body.RealQty,
		AfastadosQty:   body.AfastadosQty,
		ApprenticesQty: body.ApprenticesQty,
		WfoQty:         body.WfoQty,
	}
	var err error
	if patch.RealValue, err = decimalPtr(body.RealValue); err != nil {
		return patch, err
	}
	if patch.LoteWfoQty, err = lotMapFromWire(body.LoteWfoQty); err != nil {
		return patch, err
	}
	if patch.LoteWfoValue, err = lotMapFromWire(body.LoteWfoValue); err != nil {
		return patch, err
	}
	if patch.LoteIntermitentesQty, err = lotMapFromWire(body.LoteIntermitentesQty); err != nil {
		return patch, err
	}
	if patch.LoteIntermitentesVal, err = lotMapFromWire(body.LoteIntermitentesVal); err != nil {
		return patch, err
	}
	return patch, nil
}

// =============================================================================
// OCCUPANCY HANDLERS
// =============================================================================

// ListOccupancy returns occupancy records, restricted to ?month= when given.
// GET /api/occupancy
func (h *Handler) ListOccupancy(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListOccupancy(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list occupancy", err)
		return
	}

	monthParam := r.URL.Query().Get("month")
	dtos := []OccupancyDTO{}
	for _, rec := range records {
		if monthParam != "" && string(rec.Date.MonthKey()) != monthParam {
			continue
		}
		dtos = append(dtos, OccupancyDTO{
			Date: string(rec.Date), Total: rec.Total, Lazer: rec.Lazer, Eventos: rec.Eventos,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertOccupancy records one day's occupied room-nights.
// PUT /api/occupancy/{date}
func (h *Handler) UpsertOccupancy(w http.ResponseWriter, r *http.Request) {
	var body OccupancyDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rec := engine.OccupancyRecord{
		Date:    engine.DateKey(chi.URLParam(r, "date")),
		Lazer:   body.Lazer,
		Eventos: body.Eventos,
	}
	if err := h.Store.UpsertOccupancy(r.Context(), rec); err != nil {
		if errors.Is(err, engine.ErrInvalidDateKey) {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save occupancy", err)
		return
	}
	rec.Total = rec.Lazer + rec.Eventos
	writeJSON(w, http.StatusOK, OccupancyDTO{
		Date: string(rec.Date), Total: rec.Total, Lazer: rec.Lazer, Eventos: rec.Eventos,
	})
}

// =============================================================================
// CONFIG HANDLERS
// =============================================================================

// GetConfig returns the global configuration.
// GET /api/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GetSystemConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get config", err)
		return
	}
	writeJSON(w, http.StatusOK, SystemConfigDTO{
		StandardHourRate: cfg.StandardHourRate.String(),
		TaxRate:          cfg.TaxRate.String(),
		IsFormLocked:     cfg.IsFormLocked,
	})
}

// SaveConfig replaces the global configuration.
// PUT /api/config
func (h *Handler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var body SystemConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rate, err := decimal.NewFromString(body.StandardHourRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid standardHourRate", err)
		return
	}
	tax, err := decimal.NewFromString(body.TaxRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid taxRate", err)
		return
	}

	cfg := engine.SystemConfig{StandardHourRate: rate, TaxRate: tax, IsFormLocked: body.IsFormLocked}
	if err := h.Store.SaveSystemConfig(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save config", err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// ListMonthlyConfigs returns all per-month overrides.
// GET /api/config/months
func (h *Handler) ListMonthlyConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Store.ListMonthlyConfigs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list monthly configs", err)
		return
	}
	dtos := make([]MonthlyConfigDTO, len(configs))
	for i, mc := range configs {
		dtos[i] = toMonthlyConfigDTO(mc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveMonthlyConfig upserts one month's override.
// PUT /api/config/months/{month}
func (h *Handler) SaveMonthlyConfig(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	var body MonthlyConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mc := engine.MonthlyAppConfig{Month: month}
	fields := []struct {
		src string
		dst *decimal.Decimal
	}{
		{body.StandardHourRate, &mc.StandardHourRate},
		{body.TaxRate, &mc.TaxRate},
		{body.MoTarget, &mc.MoTarget},
		{body.MoTargetExtra, &mc.MoTargetExtra},
		{body.MoTargetClt, &mc.MoTargetClt},
		{body.MoTargetTotal, &mc.MoTargetTotal},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid decimal value", err)
			return
		}
		*f.dst = d
	}

	if err := h.Store.SaveMonthlyConfig(r.Context(), mc); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save monthly config", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthlyConfigDTO(mc))
}

func toMonthlyConfigDTO(mc engine.MonthlyAppConfig) MonthlyConfigDTO {
	return MonthlyConfigDTO{
		Month:            string(mc.Month),
		StandardHourRate: mc.StandardHourRate.String(),
		TaxRate:          mc.TaxRate.String(),
		MoTarget:         mc.MoTarget.String(),
		MoTargetExtra:    mc.MoTargetExtra.String(),
		MoTargetClt:      mc.MoTargetClt.String(),
		MoTargetTotal:    mc.MoTargetTotal.String(),
	}
}

// =============================================================================
// SPECIAL ROLE HANDLERS
// =============================================================================

// ListSpecialRoles returns all named pay rates.
// GET /api/special-roles
func (h *Handler) ListSpecialRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Store.ListSpecialRoles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list special roles", err)
		return
	}
	dtos := make([]SpecialRoleDTO, len(roles))
	for i, role := range roles {
		dtos[i] = SpecialRoleDTO{ID: role.ID, Name: role.Name, Rate: role.Rate.String()}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveSpecialRole creates or updates a named pay rate.
// POST /api/special-roles
func (h *Handler) SaveSpecialRole(w http.ResponseWriter, r *http.Request) {
	var body SaveSpecialRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "Role name is required", nil)
		return
	}
	rate, err := decimal.NewFromString(body.Rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate", err)
		return
	}

	role := engine.SpecialRole{ID: body.ID, Name: body.Name, Rate: rate}
	if role.ID == "" {
		role.ID = uuid.New().String()
	}
	if err := h.Store.SaveSpecialRole(r.Context(), role); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save special role", err)
		return
	}
	writeJSON(w, http.StatusOK, SpecialRoleDTO{ID: role.ID, Name: role.Name, Rate: role.Rate.String()})
}

// DeleteSpecialRole removes a named pay rate.
// DELETE /api/special-roles/{id}
func (h *Handler) DeleteSpecialRole(w http.ResponseWriter, r *http.Request) {
	err := h.Store.DeleteSpecialRole(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Special role not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete special role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func monthParam(w http.ResponseWriter, r *http.Request) (engine.MonthKey, bool) {
	month := engine.MonthKey(chi.URLParam(r, "month"))
	if !month.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", nil)
		return "", false
	}
	return month, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
