/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Monetary values
  cross the wire as decimal strings, never floats.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/: The domain structures these mirror
*/
package api

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/harborview/staffing-engine/engine"
)

// =============================================================================
// ERROR
// =============================================================================

// ErrorResponse is the JSON shape of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// AUTH
// =============================================================================

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  ProfileDTO `json:"user"`
}

type AdminPinRequest struct {
	Pin string `json:"pin"`
}

type ProfileDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// =============================================================================
// SECTORS
// =============================================================================

type SectorDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type SaveSectorRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// RequestDTO mirrors engine.Request on the wire. Dates are YYYY-MM-DD,
// decimals are strings, specialRate is omitted when the standard rate
// applies.
type RequestDTO struct {
	ID             string `json:"id"`
	Sector         string `json:"sector"`
	Reason         string `json:"reason"`
	Type           string `json:"type"`
	DateEvent      string `json:"dateEvent"`
	DaysQty        int    `json:"daysQty"`
	SpecialRate    string `json:"specialRate,omitempty"`
	ExtrasQty      int    `json:"extrasQty"`
	FunctionRole   string `json:"functionRole,omitempty"`
	Shift          string `json:"shift,omitempty"`
	TimeIn         string `json:"timeIn,omitempty"`
	TimeOut        string `json:"timeOut,omitempty"`
	Justification  string `json:"justification,omitempty"`
	OccupancyRate  string `json:"occupancyRate"`
	Status         string `json:"status"`
	CreatedAt      string `json:"createdAt"`
	TotalValue     string `json:"totalValue"`
	RequestorEmail string `json:"requestorEmail,omitempty"`
}

// SaveRequestRequest is the create/update body. TotalValue and Status are
// server-derived and ignored if sent.
type SaveRequestRequest struct {
	Sector        string `json:"sector"`
	Reason        string `json:"reason"`
	Type          string `json:"type"`
	DateEvent     string `json:"dateEvent"`
	DaysQty       int    `json:"daysQty"`
	SpecialRate   string `json:"specialRate,omitempty"`
	ExtrasQty     int    `json:"extrasQty"`
	FunctionRole  string `json:"functionRole,omitempty"`
	Shift         string `json:"shift,omitempty"`
	TimeIn        string `json:"timeIn,omitempty"`
	TimeOut       string `json:"timeOut,omitempty"`
	Justification string `json:"justification,omitempty"`
	OccupancyRate string `json:"occupancyRate,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// =============================================================================
// ROLLUP / INDEX
// =============================================================================

type CellDTO struct {
	Qty   string `json:"qty"`
	Value string `json:"value"`
	Index string `json:"index"`
}

type LotDTO struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	StartDay int    `json:"startDay"`
	EndDay   int    `json:"endDay"`
}

type SectorRowDTO struct {
	Sector SectorDTO          `json:"sector"`
	ByLot  map[string]CellDTO `json:"byLot"`
	Total  CellDTO            `json:"total"`
}

type RollupDTO struct {
	Month          string             `json:"month"`
	Metric         string             `json:"metric"`
	Lots           []LotDTO           `json:"lots"`
	Rows           []SectorRowDTO     `json:"rows"`
	LotTotals      map[string]CellDTO `json:"lotTotals"`
	Grand          CellDTO            `json:"grand"`
	LotOccupancy   map[string]int     `json:"lotOccupancy"`
	MonthOccupancy int                `json:"monthOccupancy"`
	Unmatched      []string           `json:"unmatched,omitempty"`
}

type DailyIndexPointDTO struct {
	Date      string `json:"date"`
	Headcount string `json:"headcount"`
	Occupancy int    `json:"occupancy"`
	Index     string `json:"index"`
}

type DailyIndexDTO struct {
	Month  string               `json:"month"`
	Metric string               `json:"metric"`
	Target string               `json:"target"`
	Points []DailyIndexPointDTO `json:"points"`
}

// =============================================================================
// BUDGETS
// =============================================================================

type BudgetDTO struct {
	SectorID            string `json:"sectorId"`
	Month               string `json:"month"`
	BudgetQty           int    `json:"budgetQty"`
	BudgetValue         string `json:"budgetValue"`
	HourRate            string `json:"hourRate"`
	WorkHoursPerDay     int    `json:"workHoursPerDay"`
	WorkingDaysPerMonth int    `json:"workingDaysPerMonth"`
	ExtraQtyPerDay      string `json:"extraQtyPerDay"`
	CltBudgetQty        int    `json:"cltBudgetQty"`
	CltBudgetValue      string `json:"cltBudgetValue"`
}

// SaveBudgetRequest patches the monetary inputs; derived fields come back
// computed. Absent fields keep their stored values.
type SaveBudgetRequest struct {
	BudgetValue         *string `json:"budgetValue,omitempty"`
	HourRate            *string `json:"hourRate,omitempty"`
	WorkHoursPerDay     *int    `json:"workHoursPerDay,omitempty"`
	WorkingDaysPerMonth *int    `json:"workingDaysPerMonth,omitempty"`
	CltBudgetQty        *int    `json:"cltBudgetQty,omitempty"`
	CltBudgetValue      *string `json:"cltBudgetValue,omitempty"`
}

// PasteRequest carries a raw clipboard block for the bulk grid endpoints.
type PasteRequest struct {
	Block      string `json:"block"`
	StartIndex int    `json:"startIndex"`
}

// =============================================================================
// LOTS
// =============================================================================

type SaveLotsRequest struct {
	Lots []LotDTO `json:"lots"`
}

// =============================================================================
// MANUAL STATS
// =============================================================================

type ManualStatDTO struct {
	SectorID             string            `json:"sectorId"`
	Month                string            `json:"month"`
	RealQty              int               `json:"realQty"`
	RealValue            string            `json:"realValue"`
	AfastadosQty         int               `json:"afastadosQty"`
	ApprenticesQty       int               `json:"apprenticesQty"`
	WfoQty               int               `json:"wfoQty"`
	LoteWfoQty           map[string]string `json:"loteWfoQty,omitempty"`
	LoteWfoValue         map[string]string `json:"loteWfoValue,omitempty"`
	LoteIntermitentesQty map[string]string `json:"loteIntermitentesQty,omitempty"`
	LoteIntermitentesVal map[string]string `json:"loteIntermitentesVal,omitempty"`
}

// PatchStatRequest mirrors engine.ManualStatPatch: absent fields and maps
// leave the stored values untouched, present map keys patch only those lots.
type PatchStatRequest struct {
	RealQty              *int              `json:"realQty,omitempty"`
	RealValue            *string           `json:"realValue,omitempty"`
	AfastadosQty         *int              `json:"afastadosQty,omitempty"`
	ApprenticesQty       *int              `json:"apprenticesQty,omitempty"`
	WfoQty               *int              `json:"wfoQty,omitempty"`
	LoteWfoQty           map[string]string `json:"loteWfoQty,omitempty"`
	LoteWfoValue         map[string]string `json:"loteWfoValue,omitempty"`
	LoteIntermitentesQty map[string]string `json:"loteIntermitentesQty,omitempty"`
	LoteIntermitentesVal map[string]string `json:"loteIntermitentesVal,omitempty"`
}

// =============================================================================
// OCCUPANCY
// =============================================================================

type OccupancyDTO struct {
	Date    string `json:"date"`
	Total   int    `json:"total"`
	Lazer   int    `json:"lazer"`
	Eventos int    `json:"eventos"`
}

// =============================================================================
// CONFIG
// =============================================================================

type SystemConfigDTO struct {
	StandardHourRate string `json:"standardHourRate"`
	TaxRate          string `json:"taxRate"`
	IsFormLocked     bool   `json:"isFormLocked"`
}

type MonthlyConfigDTO struct {
	Month            string `json:"month"`
	StandardHourRate string `json:"standardHourRate"`
	TaxRate          string `json:"taxRate"`
	MoTarget         string `json:"moTarget"`
	MoTargetExtra    string `json:"moTargetExtra"`
	MoTargetClt      string `json:"moTargetClt"`
	MoTargetTotal    string `json:"moTargetTotal"`
}

// =============================================================================
// SPECIAL ROLES
// =============================================================================

type SpecialRoleDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rate string `json:"rate"`
}

type SaveSpecialRoleRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rate string `json:"rate"`
}

// =============================================================================
// MAPPING HELPERS
// =============================================================================

func toSectorDTO(s engine.Sector) SectorDTO {
	return SectorDTO{ID: s.ID, Name: s.Name, Type: string(s.Type)}
}

func toRequestDTO(r engine.Request) RequestDTO {
	dto := RequestDTO{
		ID:             r.ID,
		Sector:         r.Sector,
		Reason:         string(r.Reason),
		Type:           string(r.Type),
		DateEvent:      r.DateEvent.Format("2006-01-02"),
		DaysQty:        r.DaysQty,
		ExtrasQty:      r.ExtrasQty,
		FunctionRole:   r.FunctionRole,
		Shift:          r.Shift,
		TimeIn:         r.TimeIn,
		TimeOut:        r.TimeOut,
		Justification:  r.Justification,
		OccupancyRate:  r.OccupancyRate.String(),
		Status:         string(r.Status),
		CreatedAt:      r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		TotalValue:     r.TotalValue.StringFixed(2),
		RequestorEmail: r.RequestorEmail,
	}
	if r.SpecialRate != nil {
		dto.SpecialRate = r.SpecialRate.String()
	}
	return dto
}

func toCellDTO(c engine.Cell) CellDTO {
	return CellDTO{
		Qty:   c.Qty.String(),
		Value: c.Value.StringFixed(2),
		Index: c.Index.StringFixed(3),
	}
}

func toLotDTO(l engine.Lot) LotDTO {
	return LotDTO{ID: l.ID, Name: l.Name, StartDay: l.StartDay, EndDay: l.EndDay}
}

func toBudgetDTO(b engine.MonthlyBudget) BudgetDTO {
	return BudgetDTO{
		SectorID:            b.SectorID,
		Month:               string(b.Month),
		BudgetQty:           b.BudgetQty,
		BudgetValue:         b.BudgetValue.StringFixed(2),
		HourRate:            b.HourRate.String(),
		WorkHoursPerDay:     b.WorkHoursPerDay,
		WorkingDaysPerMonth: b.WorkingDaysPerMonth,
		ExtraQtyPerDay:      b.ExtraQtyPerDay.StringFixed(2),
		CltBudgetQty:        b.CltBudgetQty,
		CltBudgetValue:      b.CltBudgetValue.StringFixed(2),
	}
}

func toManualStatDTO(s engine.ManualRealStat) ManualStatDTO {
	return ManualStatDTO{
		SectorID:             s.SectorID,
		Month:                string(s.Month),
		RealQty:              s.RealQty,
		RealValue:            s.RealValue.StringFixed(2),
		AfastadosQty:         s.AfastadosQty,
		ApprenticesQty:       s.ApprenticesQty,
		WfoQty:               s.WfoQty,
		LoteWfoQty:           lotMapToWire(s.LoteWfoQty),
		LoteWfoValue:         lotMapToWire(s.LoteWfoValue),
		LoteIntermitentesQty: lotMapToWire(s.LoteIntermitentesQty),
		LoteIntermitentesVal: lotMapToWire(s.LoteIntermitentesVal),
	}
}

func toRollupDTO(m engine.RollupMatrix) RollupDTO {
	dto := RollupDTO{
		Month:          string(m.Month),
		Metric:         string(m.Metric),
		Lots:           make([]LotDTO, len(m.Lots)),
		Rows:           make([]SectorRowDTO, len(m.Rows)),
		LotTotals:      make(map[string]CellDTO, len(m.LotTotals)),
		Grand:          toCellDTO(m.Grand),
		LotOccupancy:   make(map[string]int, len(m.LotOccupancy)),
		MonthOccupancy: m.MonthOccupancy,
		Unmatched:      m.Unmatched,
	}
	for i, l := range m.Lots {
		dto.Lots[i] = toLotDTO(l)
	}
	for i, row := range m.Rows {
		r := SectorRowDTO{
			Sector: toSectorDTO(row.Sector),
			ByLot:  make(map[string]CellDTO, len(row.ByLot)),
			Total:  toCellDTO(row.Total),
		}
		for lotID, cell := range row.ByLot {
			r.ByLot[strconv.Itoa(lotID)] = toCellDTO(cell)
		}
		dto.Rows[i] = r
	}
	for lotID, cell := range m.LotTotals {
		dto.LotTotals[strconv.Itoa(lotID)] = toCellDTO(cell)
	}
	for lotID, occ := range m.LotOccupancy {
		dto.LotOccupancy[strconv.Itoa(lotID)] = occ
	}
	return dto
}

func toDailyIndexDTO(s engine.DailyIndexSeries) DailyIndexDTO {
	dto := DailyIndexDTO{
		Month:  string(s.Month),
		Metric: string(s.Metric),
		Target: s.Target.StringFixed(3),
		Points: make([]DailyIndexPointDTO, len(s.Points)),
	}
	for i, p := range s.Points {
		dto.Points[i] = DailyIndexPointDTO{
			Date:      string(p.Date),
			Headcount: p.Headcount.String(),
			Occupancy: p.Occupancy,
			Index:     p.Index.StringFixed(3),
		}
	}
	return dto
}

func lotMapToWire(m map[int]decimal.Decimal) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v.String()
	}
	return out
}

// lotMapFromWire parses string lot keys and decimal strings; malformed
// entries are reported, not dropped.
func lotMapFromWire(m map[string]string) (map[int]decimal.Decimal, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[int]decimal.Decimal, len(m))
	for k, v := range m {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, err
		}
		out[id] = d
	}
	return out, nil
}
