/*
Package export writes printable reports from engine data.

PURPOSE:
  Produces the request extract as CSV the back-office spreadsheets expect:
  ';'-delimited fields in a fixed column order, string fields double-quote
  escaped, dates in DD/MM/YYYY.

COLUMN ORDER (fixed):
  id, creation date, requester, sector, reason, type, event date, days,
  extras qty, role, shift, time in, time out, justification, occupancy %,
  unit rate, total value, status

SEE ALSO:
  - api: The extract endpoint streams this writer's output
*/
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/harborview/staffing-engine/engine"
)

// RequestCSVHeader is the fixed extract header row.
var RequestCSVHeader = []string{
	"id", "data_criacao", "solicitante", "setor", "motivo", "tipo",
	"data_evento", "dias", "qtd_extras", "funcao", "turno",
	"hora_entrada", "hora_saida", "justificativa", "ocupacao_pct",
	"valor_unitario", "valor_total", "status",
}

// WriteRequestsCSV streams the request extract. Fields are ';'-delimited;
// encoding/csv double-quote-escapes string fields as needed.
func WriteRequestsCSV(w io.Writer, requests []engine.Request) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(RequestCSVHeader); err != nil {
		return err
	}

	for _, r := range requests {
		if err := cw.Write(requestRow(r)); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func requestRow(r engine.Request) []string {
	unitRate := ""
	if r.SpecialRate != nil {
		unitRate = r.SpecialRate.StringFixed(2)
	}
	return []string{
		r.ID,
		r.CreatedAt.Format("02/01/2006"),
		r.RequestorEmail,
		r.Sector,
		string(r.Reason),
		string(r.Type),
		r.DateEvent.Format("02/01/2006"),
		strconv.Itoa(r.DaysQty),
		strconv.Itoa(r.ExtrasQty),
		r.FunctionRole,
		r.Shift,
		r.TimeIn,
		r.TimeOut,
		r.Justification,
		r.OccupancyRate.StringFixed(0),
		unitRate,
		r.TotalValue.StringFixed(2),
		string(r.Status),
	}
}
