/*
Package tabular parses pasted spreadsheet blocks for the admin grids.

PURPOSE:
  Administrators paste ranges copied from spreadsheets into the budget and
  manual-stat grids. A block arrives as newline-separated rows of
  tab-separated cells; cells hold human-formatted numbers. This package
  turns a block into typed rows, tolerating the formats spreadsheets emit:

  - both "," and "." as decimal separator ("1.234,56" and "1,234.56")
  - currency symbols and percent signs ("R$ 1.200,00", "12%")
  - stray whitespace and empty cells (parsed as zero)

COLUMN MAPPING:
  Mapping a parsed row onto domain fields is positional and owned by the
  caller; this package only delivers [][]Cell-style numeric rows. The
  budget grid maps columns onto
  [budgetValue, hourRate, workHoursPerDay, workingDaysPerMonth].

SEE ALSO:
  - engine/budget.go: ApplyBudgetRows consumes parsed budget rows
*/
package tabular

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/harborview/staffing-engine/engine"
)

// ErrEmptyBlock is returned when a pasted block contains no rows.
var ErrEmptyBlock = errors.New("empty paste block")

// ParseError reports the first cell that could not be parsed.
type ParseError struct {
	Row  int // zero-based row within the block
	Col  int
	Cell string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d col %d: cannot parse %q as a number", e.Row, e.Col, e.Cell)
}

// =============================================================================
// NUMERIC CELL PARSING
// =============================================================================

// ParseNumber parses a single spreadsheet cell into a decimal. Currency
// symbols, percent signs and whitespace are stripped; both comma and dot
// decimal separators are accepted. Empty cells parse as zero.
func ParseNumber(cell string) (decimal.Decimal, error) {
	s := normalizeNumber(cell)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// normalizeNumber strips non-numeric decoration and resolves the decimal
// separator. The last of "," or "." is taken as the decimal separator;
// earlier occurrences are treated as thousands grouping.
func normalizeNumber(cell string) string {
	var b strings.Builder
	for _, r := range cell {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	s := b.String()

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma > lastDot:
		// Comma-decimal: drop dots (grouping), comma becomes the point.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
		s = strings.ReplaceAll(s, ",", "")
	case lastDot > lastComma:
		// Dot-decimal: drop commas (grouping).
		s = strings.ReplaceAll(s, ",", "")
	}
	return s
}

// =============================================================================
// BLOCK PARSING
// =============================================================================

// ParseBlock splits a pasted block into rows of decimals: rows on newlines,
// cells on tabs. Blank trailing lines are ignored; short rows are padded to
// the requested width with zeros, extra cells are dropped.
func ParseBlock(block string, width int) ([][]decimal.Decimal, error) {
	block = strings.ReplaceAll(block, "\r\n", "\n")
	lines := strings.Split(block, "\n")

	var rows [][]decimal.Decimal
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		row := make([]decimal.Decimal, width)
		for j := 0; j < width && j < len(cells); j++ {
			d, err := ParseNumber(cells[j])
			if err != nil {
				return nil, &ParseError{Row: i, Col: j, Cell: cells[j]}
			}
			row[j] = d
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyBlock
	}
	return rows, nil
}

// =============================================================================
// GRID-SPECIFIC MAPPINGS
// =============================================================================

// ParseBudgetBlock maps a pasted block column-wise onto the budget grid:
// [budgetValue, hourRate, workHoursPerDay, workingDaysPerMonth].
func ParseBudgetBlock(block string) ([]engine.BudgetRow, error) {
	rows, err := ParseBlock(block, 4)
	if err != nil {
		return nil, err
	}
	out := make([]engine.BudgetRow, len(rows))
	for i, r := range rows {
		out[i] = engine.BudgetRow{
			BudgetValue:         r[0],
			HourRate:            r[1],
			WorkHoursPerDay:     int(r[2].IntPart()),
			WorkingDaysPerMonth: int(r[3].IntPart()),
		}
	}
	return out, nil
}

// StatRow is one pasted row of the manual-stat grid:
// [realQty, realValue, afastadosQty, apprenticesQty, wfoQty].
type StatRow struct {
	RealQty        int
	RealValue      decimal.Decimal
	AfastadosQty   int
	ApprenticesQty int
	WfoQty         int
}

// ParseStatBlock maps a pasted block onto manual-stat rows.
func ParseStatBlock(block string) ([]StatRow, error) {
	rows, err := ParseBlock(block, 5)
	if err != nil {
		return nil, err
	}
	out := make([]StatRow, len(rows))
	for i, r := range rows {
		out[i] = StatRow{
			RealQty:        int(r[0].IntPart()),
			RealValue:      r[1],
			AfastadosQty:   int(r[2].IntPart()),
			ApprenticesQty: int(r[3].IntPart()),
			WfoQty:         int(r[4].IntPart()),
		}
	}
	return out, nil
}
