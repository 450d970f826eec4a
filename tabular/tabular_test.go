package tabular_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/staffing-engine/tabular"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestParseNumber_Formats(t *testing.T) {
	cases := map[string]string{
		"1200":        "1200",
		"1200.50":     "1200.5",
		"1200,50":     "1200.5",
		"1.234,56":    "1234.56",
		"1,234.56":    "1234.56",
		"R$ 1.200,00": "1200",
		"$1,200.00":   "1200",
		"12%":         "12",
		" 42 ":        "42",
		"-3,5":        "-3.5",
		"":            "0",
	}

	for in, want := range cases {
		got, err := tabular.ParseNumber(in)
		require.NoError(t, err, "input %q", in)
		assert.True(t, got.Equal(dec(want)), "input %q: expected %s, got %v", in, want, got)
	}
}

func TestParseBlock_TabAndNewlineDelimited(t *testing.T) {
	block := "35200\t20\t8\t22\n10000\t17\t8\t22\n"

	rows, err := tabular.ParseBlock(block, 4)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0][0].Equal(dec("35200")))
	assert.True(t, rows[1][1].Equal(dec("17")))
}

func TestParseBlock_WindowsLineEndingsAndShortRows(t *testing.T) {
	block := "100\t10\r\n200\r\n"

	rows, err := tabular.ParseBlock(block, 4)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[1][0].Equal(dec("200")))
	assert.True(t, rows[1][1].IsZero(), "missing cells pad with zero")
}

func TestParseBlock_Empty(t *testing.T) {
	_, err := tabular.ParseBlock("\n  \n", 4)
	assert.ErrorIs(t, err, tabular.ErrEmptyBlock)
}

func TestParseBudgetBlock_ColumnOrder(t *testing.T) {
	rows, err := tabular.ParseBudgetBlock("R$ 35.200,00\t20,00\t8\t22")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].BudgetValue.Equal(dec("35200")))
	assert.True(t, rows[0].HourRate.Equal(dec("20")))
	assert.Equal(t, 8, rows[0].WorkHoursPerDay)
	assert.Equal(t, 22, rows[0].WorkingDaysPerMonth)
}

func TestParseStatBlock_ColumnOrder(t *testing.T) {
	rows, err := tabular.ParseStatBlock("10\t31.000,00\t2\t1\t4")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].RealQty)
	assert.True(t, rows[0].RealValue.Equal(dec("31000")))
	assert.Equal(t, 2, rows[0].AfastadosQty)
	assert.Equal(t, 1, rows[0].ApprenticesQty)
	assert.Equal(t, 4, rows[0].WfoQty)
}
