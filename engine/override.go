/*
override.go - Manual override layer: partial-merge patch semantics

PURPOSE:
  Administrators record actual/manual corrections (leave, apprentices,
  workforce-type splits) per sector/month. When a ManualRealStat exists its
  realQty/realValue supersede the request-derived values; when absent the
  computed values stand. The computed values are never blended in.

MERGE SEMANTICS:
  Updates are partial. Scalar fields are patched only when the patch sets
  them; the per-lot maps (loteWfoQty etc.) are merged key-by-key, because
  independent grid cells patch different lot keys of the same record.
  Replacing a whole map would drop edits made to sibling lots.

WRITE SUPPRESSION:
  A precision threshold suppresses patches that change nothing: a decimal
  lot value within 1e-4 of the stored value is treated as unchanged.

SEE ALSO:
  - rollup.go: Consumes the merged stat via Dataset.ManualStatFor
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// epsilon is the threshold under which a numeric change is treated as
// no change at all (redundant-write suppression).
var epsilon = decimal.NewFromFloat(1e-4)

// ManualStatPatch is a partial update to a ManualRealStat. Nil pointers and
// nil maps leave the corresponding field untouched.
type ManualStatPatch struct {
	RealQty        *int
	RealValue      *decimal.Decimal
	AfastadosQty   *int
	ApprenticesQty *int
	WfoQty         *int

	LoteWfoQty           map[int]decimal.Decimal
	LoteWfoValue         map[int]decimal.Decimal
	LoteIntermitentesQty map[int]decimal.Decimal
	LoteIntermitentesVal map[int]decimal.Decimal
}

// IsZero reports whether the patch carries no changes at all.
func (p ManualStatPatch) IsZero() bool {
	return p.RealQty == nil && p.RealValue == nil && p.AfastadosQty == nil &&
		p.ApprenticesQty == nil && p.WfoQty == nil &&
		len(p.LoteWfoQty) == 0 && len(p.LoteWfoValue) == 0 &&
		len(p.LoteIntermitentesQty) == 0 && len(p.LoteIntermitentesVal) == 0
}

// MergeManualRealStat applies a partial patch to an existing stat (zero
// value when the sector/month has no record yet) and returns the merged
// stat plus whether anything actually changed. Lot maps are merged
// key-by-key: keys absent from the patch keep their stored values.
func MergeManualRealStat(existing ManualRealStat, patch ManualStatPatch) (ManualRealStat, bool) {
	merged := existing
	changed := false

	setInt := func(dst *int, src *int) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	setInt(&merged.RealQty, patch.RealQty)
	setInt(&merged.AfastadosQty, patch.AfastadosQty)
	setInt(&merged.ApprenticesQty, patch.ApprenticesQty)
	setInt(&merged.WfoQty, patch.WfoQty)

	if patch.RealValue != nil && !withinEpsilon(merged.RealValue, *patch.RealValue) {
		merged.RealValue = *patch.RealValue
		changed = true
	}

	merged.LoteWfoQty, changed = mergeLotMap(merged.LoteWfoQty, patch.LoteWfoQty, changed)
	merged.LoteWfoValue, changed = mergeLotMap(merged.LoteWfoValue, patch.LoteWfoValue, changed)
	merged.LoteIntermitentesQty, changed = mergeLotMap(merged.LoteIntermitentesQty, patch.LoteIntermitentesQty, changed)
	merged.LoteIntermitentesVal, changed = mergeLotMap(merged.LoteIntermitentesVal, patch.LoteIntermitentesVal, changed)

	return merged, changed
}

// mergeLotMap merges patch keys into a copy of the stored lot map. The
// stored map is never mutated in place; callers hold the returned map.
func mergeLotMap(stored, patch map[int]decimal.Decimal, changed bool) (map[int]decimal.Decimal, bool) {
	if len(patch) == 0 {
		return stored, changed
	}
	out := make(map[int]decimal.Decimal, len(stored)+len(patch))
	for k, v := range stored {
		out[k] = v
	}
	for k, v := range patch {
		if existing, ok := out[k]; ok && withinEpsilon(existing, v) {
			continue
		}
		out[k] = v
		changed = true
	}
	return out, changed
}

func withinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(epsilon)
}
