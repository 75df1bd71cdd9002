// Package align joins the AMM, CLOB and blended series of one request key by timestamp.
package align

import "ammclob/internal/market"

// Side is one source's bucket within a row. When Present is false the bucket
// is the zero value: zero volume and undefined prices.
type Side struct {
	Bucket  market.Bucket `json:"bucket"`
	Present bool          `json:"present"`
}

// Row is one AMM timestamp with its matching CLOB and blended buckets.
type Row struct {
	Timestamp string `json:"timestamp"`
	AMM       Side   `json:"amm"`
	CLOB      Side   `json:"clob"`
	Blended   Side   `json:"blended"`
}

// Partial reports whether the CLOB or blended counterpart is missing.
func (r Row) Partial() bool {
	return !r.CLOB.Present || !r.Blended.Present
}

// Side returns the row's side for a source.
func (r Row) Side(source market.Source) Side {
	switch source {
	case market.SourceAMM:
		return r.AMM
	case market.SourceCLOB:
		return r.CLOB
	default:
		return r.Blended
	}
}

// Align walks the AMM series in its own order and looks up the CLOB and
// blended buckets with the same timestamp string. The output has exactly
// amm.Len() rows. Missing counterparts are marked absent, never dropped.
// Align does no I/O and keeps no state.
func Align(amm, clob, blended *market.Series) []Row {
	rows := make([]Row, 0, amm.Len())
	for i := 0; i < amm.Len(); i++ {
		a := amm.At(i)
		row := Row{
			Timestamp: a.Timestamp,
			AMM:       Side{Bucket: a, Present: true},
		}
		if b, ok := clob.Get(a.Timestamp); ok {
			row.CLOB = Side{Bucket: b, Present: true}
		}
		if b, ok := blended.Get(a.Timestamp); ok {
			row.Blended = Side{Bucket: b, Present: true}
		}
		rows = append(rows, row)
	}
	return rows
}

// CountPartial returns the number of partial rows.
func CountPartial(rows []Row) int {
	n := 0
	for _, r := range rows {
		if r.Partial() {
			n++
		}
	}
	return n
}
