// Package derive turns aligned rows into the values a chart view needs.
// Every function here is pure; errors are returned only for unknown mode tags.
package derive

import (
	"fmt"
	"math"

	"ammclob/internal/align"
	"ammclob/internal/market"
)

// Candle is one row's OHLC for the selected view.
type Candle struct {
	Timestamp string `json:"timestamp"`
	Open      Value  `json:"open"`
	High      Value  `json:"high"`
	Low       Value  `json:"low"`
	Close     Value  `json:"close"`
	Partial   bool   `json:"partial,omitempty"`
}

// Defined reports whether all four price fields are valid.
func (c Candle) Defined() bool {
	return c.Open.Valid && c.High.Valid && c.Low.Valid && c.Close.Valid
}

// Candles selects OHLC per row. With Deviation each field is AMM / CLOB and
// the source is ignored; otherwise the source's own prices are used.
func Candles(rows []align.Row, source market.Source, comparison Comparison) ([]Candle, error) {
	if !source.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSource, int(source))
	}

	// used is the counterpart side the view reads; a candle is partial only
	// when that side is missing.
	var pick func(align.Row) Candle
	var used func(align.Row) align.Side
	switch comparison {
	case RawPair:
		pick = func(r align.Row) Candle { return sideCandle(r.Side(source)) }
		used = func(r align.Row) align.Side { return r.Side(source) }
	case Deviation:
		pick = deviationCandle
		used = func(r align.Row) align.Side { return r.CLOB }
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownComparison, int(comparison))
	}

	out := make([]Candle, 0, len(rows))
	for _, r := range rows {
		c := pick(r)
		c.Timestamp = r.Timestamp
		c.Partial = !used(r).Present
		out = append(out, c)
	}
	return out, nil
}

func sideCandle(s align.Side) Candle {
	if !s.Present {
		return Candle{}
	}
	return Candle{
		Open:  finite(s.Bucket.Open),
		High:  finite(s.Bucket.High),
		Low:   finite(s.Bucket.Low),
		Close: finite(s.Bucket.Close),
	}
}

func deviationCandle(r align.Row) Candle {
	amm, clob := sideCandle(r.AMM), sideCandle(r.CLOB)
	return Candle{
		Open:  Ratio(amm.Open, clob.Open),
		High:  Ratio(amm.High, clob.High),
		Low:   Ratio(amm.Low, clob.Low),
		Close: Ratio(amm.Close, clob.Close),
	}
}

func finite(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Undefined
	}
	return Some(f)
}
