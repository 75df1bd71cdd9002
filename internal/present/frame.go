// Package present maps derived rows into a chart-library-agnostic frame.
// Timestamps are parsed into unix milliseconds here and nowhere earlier.
package present

import (
	"fmt"
	"time"

	"ammclob/internal/align"
	"ammclob/internal/derive"
	"ammclob/internal/market"
)

// UndefinedPolicy decides what happens to candles carrying an undefined value.
type UndefinedPolicy string

const (
	// PolicyOmit drops candles whose close is undefined. Other undefined
	// fields are rendered as null and the candle is flagged.
	PolicyOmit UndefinedPolicy = "omit"
	// PolicyFlag keeps every candle, rendering undefined fields as null.
	PolicyFlag UndefinedPolicy = "flag"
)

// ParseUndefinedPolicy accepts "omit", "flag" or "" (omit).
func ParseUndefinedPolicy(s string) (UndefinedPolicy, error) {
	switch UndefinedPolicy(s) {
	case "", PolicyOmit:
		return PolicyOmit, nil
	case PolicyFlag:
		return PolicyFlag, nil
	}
	return "", fmt.Errorf("unknown undefined policy %q", s)
}

type Options struct {
	Policy UndefinedPolicy
}

// CandlePoint is one candle in chart form.
type CandlePoint struct {
	Time    int64        `json:"time"`
	Open    derive.Value `json:"open"`
	High    derive.Value `json:"high"`
	Low     derive.Value `json:"low"`
	Close   derive.Value `json:"close"`
	Partial bool         `json:"partial,omitempty"`
	Flagged bool         `json:"flagged,omitempty"`
}

// VolumePoint is one bar of a volume series.
type VolumePoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// VolumeSeries is one named layer of the volume chart.
type VolumeSeries struct {
	Name   string        `json:"name"`
	Points []VolumePoint `json:"points"`
}

// LinePoint is one point of a close-price line.
type LinePoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

type PriceLines struct {
	AMM  []LinePoint `json:"amm"`
	CLOB []LinePoint `json:"clob"`
}

// Scale holds axis hints: price range over open/close and the first candle time.
type Scale struct {
	MinY    float64 `json:"min_y"`
	MaxY    float64 `json:"max_y"`
	MinTime int64   `json:"min_time"`
}

// Skipped counts what was left out of a frame.
type Skipped struct {
	Timestamps int `json:"timestamps"`
	Undefined  int `json:"undefined"`
}

// Frame is everything a chart needs for one (snapshot, view) pair.
type Frame struct {
	Generation uint64         `json:"generation"`
	Key        market.Key     `json:"key"`
	View       derive.View    `json:"view"`
	Candles    []CandlePoint  `json:"candles"`
	Volumes    []VolumeSeries `json:"volumes"`
	PriceLines *PriceLines    `json:"price_lines,omitempty"`
	Scale      Scale          `json:"scale"`
	Partial    int            `json:"partial"`
	Skipped    Skipped        `json:"skipped"`
}

// Build derives and maps rows for a view. RAW_PAIR yields two stacked volume
// series [amm, clob]; DEVIATION yields one combined series plus price lines.
func Build(key market.Key, rows []align.Row, view derive.View, opts Options) (Frame, error) {
	if err := view.Validate(); err != nil {
		return Frame{}, err
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyOmit
	}

	f := Frame{
		Key:     key,
		View:    view,
		Candles: make([]CandlePoint, 0, len(rows)),
		Partial: align.CountPartial(rows),
	}

	times := make(map[string]int64, len(rows))
	for _, r := range rows {
		ms, err := ParseTime(r.Timestamp)
		if err != nil {
			f.Skipped.Timestamps++
			continue
		}
		times[r.Timestamp] = ms
	}

	candles, err := derive.Candles(rows, view.Source, view.Comparison)
	if err != nil {
		return Frame{}, err
	}
	for _, c := range candles {
		ms, ok := times[c.Timestamp]
		if !ok {
			continue
		}
		p := CandlePoint{Time: ms, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Partial: c.Partial}
		if !c.Defined() {
			if policy == PolicyOmit && !c.Close.Valid {
				f.Skipped.Undefined++
				continue
			}
			p.Flagged = true
		}
		f.Candles = append(f.Candles, p)
	}

	switch view.Comparison {
	case derive.Deviation:
		prices := derive.PriceSeries(rows)
		combined := VolumeSeries{Name: "combined", Points: make([]VolumePoint, 0, len(prices.CombinedVolume))}
		for _, bar := range prices.CombinedVolume {
			if ms, ok := times[bar.Timestamp]; ok {
				combined.Points = append(combined.Points, VolumePoint{Time: ms, Value: bar.Total()})
			}
		}
		f.Volumes = []VolumeSeries{combined}
		f.PriceLines = &PriceLines{
			AMM:  linePoints(prices.AMM, times),
			CLOB: linePoints(prices.CLOB, times),
		}
	default:
		bars, err := derive.Volumes(rows, view.Source)
		if err != nil {
			return Frame{}, err
		}
		amm := VolumeSeries{Name: "amm", Points: make([]VolumePoint, 0, len(bars))}
		clob := VolumeSeries{Name: "clob", Points: make([]VolumePoint, 0, len(bars))}
		for _, bar := range bars {
			ms, ok := times[bar.Timestamp]
			if !ok {
				continue
			}
			amm.Points = append(amm.Points, VolumePoint{Time: ms, Value: bar.AMM})
			clob.Points = append(clob.Points, VolumePoint{Time: ms, Value: bar.CLOB})
		}
		f.Volumes = []VolumeSeries{amm, clob}
	}

	f.Scale = scale(f.Candles)
	return f, nil
}

// ParseTime converts a bucket timestamp into unix milliseconds.
func ParseTime(ts string) (int64, error) {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	return t.UnixMilli(), nil
}

func linePoints(points []derive.PricePoint, times map[string]int64) []LinePoint {
	out := make([]LinePoint, 0, len(points))
	for _, p := range points {
		if ms, ok := times[p.Timestamp]; ok {
			out = append(out, LinePoint{Time: ms, Value: p.Close})
		}
	}
	return out
}

func scale(candles []CandlePoint) Scale {
	var s Scale
	seen, seenTime := false, false
	for _, c := range candles {
		if !seenTime || c.Time < s.MinTime {
			s.MinTime, seenTime = c.Time, true
		}
		for _, v := range []derive.Value{c.Open, c.Close} {
			if !v.Valid {
				continue
			}
			if !seen {
				s.MinY, s.MaxY, seen = v.Float64, v.Float64, true
				continue
			}
			s.MinY = min(s.MinY, v.Float64)
			s.MaxY = max(s.MaxY, v.Float64)
		}
	}
	return s
}
