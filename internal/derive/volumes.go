package derive

import (
	"fmt"

	"ammclob/internal/align"
	"ammclob/internal/market"
)

// VolumeBar is a stacked [AMM, CLOB] base-volume pair for one row.
type VolumeBar struct {
	Timestamp string  `json:"timestamp"`
	AMM       float64 `json:"amm"`
	CLOB      float64 `json:"clob"`
}

// Total is the combined volume of both components.
func (v VolumeBar) Total() float64 {
	return v.AMM + v.CLOB
}

// PricePoint is one close price on a comparison line.
type PricePoint struct {
	Timestamp string  `json:"timestamp"`
	Close     float64 `json:"close"`
}

// Prices feeds the secondary comparison chart.
type Prices struct {
	AMM            []PricePoint `json:"amm"`
	CLOB           []PricePoint `json:"clob"`
	CombinedVolume []VolumeBar  `json:"combined_volume"`
}

// Volumes emits the stacked volume per row. Single-sided sources zero the
// other component; a missing CLOB bucket contributes zero.
func Volumes(rows []align.Row, source market.Source) ([]VolumeBar, error) {
	var useAMM, useCLOB bool
	switch source {
	case market.SourceBlended:
		useAMM, useCLOB = true, true
	case market.SourceAMM:
		useAMM = true
	case market.SourceCLOB:
		useCLOB = true
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSource, int(source))
	}

	out := make([]VolumeBar, 0, len(rows))
	for _, r := range rows {
		bar := VolumeBar{Timestamp: r.Timestamp}
		if useAMM {
			bar.AMM = sideVolume(r.AMM)
		}
		if useCLOB {
			bar.CLOB = sideVolume(r.CLOB)
		}
		out = append(out, bar)
	}
	return out, nil
}

// PriceSeries builds both close-price lines and the combined volume. Partial
// rows contribute only the sides they have.
func PriceSeries(rows []align.Row) Prices {
	p := Prices{
		AMM:            make([]PricePoint, 0, len(rows)),
		CLOB:           make([]PricePoint, 0, len(rows)),
		CombinedVolume: make([]VolumeBar, 0, len(rows)),
	}
	for _, r := range rows {
		if c := finite(r.AMM.Bucket.Close); r.AMM.Present && c.Valid {
			p.AMM = append(p.AMM, PricePoint{Timestamp: r.Timestamp, Close: c.Float64})
		}
		if c := finite(r.CLOB.Bucket.Close); r.CLOB.Present && c.Valid {
			p.CLOB = append(p.CLOB, PricePoint{Timestamp: r.Timestamp, Close: c.Float64})
		}
		p.CombinedVolume = append(p.CombinedVolume, VolumeBar{
			Timestamp: r.Timestamp,
			AMM:       sideVolume(r.AMM),
			CLOB:      sideVolume(r.CLOB),
		})
	}
	return p
}

func sideVolume(s align.Side) float64 {
	if !s.Present {
		return 0
	}
	if v := finite(s.Bucket.BaseVolume); v.Valid {
		return v.Float64
	}
	return 0
}
