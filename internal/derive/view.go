package derive

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"ammclob/internal/market"
)

var (
	// ErrUnknownSource is returned for a source tag outside AMM, CLOB, BLENDED.
	ErrUnknownSource = errors.New("unknown source")
	// ErrUnknownComparison is returned for a comparison tag outside RAW_PAIR, DEVIATION.
	ErrUnknownComparison = errors.New("unknown comparison")
)

// Comparison selects how candles relate the AMM and CLOB sides.
type Comparison int

const (
	// RawPair shows the selected source's own prices.
	RawPair Comparison = iota
	// Deviation shows AMM / CLOB for every price field.
	Deviation
)

func (c Comparison) String() string {
	switch c {
	case RawPair:
		return "RAW_PAIR"
	case Deviation:
		return "DEVIATION"
	}
	return fmt.Sprintf("Comparison(%d)", int(c))
}

// ParseComparison parses "RAW_PAIR" or "DEVIATION".
func ParseComparison(s string) (Comparison, error) {
	switch s {
	case "RAW_PAIR", "raw_pair", "RAW", "raw":
		return RawPair, nil
	case "DEVIATION", "deviation":
		return Deviation, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownComparison, s)
}

func (c Comparison) MarshalText() ([]byte, error) {
	if c != RawPair && c != Deviation {
		return nil, fmt.Errorf("%w: %d", ErrUnknownComparison, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Comparison) UnmarshalText(b []byte) error {
	v, err := ParseComparison(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// View is the display selection. Changing it never refetches.
type View struct {
	Source     market.Source `json:"source"`
	Comparison Comparison    `json:"comparison"`
}

// Validate rejects unknown tags.
func (v View) Validate() error {
	if !v.Source.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnknownSource, int(v.Source))
	}
	if v.Comparison != RawPair && v.Comparison != Deviation {
		return fmt.Errorf("%w: %d", ErrUnknownComparison, int(v.Comparison))
	}
	return nil
}

// Value is a derived number. Valid=false marks no data or an undefined ratio.
type Value struct {
	Float64 float64
	Valid   bool
}

// Some wraps a defined number.
func Some(f float64) Value {
	return Value{Float64: f, Valid: true}
}

// Undefined is the marker for a missing value or an undefined ratio.
var Undefined = Value{}

// Ratio divides num by den. Zero denominators and non-finite results are undefined.
func Ratio(num, den Value) Value {
	if !num.Valid || !den.Valid || den.Float64 == 0 {
		return Undefined
	}
	r := num.Float64 / den.Float64
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return Undefined
	}
	return Some(r)
}

// MarshalJSON renders undefined values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Float64)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Undefined
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
