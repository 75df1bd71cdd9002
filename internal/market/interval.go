package market

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInterval is returned when an interval string is not in the table.
var ErrInvalidInterval = errors.New("invalid interval")

// Interval is the bucket width used for market data requests (e.g. "8h").
type Interval string

// IntervalMeta holds the API value and duration for an Interval.
type IntervalMeta struct {
	APIValue string
	Duration time.Duration
}

const (
	Interval1Day   Interval = "1d"
	Interval12Hour Interval = "12h"
	Interval8Hour  Interval = "8h"
	Interval4Hour  Interval = "4h"
	Interval1Hour  Interval = "1h"
	Interval30Min  Interval = "30m"
	Interval15Min  Interval = "15m"
	Interval5Min   Interval = "5m"
	Interval1Min   Interval = "1m"
)

// intervalOrder is the display order, widest first.
var intervalOrder = []Interval{
	Interval1Day, Interval12Hour, Interval8Hour, Interval4Hour, Interval1Hour,
	Interval30Min, Interval15Min, Interval5Min, Interval1Min,
}

var validIntervals = map[Interval]IntervalMeta{
	Interval1Day:   {APIValue: "1d", Duration: 24 * time.Hour},
	Interval12Hour: {APIValue: "12h", Duration: 12 * time.Hour},
	Interval8Hour:  {APIValue: "8h", Duration: 8 * time.Hour},
	Interval4Hour:  {APIValue: "4h", Duration: 4 * time.Hour},
	Interval1Hour:  {APIValue: "1h", Duration: time.Hour},
	Interval30Min:  {APIValue: "30m", Duration: 30 * time.Minute},
	Interval15Min:  {APIValue: "15m", Duration: 15 * time.Minute},
	Interval5Min:   {APIValue: "5m", Duration: 5 * time.Minute},
	Interval1Min:   {APIValue: "1m", Duration: time.Minute},
}

// IsValid checks if the Interval is one of the predefined intervals.
func (i Interval) IsValid() bool {
	_, ok := validIntervals[i]
	return ok
}

// Meta returns the table entry for i. The zero value is returned for unknown intervals.
func (i Interval) Meta() IntervalMeta {
	return validIntervals[i]
}

// Duration returns the bucket width.
func (i Interval) Duration() time.Duration {
	return validIntervals[i].Duration
}

func (i Interval) String() string { return string(i) }

// ParseInterval parses a string into a valid Interval.
func ParseInterval(s string) (Interval, error) {
	interval := Interval(s)
	if !interval.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	return interval, nil
}

// Intervals lists every supported interval, widest first.
func Intervals() []Interval {
	out := make([]Interval, len(intervalOrder))
	copy(out, intervalOrder)
	return out
}
