package refresh

import (
	"errors"
	"fmt"

	"ammclob/internal/align"
	"ammclob/internal/market"
)

var (
	// ErrSourceEmpty means one of the three series came back with zero rows.
	ErrSourceEmpty = errors.New("no data for this pair/interval")
	// ErrTransport wraps a market data source failure.
	ErrTransport = errors.New("market data transport failure")
	// ErrNotReady is returned by Frame while no READY snapshot exists.
	ErrNotReady = errors.New("chart data not ready")
)

// FetchError identifies which of the three fetches failed.
type FetchError struct {
	Source market.Source
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// State is the controller lifecycle state.
type State int

const (
	Idle State = iota
	Fetching
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Fetching:
		return "FETCHING"
	case Ready:
		return "READY"
	case Failed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st := Idle; st <= Failed; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Status is a point-in-time view of the controller.
type Status struct {
	State      State      `json:"state"`
	Generation uint64     `json:"generation"`
	Key        market.Key `json:"key"`
	HasKey     bool       `json:"has_key"`
	Err        error      `json:"-"`
}

// Message renders Err for clients; empty unless FAILED.
func (s Status) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Snapshot is one generation's merged series. It is never mutated after READY.
type Snapshot struct {
	Generation uint64
	Key        market.Key
	AMM        *market.Series
	CLOB       *market.Series
	Blended    *market.Series
	Rows       []align.Row
}

// Series returns the snapshot's series for a source.
func (s *Snapshot) Series(source market.Source) *market.Series {
	switch source {
	case market.SourceAMM:
		return s.AMM
	case market.SourceCLOB:
		return s.CLOB
	default:
		return s.Blended
	}
}
