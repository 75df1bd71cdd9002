package market

import "fmt"

// Source names one of the three bucketed series fetched per request key.
type Source int

const (
	SourceAMM Source = iota
	SourceCLOB
	SourceBlended
)

var sourceNames = map[Source]string{
	SourceAMM:     "AMM",
	SourceCLOB:    "CLOB",
	SourceBlended: "BLENDED",
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// IsValid reports whether s is one of the known sources.
func (s Source) IsValid() bool {
	_, ok := sourceNames[s]
	return ok
}

// ParseSource accepts "AMM", "CLOB", "BLENDED" and the legacy alias "ALL".
func ParseSource(s string) (Source, error) {
	switch s {
	case "AMM", "amm":
		return SourceAMM, nil
	case "CLOB", "clob":
		return SourceCLOB, nil
	case "BLENDED", "blended", "ALL", "all":
		return SourceBlended, nil
	}
	return 0, fmt.Errorf("unknown source %q", s)
}

func (s Source) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("unknown source %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(b []byte) error {
	v, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Filter is the wire-level selector for which trades a bucket summarizes.
type Filter int

const (
	FilterAll Filter = iota
	FilterAMMOnly
	FilterCLOBOnly
)

func (f Filter) String() string {
	switch f {
	case FilterAMMOnly:
		return "AMM_ONLY"
	case FilterCLOBOnly:
		return "CLOB_ONLY"
	default:
		return "ALL"
	}
}

// Filter maps a series source to the filter used to fetch it.
func (s Source) Filter() Filter {
	switch s {
	case SourceAMM:
		return FilterAMMOnly
	case SourceCLOB:
		return FilterCLOBOnly
	default:
		return FilterAll
	}
}

// Sources lists the three series fetched on every refresh.
func Sources() []Source {
	return []Source{SourceAMM, SourceCLOB, SourceBlended}
}
