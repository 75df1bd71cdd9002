package market

// Bucket is one interval's trade summary for one source series.
// Timestamp is opaque and is only used as a join key.
type Bucket struct {
	Timestamp     string  `json:"timestamp"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	BaseVolume    float64 `json:"base_volume"`
	CounterVolume float64 `json:"counter_volume"`
	ExchangeCount int     `json:"exchanges"`
}

// Series is an immutable, ordered sequence of buckets for one source and key,
// indexed by timestamp. A nil *Series behaves as an empty series.
type Series struct {
	source  Source
	key     Key
	buckets []Bucket
	index   map[string]int
	dropped int
}

// NewSeries builds a series in the order given. When a timestamp occurs more
// than once the last occurrence wins, in its own position, and earlier ones
// are discarded.
func NewSeries(source Source, key Key, buckets []Bucket) *Series {
	last := make(map[string]int, len(buckets))
	for i, b := range buckets {
		last[b.Timestamp] = i
	}

	s := &Series{
		source:  source,
		key:     key,
		buckets: make([]Bucket, 0, len(last)),
		index:   make(map[string]int, len(last)),
	}
	for i, b := range buckets {
		if last[b.Timestamp] != i {
			s.dropped++
			continue
		}
		s.index[b.Timestamp] = len(s.buckets)
		s.buckets = append(s.buckets, b)
	}
	return s
}

func (s *Series) Source() Source { return s.source }

func (s *Series) Key() Key { return s.key }

// Len returns the number of distinct buckets.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.buckets)
}

// Dropped returns how many duplicate buckets were discarded at construction.
func (s *Series) Dropped() int {
	if s == nil {
		return 0
	}
	return s.dropped
}

// At returns the i-th bucket in series order.
func (s *Series) At(i int) Bucket {
	return s.buckets[i]
}

// Get looks up a bucket by timestamp.
func (s *Series) Get(timestamp string) (Bucket, bool) {
	if s == nil {
		return Bucket{}, false
	}
	i, ok := s.index[timestamp]
	if !ok {
		return Bucket{}, false
	}
	return s.buckets[i], true
}

// Buckets returns a copy of the buckets in series order.
func (s *Series) Buckets() []Bucket {
	if s == nil {
		return nil
	}
	cp := make([]Bucket, len(s.buckets))
	copy(cp, s.buckets)
	return cp
}
