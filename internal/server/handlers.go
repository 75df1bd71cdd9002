package server

import (
	"errors"
	"fmt"
	"net/http"

	"ammclob/internal/derive"
	"ammclob/internal/market"
	"ammclob/internal/refresh"

	"github.com/gin-gonic/gin"
)

var errBadRequest = errors.New("bad request")

// SelectionRequest picks a pool by index or a pair by asset strings. Missing
// fields keep the current selection.
type SelectionRequest struct {
	Pool     *int   `json:"pool,omitempty"`
	Base     string `json:"base,omitempty"`
	Counter  string `json:"counter,omitempty"`
	Interval string `json:"interval,omitempty"`
}

// ViewRequest changes the display selection. Empty fields are kept.
type ViewRequest struct {
	Source     string `json:"source,omitempty"`
	Comparison string `json:"comparison,omitempty"`
}

// StatusResponse is the client-facing controller status.
type StatusResponse struct {
	State      refresh.State `json:"state"`
	Generation uint64        `json:"generation"`
	Key        *market.Key   `json:"key,omitempty"`
	View       derive.View   `json:"view"`
	Error      string        `json:"error,omitempty"`
	NoData     bool          `json:"no_data,omitempty"`
}

func (s *Server) statusResponse(st refresh.Status) StatusResponse {
	resp := StatusResponse{
		State:      st.State,
		Generation: st.Generation,
		View:       s.chart.View(),
		Error:      st.Message(),
		NoData:     refresh.IsSourceEmpty(st.Err),
	}
	if st.HasKey {
		key := st.Key
		resp.Key = &key
	}
	return resp
}

func (s *Server) applySelection(req SelectionRequest) (uint64, market.Key, error) {
	st := s.chart.Status()

	interval := s.defaultInterval
	if st.HasKey {
		interval = st.Key.Interval
	}
	if req.Interval != "" {
		iv, err := market.ParseInterval(req.Interval)
		if err != nil {
			return 0, market.Key{}, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		interval = iv
	}

	var pair market.Pair
	switch {
	case req.Pool != nil:
		pool, ok := s.pools.Get(*req.Pool)
		if !ok {
			return 0, market.Key{}, fmt.Errorf("%w: unknown pool %d", errBadRequest, *req.Pool)
		}
		pair = pool.Pair
	case req.Base != "" || req.Counter != "":
		base, err := market.ParseAssetRef(req.Base)
		if err != nil {
			return 0, market.Key{}, fmt.Errorf("%w: base: %w", errBadRequest, err)
		}
		counter, err := market.ParseAssetRef(req.Counter)
		if err != nil {
			return 0, market.Key{}, fmt.Errorf("%w: counter: %w", errBadRequest, err)
		}
		pair = market.Pair{Base: base, Counter: counter}
	case st.HasKey:
		pair = st.Key.Pair
	default:
		return 0, market.Key{}, fmt.Errorf("%w: no pair selected", errBadRequest)
	}

	gen, err := s.chart.Select(pair, interval)
	if err != nil {
		return 0, market.Key{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return gen, market.Key{Pair: pair, Interval: interval}, nil
}

func (s *Server) applyView(req ViewRequest) (derive.View, error) {
	view := s.chart.View()
	if req.Source != "" {
		src, err := market.ParseSource(req.Source)
		if err != nil {
			return view, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		view.Source = src
	}
	if req.Comparison != "" {
		cmp, err := derive.ParseComparison(req.Comparison)
		if err != nil {
			return view, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		view.Comparison = cmp
	}
	if err := s.chart.SetView(view); err != nil {
		return view, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return view, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handlePools(c *gin.Context) {
	pools := s.pools.All()
	payload := make([]gin.H, 0, len(pools))
	for _, p := range pools {
		payload = append(payload, gin.H{
			"index":   p.Index,
			"id":      p.ID,
			"label":   p.Label(),
			"base":    p.Pair.Base.APIString(),
			"counter": p.Pair.Counter.APIString(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"pools": payload, "loads": s.pools.Loads()})
}

func (s *Server) handleIntervals(c *gin.Context) {
	intervals := market.Intervals()
	payload := make([]string, 0, len(intervals))
	for _, iv := range intervals {
		payload = append(payload, iv.String())
	}
	c.JSON(http.StatusOK, gin.H{"intervals": payload, "default": s.defaultInterval.String()})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.statusResponse(s.chart.Status()))
}

func (s *Server) handleSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gen, key, err := s.applySelection(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"generation": gen, "key": key}
	if pool, ok := s.pools.Find(key.Pair); ok {
		resp["pool"] = pool.Index
	}
	c.JSON(http.StatusAccepted, resp)
}

func (s *Server) handleView(c *gin.Context) {
	var req ViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := s.applyView(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": view})
}

func (s *Server) handleReload(c *gin.Context) {
	gen, ok := s.chart.Reload()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "no pair selected"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"generation": gen})
}

func (s *Server) handleFrame(c *gin.Context) {
	frame, err := s.chart.Frame()
	if err == nil {
		c.JSON(http.StatusOK, frame)
		return
	}

	st := s.chart.Status()
	code, body := frameError(err, st)
	body["status"] = s.statusResponse(st)
	c.JSON(code, body)
}

// frameError maps a Frame failure onto an HTTP status.
func frameError(err error, st refresh.Status) (int, gin.H) {
	switch {
	case errors.Is(err, refresh.ErrNotReady):
		if st.State == refresh.Idle {
			return http.StatusConflict, gin.H{"error": "no pair selected"}
		}
		return http.StatusAccepted, gin.H{"loading": true}
	case refresh.IsSourceEmpty(err):
		body := gin.H{"error": refresh.ErrSourceEmpty.Error()}
		var fe *refresh.FetchError
		if errors.As(err, &fe) {
			body["source"] = fe.Source
		}
		return http.StatusNotFound, body
	case errors.Is(err, refresh.ErrTransport):
		return http.StatusBadGateway, gin.H{"error": err.Error()}
	}
	return http.StatusInternalServerError, gin.H{"error": err.Error()}
}
