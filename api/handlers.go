package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/config"
	"github.com/rustyeddy/strategylab/journal"
)

// files that may be downloaded from a result directory
var resultFiles = map[string]string{
	journal.TradesFile:  "text/csv",
	journal.HeatmapFile: "text/csv",
	journal.ReportFile:  "text/plain; charset=utf-8",
	journal.EquityFile:  "application/json",
	journal.SummaryFile: "application/json",
}

// GET /api/v1/strategies
func (s *Server) listStrategies(c *gin.Context) {
	specs := s.runner.Registry.List()
	out := make([]StrategyInfo, len(specs))
	for i, spec := range specs {
		out[i] = strategyInfo(spec)
	}
	c.JSON(http.StatusOK, gin.H{"strategies": out})
}

// GET /api/v1/strategies/:name
func (s *Server) getStrategy(c *gin.Context) {
	spec, err := s.runner.Registry.Lookup(c.Param("name"))
	if err != nil {
		abort(c, http.StatusNotFound, "UNKNOWN_STRATEGY", err.Error())
		return
	}
	c.JSON(http.StatusOK, strategyInfo(spec))
}

// GET /api/v1/results
func (s *Server) listResults(c *gin.Context) {
	keys, err := s.runner.Results.List()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": keys})
}

// GET /api/v1/results/:strategy/:asset
func (s *Server) getSummary(c *gin.Context) {
	sum, err := s.runner.Results.ReadSummary(c.Param("strategy"), c.Param("asset"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// GET /api/v1/results/:strategy/:asset/equity
func (s *Server) getEquity(c *gin.Context) {
	eq, err := s.runner.Results.ReadEquity(c.Param("strategy"), c.Param("asset"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"equity": eq})
}

// GET /api/v1/results/:strategy/:asset/files/:file
func (s *Server) getResultFile(c *gin.Context) {
	name := c.Param("file")
	ctype, ok := resultFiles[name]
	if !ok {
		abort(c, http.StatusNotFound, "UNKNOWN_FILE", "unknown result file "+strconv.Quote(name))
		return
	}
	path, err := s.runner.Results.Path(c.Param("strategy"), c.Param("asset"), name)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Type", ctype)
	c.File(path)
}

// canonical resolves a strategy name through the registry.
func (s *Server) canonical(c *gin.Context) (backtest.Spec, bool) {
	spec, err := s.runner.Registry.Lookup(c.Param("strategy"))
	if err != nil {
		fail(c, err)
		return backtest.Spec{}, false
	}
	return spec, true
}

// GET /api/v1/params
func (s *Server) listParams(c *gin.Context) {
	snap, err := s.runner.Store.Snapshot()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"params": snap.Entries()})
}

// GET /api/v1/params/:strategy/:asset
func (s *Server) getParams(c *gin.Context) {
	spec, ok := s.canonical(c)
	if !ok {
		return
	}
	ps, err := s.runner.Store.Get(spec.Name, c.Param("asset"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategy": spec.Name, "asset": c.Param("asset"), "params": ps})
}

// PUT /api/v1/params/:strategy/:asset
func (s *Server) putParams(c *gin.Context) {
	spec, ok := s.canonical(c)
	if !ok {
		return
	}
	var ps backtest.ParamSet
	if err := c.ShouldBindJSON(&ps); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	resolved, err := backtest.Resolve(spec.Params, ps)
	if err != nil {
		fail(c, err)
		return
	}
	if spec.Constraint != nil && !spec.Constraint(resolved) {
		abort(c, http.StatusBadRequest, "INVALID_CONFIG", spec.Name+": parameters violate the strategy constraint: "+resolved.String())
		return
	}
	if err := s.runner.Store.Set(spec.Name, c.Param("asset"), ps); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategy": spec.Name, "asset": c.Param("asset"), "params": ps})
}

// DELETE /api/v1/params/:strategy/:asset
func (s *Server) deleteParams(c *gin.Context) {
	spec, ok := s.canonical(c)
	if !ok {
		return
	}
	if err := s.runner.Store.Delete(spec.Name, c.Param("asset")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) journalReady(c *gin.Context) bool {
	if s.runs == nil {
		abort(c, http.StatusServiceUnavailable, "JOURNAL_DISABLED", "no run journal configured")
		return false
	}
	return true
}

// GET /api/v1/runs?strategy=&asset=&limit=
func (s *Server) listRuns(c *gin.Context) {
	if !s.journalReady(c) {
		return
	}
	f := journal.RunFilter{Strategy: c.Query("strategy"), Asset: c.Query("asset"), Limit: 50}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			abort(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	runs, err := s.runs.ListRuns(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]Run, len(runs))
	for i, r := range runs {
		out[i] = runModel(r)
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

// GET /api/v1/runs/:id
func (s *Server) getRun(c *gin.Context) {
	if !s.journalReady(c) {
		return
	}
	ctx := c.Request.Context()
	run, err := s.runs.GetBacktestRun(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	trades, err := s.runs.ListTradesByRunID(ctx, run.RunID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RunDetail{Run: runModel(run), TradeLedger: tradeModels(trades)})
}

// GET /api/v1/runs/:id/equity
func (s *Server) getRunEquity(c *gin.Context) {
	if !s.journalReady(c) {
		return
	}
	ctx := c.Request.Context()
	if _, err := s.runs.GetBacktestRun(ctx, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	snaps, err := s.runs.ListEquityByRunID(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	eq := make([]backtest.EquityPoint, len(snaps))
	for i, p := range snaps {
		eq[i] = backtest.EquityPoint{Time: p.Time, Equity: p.Equity, DrawdownPct: p.DrawdownPct}
	}
	c.JSON(http.StatusOK, gin.H{"equity": eq})
}

// POST /api/v1/backtest
func (s *Server) runBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	series, err := s.runner.Series(req.Asset)
	if err != nil {
		fail(c, err)
		return
	}

	sc := config.StrategyConfig{
		Name:        req.Strategy,
		Params:      req.Params,
		Optimize:    req.Optimize,
		ParamRanges: req.ParamRanges,
	}
	run := s.runner.RunOne
	if !req.Optimize && len(req.Params) > 0 {
		run = s.runner.RunParams
	}
	out, err := run(c.Request.Context(), sc, series)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
