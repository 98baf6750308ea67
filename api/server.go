// Package api serves persisted backtest results, the optimized-params
// cache and the strategy catalogue over HTTP, and runs single backtests
// on request.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/strategylab/batch"
	"github.com/rustyeddy/strategylab/journal"
)

// RunStore is the read side of the run journal.
type RunStore interface {
	ListRuns(ctx context.Context, f journal.RunFilter) ([]journal.BacktestRun, error)
	GetBacktestRun(ctx context.Context, runID string) (journal.BacktestRun, error)
	ListTradesByRunID(ctx context.Context, runID string) ([]journal.TradeRecord, error)
	ListEquityByRunID(ctx context.Context, runID string) ([]journal.EquitySnapshot, error)
}

// Server holds the HTTP routes. Runs may be nil, in which case the /runs
// endpoints answer 503.
type Server struct {
	runner  *batch.Runner
	runs    RunStore
	origins []string

	router *gin.Engine
	runMu  sync.Mutex
}

func New(runner *batch.Runner, runs RunStore, allowedOrigins []string) *Server {
	s := &Server{
		runner:  runner,
		runs:    runs,
		origins: allowedOrigins,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(Logger(), Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/strategies", s.listStrategies)
		v1.GET("/strategies/:name", s.getStrategy)

		v1.GET("/results", s.listResults)
		v1.GET("/results/:strategy/:asset", s.getSummary)
		v1.GET("/results/:strategy/:asset/equity", s.getEquity)
		v1.GET("/results/:strategy/:asset/files/:file", s.getResultFile)

		v1.GET("/params", s.listParams)
		v1.GET("/params/:strategy/:asset", s.getParams)
		v1.PUT("/params/:strategy/:asset", s.putParams)
		v1.DELETE("/params/:strategy/:asset", s.deleteParams)

		v1.GET("/runs", s.listRuns)
		v1.GET("/runs/:id", s.getRun)
		v1.GET("/runs/:id/equity", s.getRunEquity)

		v1.POST("/backtest", s.runBacktest)
	}

	r.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "NOT_FOUND", "no route for "+c.Request.URL.Path)
	})
	return r
}

// Handler returns the routes wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting api server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("shutting down api server")
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	return nil
}
