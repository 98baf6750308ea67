package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/batch"
	"github.com/rustyeddy/strategylab/journal"
	"github.com/rustyeddy/strategylab/market"
	"github.com/rustyeddy/strategylab/optimize"
	"github.com/rustyeddy/strategylab/paramstore"
)

// Recovery turns a handler panic into a 500 error envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		msg := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			msg = s
		}
		log.Error().Str("path", c.Request.URL.Path).Interface("panic", recovered).Msg("handler panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{Code: "INTERNAL_ERROR", Message: msg},
		})
	})
}

// Logger logs one line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: msg}})
}

// fail maps a domain error onto a status and error code.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, backtest.ErrConfig):
		abort(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
	case errors.Is(err, optimize.ErrNoCandidates):
		abort(c, http.StatusBadRequest, "NO_CANDIDATES", err.Error())
	case errors.Is(err, batch.ErrUnknownAsset):
		abort(c, http.StatusNotFound, "UNKNOWN_ASSET", err.Error())
	case errors.Is(err, paramstore.ErrNotFound):
		abort(c, http.StatusNotFound, "PARAMS_NOT_FOUND", err.Error())
	case errors.Is(err, journal.ErrNoResults):
		abort(c, http.StatusNotFound, "RESULTS_NOT_FOUND", err.Error())
	case errors.Is(err, journal.ErrRunNotFound):
		abort(c, http.StatusNotFound, "RUN_NOT_FOUND", err.Error())
	case errors.Is(err, market.ErrData):
		abort(c, http.StatusUnprocessableEntity, "DATA_ERROR", err.Error())
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", fmt.Sprintf("internal error: %v", err))
	}
}
