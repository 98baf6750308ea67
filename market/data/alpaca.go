package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/strategylab/market"
)

// barsClient is the part of the Alpaca market-data client the fetcher
// uses.
type barsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaFetcher downloads historical bars from the Alpaca market-data API.
type AlpacaFetcher struct {
	client barsClient
	feed   string
}

// NewAlpacaFetcher builds a fetcher. An empty dataURL uses Alpaca's
// default endpoint; an empty feed uses the account default.
func NewAlpacaFetcher(apiKey, apiSecret, dataURL, feed string) *AlpacaFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaFetcher{client: marketdata.NewClient(opts), feed: feed}
}

// ParseTimeFrame accepts 1Min, 5Min, 15Min, 1Hour, 1Day, 1Week and 1Month
// (case-insensitive).
func ParseTimeFrame(s string) (marketdata.TimeFrame, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1day", "day", "1d":
		return marketdata.OneDay, nil
	case "1min", "min", "1m":
		return marketdata.OneMin, nil
	case "5min", "5m":
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case "15min", "15m":
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case "1hour", "hour", "1h":
		return marketdata.OneHour, nil
	case "1week", "week", "1w":
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	case "1month", "month":
		return marketdata.NewTimeFrame(1, marketdata.Month), nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("data: unknown timeframe %q", s)
}

// Fetch downloads [start, end) bars for symbol.
func (f *AlpacaFetcher) Fetch(ctx context.Context, symbol string, start, end time.Time, tf marketdata.TimeFrame) (*market.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("data: symbol is required")
	}

	abars, err := f.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame:  tf,
		Start:      start,
		End:        end,
		Feed:       marketdata.Feed(f.feed),
		Adjustment: marketdata.All,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]market.Bar, 0, len(abars))
	for _, ab := range abars {
		bars = append(bars, market.Bar{
			Time:   ab.Timestamp.UTC(),
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: float64(ab.Volume),
		})
	}

	log.Info().Str("symbol", symbol).Str("timeframe", tf.String()).Int("bars", len(bars)).Msg("fetched bars")
	return market.Clean(symbol, bars)
}
