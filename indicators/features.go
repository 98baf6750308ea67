package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/strategylab/market"
)

// Feature column names added by AddFeatures.
const (
	FeatureRSI = "RSI_14"
	FeatureATR = "ATR_14"
)

// AddFeatures appends the RSI_14 and ATR_14 columns to s and drops the
// leading rows where either is still warming up.
func AddFeatures(s *market.Series) (*market.Series, error) {
	rsi, err := RSI(s.Closes(), 14)
	if err != nil {
		return nil, err
	}
	atr, err := ATR(s.Highs(), s.Lows(), s.Closes(), 14)
	if err != nil {
		return nil, err
	}

	out, err := s.WithFeature(FeatureRSI, rsi)
	if err != nil {
		return nil, err
	}
	out, err = out.WithFeature(FeatureATR, atr)
	if err != nil {
		return nil, err
	}

	drop := 0
	for drop < out.Len() && (math.IsNaN(rsi[drop]) || math.IsNaN(atr[drop])) {
		drop++
	}
	if drop >= out.Len() {
		return nil, fmt.Errorf("%w: %s: %d bars is not enough to warm up features", market.ErrData, s.Name, s.Len())
	}
	return out.DropLeading(drop)
}
