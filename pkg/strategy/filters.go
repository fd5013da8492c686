package strategy

import (
	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// MintFilter rejects mint events before they are scored
type MintFilter interface {
	Name() string
	Passes(signal core.MintSignal) bool
}

// McapFilter keeps mints whose market cap lies within [MinUSD, MaxUSD]
type McapFilter struct {
	MinUSD float64
	MaxUSD float64
}

func NewMcapFilter(minUSD, maxUSD float64) McapFilter {
	return McapFilter{MinUSD: minUSD, MaxUSD: maxUSD}
}

func (f McapFilter) Name() string { return "mcap" }

func (f McapFilter) Passes(signal core.MintSignal) bool {
	passes := signal.MarketCapUSD >= f.MinUSD && signal.MarketCapUSD <= f.MaxUSD
	if !passes {
		log.WithFields(log.Fields{
			"mint": signal.Mint,
			"mcap": signal.MarketCapUSD,
		}).Info("McapFilter rejected")
	}
	return passes
}

// ZScoreFilter keeps mints whose 24h volume sits at least Threshold standard
// deviations above the reference mean.
type ZScoreFilter struct {
	Mean      float64
	StdDev    float64
	Threshold float64
}

func NewZScoreFilter(mean, stdDev, threshold float64) ZScoreFilter {
	return ZScoreFilter{Mean: mean, StdDev: stdDev, Threshold: threshold}
}

func (f ZScoreFilter) Name() string { return "zscore" }

// ZScore is 0 when the reference distribution has no spread
func (f ZScoreFilter) ZScore(value float64) float64 {
	if f.StdDev == 0 {
		return 0
	}
	return (value - f.Mean) / f.StdDev
}

func (f ZScoreFilter) Passes(signal core.MintSignal) bool {
	z := f.ZScore(signal.Volume24hUSD)
	passes := z >= f.Threshold
	if !passes {
		log.WithFields(log.Fields{
			"mint":      signal.Mint,
			"z_score":   z,
			"threshold": f.Threshold,
		}).Info("ZScoreFilter rejected")
	}
	return passes
}

// RugCheckFilter screens out thin liquidity, concentrated holders and tiny holder sets
type RugCheckFilter struct {
	MinLiquidityUSD float64
	MaxTopHolderPct float64
	MinHolderCount  uint64
}

func NewRugCheckFilter(minLiquidityUSD, maxTopHolderPct float64, minHolderCount uint64) RugCheckFilter {
	return RugCheckFilter{
		MinLiquidityUSD: minLiquidityUSD,
		MaxTopHolderPct: maxTopHolderPct,
		MinHolderCount:  minHolderCount,
	}
}

func (f RugCheckFilter) Name() string { return "rugcheck" }

func (f RugCheckFilter) Passes(signal core.MintSignal) bool {
	entry := log.WithField("mint", signal.Mint)
	if signal.LiquidityUSD < f.MinLiquidityUSD {
		entry.WithField("liquidity", signal.LiquidityUSD).Info("RugCheckFilter: insufficient liquidity")
		return false
	}
	if signal.TopHolderPct > f.MaxTopHolderPct {
		entry.WithField("top_holder_pct", signal.TopHolderPct).Info("RugCheckFilter: top holder concentration too high")
		return false
	}
	if signal.HolderCount < f.MinHolderCount {
		entry.WithField("holder_count", signal.HolderCount).Info("RugCheckFilter: too few holders")
		return false
	}
	return true
}

// Chain applies filters in order and reports the first one that rejects
type Chain []MintFilter

// Passes returns the name of the rejecting filter, or "" when all pass
func (c Chain) Passes(signal core.MintSignal) (bool, string) {
	for _, f := range c {
		if !f.Passes(signal) {
			return false, f.Name()
		}
	}
	return true, ""
}
