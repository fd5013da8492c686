package stream

import (
	"math"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

const (
	buyConfidence  = 0.7
	sellConfidence = 0.3
)

// SignalPipeline turns mint events into directional signals using
// liquidity depth and volume turnover.
type SignalPipeline struct {
	minLiquidityUSD float64
}

func NewSignalPipeline(minLiquidityUSD float64) *SignalPipeline {
	return &SignalPipeline{minLiquidityUSD: minLiquidityUSD}
}

// Evaluate returns false when the mint is below the liquidity floor
func (p *SignalPipeline) Evaluate(mint core.MintSignal) (core.Signal, bool) {
	if mint.LiquidityUSD < p.minLiquidityUSD {
		log.WithFields(log.Fields{
			"mint":      mint.Mint,
			"liquidity": mint.LiquidityUSD,
			"threshold": p.minLiquidityUSD,
		}).Debug("Mint filtered on liquidity")
		return core.Signal{}, false
	}

	confidence := Confidence(mint)
	kind := core.SignalHold
	switch {
	case confidence > buyConfidence:
		kind = core.SignalBuy
	case confidence < sellConfidence:
		kind = core.SignalSell
	}
	return core.NewSignal(mint.Mint, kind, confidence), true
}

// Process evaluates a batch, dropping filtered mints
func (p *SignalPipeline) Process(mints []core.MintSignal) []core.Signal {
	signals := make([]core.Signal, 0, len(mints))
	for _, m := range mints {
		if s, ok := p.Evaluate(m); ok {
			signals = append(signals, s)
		}
	}
	log.WithFields(log.Fields{
		"mints":   len(mints),
		"signals": len(signals),
	}).Debug("Mint batch evaluated")
	return signals
}

// Confidence is the mean of liquidity depth (capped at $1M) and volume/liquidity turnover
func Confidence(mint core.MintSignal) float64 {
	liquidity := math.Min(mint.LiquidityUSD/1_000_000, 1)
	volume := 0.0
	if mint.LiquidityUSD > 0 {
		volume = math.Min(mint.Volume24hUSD/mint.LiquidityUSD, 1)
	}
	return core.Clamp01(liquidity*0.5 + volume*0.5)
}
