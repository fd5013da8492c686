package strategy

import (
	"math"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// BuyThreshold is the composite score a mint must exceed to be bought
const BuyThreshold = 0.6

// RiskScorer blends a rule score with an optional analyzer score
type RiskScorer struct {
	maxMarketCapUSD float64
}

func NewRiskScorer(maxMarketCapUSD float64) *RiskScorer {
	return &RiskScorer{maxMarketCapUSD: maxMarketCapUSD}
}

// Score is 0.6·rule + 0.4·ai when a score is present, the rule score otherwise
func (s *RiskScorer) Score(signal core.Signal, mint core.MintSignal, ai *core.AiScore) float64 {
	rule := s.RuleScore(signal, mint)
	if ai == nil {
		log.WithFields(log.Fields{
			"mint":       mint.Mint,
			"rule_score": rule,
		}).Debug("AI unavailable, using rule score only")
		return rule
	}
	composite := rule*0.6 + ai.Confidence*0.4
	log.WithFields(log.Fields{
		"mint":       mint.Mint,
		"rule_score": rule,
		"ai_score":   ai.Confidence,
		"composite":  composite,
	}).Debug("Blended AI score with rule score")
	return core.Clamp01(composite)
}

// ShouldBuy is true when the composite score is strictly above BuyThreshold
func (s *RiskScorer) ShouldBuy(signal core.Signal, mint core.MintSignal, ai *core.AiScore) bool {
	return s.Score(signal, mint, ai) > BuyThreshold
}

// RuleScore weighs confidence 0.5, liquidity 0.3 and market-cap headroom 0.2
func (s *RiskScorer) RuleScore(signal core.Signal, mint core.MintSignal) float64 {
	liquidity := math.Min(mint.LiquidityUSD/1_000_000, 1)
	mcap := 0.5
	if mint.MarketCapUSD > 0 && s.maxMarketCapUSD > 0 {
		mcap = 1 - math.Min(mint.MarketCapUSD/s.maxMarketCapUSD, 1)
	}
	return core.Clamp01(signal.Confidence*0.5 + liquidity*0.3 + mcap*0.2)
}
