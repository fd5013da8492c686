package ai

import (
	"context"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// CachedAnalyzer fronts a scorer with the score cache. Scoring failures are
// logged and reported as "no score" so the pipeline can fall back to rules.
type CachedAnalyzer struct {
	scorer MintScorer
	cache  *ScoreCache
}

func NewCachedAnalyzer(scorer MintScorer, cache *ScoreCache) *CachedAnalyzer {
	return &CachedAnalyzer{scorer: scorer, cache: cache}
}

// Analyze returns the cached verdict when fresh, otherwise scores the mint
func (a *CachedAnalyzer) Analyze(ctx context.Context, signal core.MintSignal) (core.ScoredSignal, bool) {
	if score, ok := a.cache.Get(signal.Mint); ok {
		return core.ScoredSignal{Mint: signal, Score: score}, true
	}

	score, err := a.scorer.Score(ctx, signal)
	if err != nil {
		log.WithFields(log.Fields{
			"mint":  signal.Mint,
			"error": err,
		}).Warn("AI scoring failed, continuing without score")
		return core.ScoredSignal{}, false
	}

	a.cache.Insert(signal.Mint, score)
	return core.ScoredSignal{Mint: signal, Score: score}, true
}

// Cache exposes the underlying cache
func (a *CachedAnalyzer) Cache() *ScoreCache {
	return a.cache
}

var _ core.Analyzer = (*CachedAnalyzer)(nil)
