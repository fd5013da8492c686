package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradecontrol/internal/core"
)

type stubScorer struct {
	score core.AiScore
	err   error
	calls int
}

func (s *stubScorer) Score(_ context.Context, _ core.MintSignal) (core.AiScore, error) {
	s.calls++
	return s.score, s.err
}

func TestCachedAnalyzer(t *testing.T) {
	t.Run("Second Call Served From Cache", func(t *testing.T) {
		scorer := &stubScorer{score: core.AiScore{Confidence: 0.7, ShouldBuy: true}}
		analyzer := NewCachedAnalyzer(scorer, NewScoreCache(time.Minute, 0))

		first, ok := analyzer.Analyze(context.Background(), testMint())
		assert.True(t, ok)
		second, ok := analyzer.Analyze(context.Background(), testMint())
		assert.True(t, ok)

		assert.Equal(t, first.Score, second.Score)
		assert.Equal(t, testMint().Mint, second.Mint.Mint)
		assert.Equal(t, 1, scorer.calls)
	})

	t.Run("Failure Yields No Score And Is Not Cached", func(t *testing.T) {
		scorer := &stubScorer{err: errors.New("timeout")}
		analyzer := NewCachedAnalyzer(scorer, NewScoreCache(time.Minute, 0))

		_, ok := analyzer.Analyze(context.Background(), testMint())
		assert.False(t, ok)
		assert.Equal(t, 0, analyzer.Cache().Len())
	})
}
