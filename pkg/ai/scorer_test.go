package ai

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"tradecontrol/internal/core"
)

type fakeModel struct {
	reply string
	err   error
	block bool
	calls atomic.Int32
	last  []llms.MessageContent
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls.Add(1)
	m.last = messages
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func testMint() core.MintSignal {
	return core.MintSignal{
		Mint:         "So11111111111111111111111111111111111111112",
		MarketCapUSD: 50_000,
		Volume24hUSD: 20_000,
		PriceUSD:     0.00005,
		HolderCount:  150,
		LiquidityUSD: 15_000,
		TopHolderPct: 12.5,
	}
}

func TestParseScore(t *testing.T) {
	t.Run("Embedded In Prose", func(t *testing.T) {
		score, err := parseScore("Sure. {\"confidence\": 0.82, \"reasoning\": \"strong volume\", \"should_buy\": true} hope this helps")
		require.NoError(t, err)
		assert.Equal(t, 0.82, score.Confidence)
		assert.Equal(t, "strong volume", score.Reasoning)
		assert.True(t, score.ShouldBuy)
	})

	t.Run("Confidence Clamped", func(t *testing.T) {
		score, err := parseScore(`{"confidence": 1.7, "reasoning": "", "should_buy": false}`)
		require.NoError(t, err)
		assert.Equal(t, 1.0, score.Confidence)
	})

	t.Run("No Object", func(t *testing.T) {
		_, err := parseScore("I cannot help with that")
		assert.Error(t, err)
	})

	t.Run("Broken JSON", func(t *testing.T) {
		_, err := parseScore(`{"confidence": high}`)
		assert.Error(t, err)
	})
}

func TestLLMScorer(t *testing.T) {
	t.Run("Parses Reply", func(t *testing.T) {
		model := &fakeModel{reply: `{"confidence": 0.75, "reasoning": "ok", "should_buy": true}`}
		scorer := NewLLMScorer(model, "deepseek-chat", time.Second)

		score, err := scorer.Score(context.Background(), testMint())
		require.NoError(t, err)
		assert.Equal(t, 0.75, score.Confidence)
		assert.True(t, score.ShouldBuy)

		require.Len(t, model.last, 2)
		assert.Equal(t, llms.ChatMessageTypeSystem, model.last[0].Role)
		human := model.last[1].Parts[0].(llms.TextContent).Text
		assert.Contains(t, human, "So11111111111111111111111111111111111111112")
		assert.Contains(t, human, "holders=150")
	})

	t.Run("Unparseable Reply Means No Buy", func(t *testing.T) {
		model := &fakeModel{reply: "the token looks fine"}
		score, err := NewLLMScorer(model, "deepseek-chat", time.Second).Score(context.Background(), testMint())
		require.NoError(t, err)
		assert.Equal(t, 0.0, score.Confidence)
		assert.False(t, score.ShouldBuy)
		assert.Contains(t, score.Reasoning, "parse error")
	})

	t.Run("Transport Error", func(t *testing.T) {
		model := &fakeModel{err: errors.New("status 500")}
		_, err := NewLLMScorer(model, "deepseek-chat", time.Second).Score(context.Background(), testMint())
		assert.Error(t, err)
	})

	t.Run("Times Out", func(t *testing.T) {
		model := &fakeModel{block: true}
		start := time.Now()
		_, err := NewLLMScorer(model, "deepseek-chat", 20*time.Millisecond).Score(context.Background(), testMint())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("Default Timeout", func(t *testing.T) {
		scorer := NewLLMScorer(&fakeModel{}, "deepseek-chat", 0)
		assert.Equal(t, DefaultScoreTimeout, scorer.timeout)
	})

	t.Run("Missing API Key", func(t *testing.T) {
		_, err := NewDeepSeekScorer(ScorerConfig{Model: "deepseek-chat"})
		assert.ErrorIs(t, err, core.ErrConfig)
	})
}
