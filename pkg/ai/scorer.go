package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"tradecontrol/internal/core"
)

// DefaultScoreTimeout bounds one model call
const DefaultScoreTimeout = 800 * time.Millisecond

const scoreTemperature = 0.1

// ScorerConfig selects the chat-completions endpoint used for scoring
type ScorerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// MintScorer turns a mint event into an analyzer verdict
type MintScorer interface {
	Score(ctx context.Context, signal core.MintSignal) (core.AiScore, error)
}

// LLMScorer asks an OpenAI-compatible chat model (DeepSeek by default) to
// grade a mint.
type LLMScorer struct {
	model   llms.Model
	name    string
	timeout time.Duration
}

// NewDeepSeekScorer connects to the DeepSeek chat-completions API
func NewDeepSeekScorer(cfg ScorerConfig) (*LLMScorer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: DEEPSEEK_API_KEY is required for AI scoring", core.ErrConfig)
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/v1"))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring model client: %w", err)
	}
	return NewLLMScorer(llm, cfg.Model, cfg.Timeout), nil
}

// NewLLMScorer wraps any langchaingo model
func NewLLMScorer(model llms.Model, name string, timeout time.Duration) *LLMScorer {
	if timeout <= 0 {
		timeout = DefaultScoreTimeout
	}
	return &LLMScorer{model: model, name: name, timeout: timeout}
}

// Score calls the model under the scorer timeout. A reply that cannot be
// parsed yields a zero-confidence, no-buy verdict rather than an error.
func (s *LLMScorer) Score(ctx context.Context, signal core.MintSignal) (core.AiScore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: systemPrompt}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: buildPrompt(signal)}},
		},
	}

	resp, err := s.model.GenerateContent(ctx, messages, llms.WithTemperature(scoreTemperature))
	if err != nil {
		return core.AiScore{}, fmt.Errorf("scoring request for %s failed: %w", signal.Mint, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return core.AiScore{}, errors.New("scoring model returned no choices")
	}

	score, err := parseScore(resp.Choices[0].Content)
	if err != nil {
		log.WithFields(log.Fields{
			"mint":  signal.Mint,
			"model": s.name,
			"error": err,
		}).Warn("Unparseable scoring response")
		return core.AiScore{Reasoning: "parse error: " + err.Error()}, nil
	}
	return score, nil
}
