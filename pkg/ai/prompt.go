package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tradecontrol/internal/core"
)

const systemPrompt = "You are a crypto trading analyst for newly launched Solana tokens. " +
	"Respond only with a JSON object containing confidence (0.0-1.0), reasoning (string) and should_buy (bool). Be concise."

// buildPrompt renders the user message for one mint
func buildPrompt(signal core.MintSignal) string {
	return fmt.Sprintf(
		"Analyze this token signal and respond with JSON {\"confidence\": 0.0-1.0, \"reasoning\": \"...\", \"should_buy\": true/false}:\n"+
			"mint=%s, mcap_usd=%.2f, volume_24h=%.2f, price=%.6f, holders=%d, liquidity=%.2f, top_holder_pct=%.2f",
		signal.Mint,
		signal.MarketCapUSD,
		signal.Volume24hUSD,
		signal.PriceUSD,
		signal.HolderCount,
		signal.LiquidityUSD,
		signal.TopHolderPct,
	)
}

type scoreResponse struct {
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	ShouldBuy  bool    `json:"should_buy"`
}

// parseScore extracts the JSON object between the first '{' and the last '}'
func parseScore(content string) (core.AiScore, error) {
	start := strings.Index(content, "{")
	if start < 0 {
		return core.AiScore{}, errors.New("no JSON object found in model response")
	}
	end := strings.LastIndex(content, "}")
	if end < start {
		return core.AiScore{}, errors.New("unterminated JSON object in model response")
	}

	var resp scoreResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &resp); err != nil {
		return core.AiScore{}, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return core.AiScore{
		Confidence: core.Clamp01(resp.Confidence),
		Reasoning:  resp.Reasoning,
		ShouldBuy:  resp.ShouldBuy,
	}, nil
}
