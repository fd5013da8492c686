package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// ErrMissingMint is returned for events without a mint address
var ErrMissingMint = errors.New("missing mint field")

// PumpfunParser decodes pump.fun new-token events. Numeric fields that are
// absent or not numbers decode as zero.
type PumpfunParser struct{}

func NewPumpfunParser() PumpfunParser {
	return PumpfunParser{}
}

func (PumpfunParser) Parse(raw []byte) (core.MintSignal, error) {
	var event map[string]interface{}
	if err := json.Unmarshal(raw, &event); err != nil {
		return core.MintSignal{}, fmt.Errorf("failed to decode event: %w", err)
	}

	mint, ok := event["mint"].(string)
	if !ok {
		return core.MintSignal{}, ErrMissingMint
	}
	if mint == "" {
		log.Warn("Parsed empty mint address from pump.fun event")
	}

	return core.MintSignal{
		Mint:         mint,
		MarketCapUSD: number(event, "marketCapUsd"),
		Volume24hUSD: number(event, "volume24hUsd"),
		PriceUSD:     number(event, "priceUsd"),
		HolderCount:  count(event, "holderCount"),
		LiquidityUSD: number(event, "liquidityUsd"),
		TopHolderPct: number(event, "topHolderPct"),
		Timestamp:    time.Now().UTC(),
	}, nil
}

func number(event map[string]interface{}, key string) float64 {
	if v, ok := event[key].(float64); ok {
		return v
	}
	return 0
}

func count(event map[string]interface{}, key string) uint64 {
	v, ok := event[key].(float64)
	if !ok || v < 0 || v != float64(uint64(v)) {
		return 0
	}
	return uint64(v)
}
