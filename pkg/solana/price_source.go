package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"tradecontrol/internal/core"
)

// CurvePriceSource quotes tokens from their pump.fun bonding curve
type CurvePriceSource struct {
	client RPCClient
}

func NewCurvePriceSource(client RPCClient) *CurvePriceSource {
	return &CurvePriceSource{client: client}
}

// Price is the spot price of one token in SOL
func (p *CurvePriceSource) Price(ctx context.Context, token string) (float64, error) {
	mint, err := solana.PublicKeyFromBase58(token)
	if err != nil {
		return 0, fmt.Errorf("invalid mint %q: %w", token, err)
	}
	state, err := FetchBondingState(ctx, p.client, mint)
	if err != nil {
		return 0, err
	}
	return state.PriceSOL(), nil
}

var _ core.PriceSource = (*CurvePriceSource)(nil)
