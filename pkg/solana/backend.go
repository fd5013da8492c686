package solana

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"tradecontrol/internal/core"
	"tradecontrol/pkg/risk"
)

// DefaultCurveFeeBps is the pump.fun bonding curve trading fee
const DefaultCurveFeeBps = 100

// BackendConfig tunes the live pump.fun backend
type BackendConfig struct {
	FeeRecipient      solana.PublicKey
	CurveFeeBps       uint64
	ComputeUnitLimit  uint32
	RequestsPerSecond float64
	Burst             int

	// ConfirmTimeout > 0 waits for the signature to confirm before returning
	ConfirmTimeout time.Duration
	ConfirmPoll    time.Duration
}

// PumpfunBackend builds, signs and sends pump.fun bonding curve trades
type PumpfunBackend struct {
	client  RPCClient
	wallet  solana.PrivateKey
	config  BackendConfig
	limiter *rate.Limiter
}

func NewPumpfunBackend(client RPCClient, wallet solana.PrivateKey, config BackendConfig) *PumpfunBackend {
	if config.FeeRecipient.IsZero() {
		config.FeeRecipient = DefaultFeeRecipient
	}
	if config.CurveFeeBps == 0 {
		config.CurveFeeBps = DefaultCurveFeeBps
	}
	if config.ComputeUnitLimit == 0 {
		config.ComputeUnitLimit = DefaultComputeUnitLimit
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	return &PumpfunBackend{
		client:  client,
		wallet:  wallet,
		config:  config,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wallet is the trading wallet address
func (b *PumpfunBackend) Wallet() solana.PublicKey {
	return b.wallet.PublicKey()
}

// ExecuteOrder sends one buy or sell with the given compute unit price
func (b *PumpfunBackend) ExecuteOrder(ctx context.Context, order core.TradeOrder, priorityFee uint64) (string, error) {
	mint, err := solana.PublicKeyFromBase58(order.Token)
	if err != nil {
		return "", fmt.Errorf("invalid mint %q: %w", order.Token, err)
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}
	state, err := FetchBondingState(ctx, b.client, mint)
	if err != nil {
		return "", err
	}
	if state.Complete {
		return "", fmt.Errorf("%w: %s", ErrCurveComplete, mint)
	}

	user := b.wallet.PublicKey()
	acc, err := DeriveCurveAccounts(mint, user, state.Creator, b.config.FeeRecipient)
	if err != nil {
		return "", fmt.Errorf("failed to derive curve accounts: %w", err)
	}

	instructions := []solana.Instruction{
		NewSetComputeUnitLimitInstruction(b.config.ComputeUnitLimit),
		NewSetComputeUnitPriceInstruction(priorityFee),
	}

	var tradeIx solana.Instruction
	switch order.Kind {
	case core.OrderBuy:
		if err := b.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait failed: %w", err)
		}
		ataInfo, err := b.client.GetAccountInfo(ctx, acc.AssociatedUser)
		if err != nil && !errors.Is(err, rpc.ErrNotFound) {
			return "", fmt.Errorf("failed to check token account: %w", err)
		}
		if ataInfo == nil || ataInfo.Value == nil {
			instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(user, user, mint).Build())
		}
		tradeIx, err = b.buyInstruction(acc, state, order)
		if err != nil {
			return "", err
		}
	case core.OrderSell:
		tradeIx, err = b.sellInstruction(ctx, acc, state, order)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unsupported order kind %q", order.Kind)
	}
	instructions = append(instructions, tradeIx)

	if err := b.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}
	bh, err := b.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("failed to get blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(instructions, bh.Value.Blockhash, solana.TransactionPayer(user))
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(user) {
			return &b.wallet
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}
	sig, err := b.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	if b.config.ConfirmTimeout > 0 {
		if err := WaitForConfirmation(ctx, b.client, sig, b.config.ConfirmTimeout, b.config.ConfirmPoll); err != nil {
			return "", fmt.Errorf("%s %s: %w", order.Kind, sig, err)
		}
	}

	log.WithFields(log.Fields{
		"order_id":     order.ID,
		"mint":         order.Token,
		"kind":         order.Kind,
		"priority_fee": priorityFee,
		"signature":    sig.String(),
	}).Info("Pump.fun transaction sent")
	return sig.String(), nil
}

func (b *PumpfunBackend) buyInstruction(acc CurveAccounts, state *BondingState, order core.TradeOrder) (solana.Instruction, error) {
	lamports := risk.SOLToLamports(order.AmountSOL)
	tokens := state.BuyQuote(lamports, b.config.CurveFeeBps)
	if tokens == 0 {
		return nil, fmt.Errorf("buy of %.9f SOL quotes zero tokens", order.AmountSOL)
	}
	maxSolCost := WithSlippage(lamports, order.SlippageBps, true)
	return CreateBuyInstruction(acc, tokens, maxSolCost)
}

// sellInstruction sells the wallet's whole balance of the mint
func (b *PumpfunBackend) sellInstruction(ctx context.Context, acc CurveAccounts, state *BondingState, order core.TradeOrder) (solana.Instruction, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}
	balance, err := b.client.GetTokenAccountBalance(ctx, acc.AssociatedUser, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance: %w", err)
	}
	if balance == nil || balance.Value == nil {
		return nil, fmt.Errorf("no token balance for %s", acc.Mint)
	}
	amount, err := strconv.ParseUint(balance.Value.Amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token balance %q: %w", balance.Value.Amount, err)
	}
	if amount == 0 {
		return nil, fmt.Errorf("no %s tokens to sell", acc.Mint)
	}
	minOut := WithSlippage(state.SellQuote(amount, b.config.CurveFeeBps), order.SlippageBps, false)
	return CreateSellInstruction(acc, amount, minOut)
}

var _ core.ExecutionBackend = (*PumpfunBackend)(nil)
