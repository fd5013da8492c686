package solana

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// Program IDs
var (
	PumpFunProgramID         = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	EventAuthority           = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
	DefaultFeeRecipient      = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	TokenProgramID           = solana.TokenProgramID
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
	SystemProgramID          = solana.SystemProgramID
)

// Instruction discriminators
var (
	InstructionBuy  = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	InstructionSell = []byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// Seeds for PDAs
var (
	SeedGlobal       = []byte("global")
	SeedBondingCurve = []byte("bonding-curve")
	SeedCreatorVault = []byte("creator-vault")
)

// Token and SOL decimals on the bonding curve
const (
	tokenDecimals = 1e6
	solDecimals   = 1e9
)

// ErrCurveComplete means the mint has migrated off the bonding curve
var ErrCurveComplete = errors.New("bonding curve complete")

func GetGlobalPDA() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{SeedGlobal},
		PumpFunProgramID,
	)
}

func GetCreatorVaultPDA(creator solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			SeedCreatorVault,
			creator.Bytes(),
		},
		PumpFunProgramID,
	)
}

func GetBondingCurvePDA(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{SeedBondingCurve, mint.Bytes()},
		PumpFunProgramID,
	)
}

func serializeU64(value uint64) []byte {
	bytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(bytes, value)
	return bytes
}

// CurveAccounts are the accounts a buy or sell touches for one mint and wallet
type CurveAccounts struct {
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	AssociatedUser         solana.PublicKey
	CreatorVault           solana.PublicKey
	User                   solana.PublicKey
	FeeRecipient           solana.PublicKey
}

// DeriveCurveAccounts resolves the PDAs and token accounts for a trade
func DeriveCurveAccounts(mint, user, creator, feeRecipient solana.PublicKey) (CurveAccounts, error) {
	bondingCurve, _, err := GetBondingCurvePDA(mint)
	if err != nil {
		return CurveAccounts{}, err
	}
	associatedBondingCurve, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return CurveAccounts{}, err
	}
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, mint)
	if err != nil {
		return CurveAccounts{}, err
	}
	creatorVault, _, err := GetCreatorVaultPDA(creator)
	if err != nil {
		return CurveAccounts{}, err
	}
	return CurveAccounts{
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associatedBondingCurve,
		AssociatedUser:         associatedUser,
		CreatorVault:           creatorVault,
		User:                   user,
		FeeRecipient:           feeRecipient,
	}, nil
}

// CreateBuyInstruction buys amount tokens paying at most maxSolCost lamports
func CreateBuyInstruction(acc CurveAccounts, amount uint64, maxSolCost uint64) (solana.Instruction, error) {
	globalPDA, _, err := GetGlobalPDA()
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: globalPDA, IsWritable: false, IsSigner: false},
		{PublicKey: acc.FeeRecipient, IsWritable: true, IsSigner: false},
		{PublicKey: acc.Mint, IsWritable: false, IsSigner: false},
		{PublicKey: acc.BondingCurve, IsWritable: true, IsSigner: false},
		{PublicKey: acc.AssociatedBondingCurve, IsWritable: true, IsSigner: false},
		{PublicKey: acc.AssociatedUser, IsWritable: true, IsSigner: false},
		{PublicKey: acc.User, IsWritable: true, IsSigner: true},
		{PublicKey: SystemProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: TokenProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: acc.CreatorVault, IsWritable: true, IsSigner: false},
		{PublicKey: EventAuthority, IsWritable: false, IsSigner: false},
		{PublicKey: PumpFunProgramID, IsWritable: false, IsSigner: false},
	}

	data := bytes.Join([][]byte{
		InstructionBuy,
		serializeU64(amount),
		serializeU64(maxSolCost),
	}, nil)

	return solana.NewInstruction(PumpFunProgramID, accounts, data), nil
}

// CreateSellInstruction sells amount tokens for at least minSolOutput lamports
func CreateSellInstruction(acc CurveAccounts, amount uint64, minSolOutput uint64) (solana.Instruction, error) {
	globalPDA, _, err := GetGlobalPDA()
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: globalPDA, IsWritable: false, IsSigner: false},
		{PublicKey: acc.FeeRecipient, IsWritable: true, IsSigner: false},
		{PublicKey: acc.Mint, IsWritable: false, IsSigner: false},
		{PublicKey: acc.BondingCurve, IsWritable: true, IsSigner: false},
		{PublicKey: acc.AssociatedBondingCurve, IsWritable: true, IsSigner: false},
		{PublicKey: acc.AssociatedUser, IsWritable: true, IsSigner: false},
		{PublicKey: acc.User, IsWritable: true, IsSigner: true},
		{PublicKey: SystemProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: acc.CreatorVault, IsWritable: true, IsSigner: false},
		{PublicKey: TokenProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: EventAuthority, IsWritable: false, IsSigner: false},
		{PublicKey: PumpFunProgramID, IsWritable: false, IsSigner: false},
	}

	data := bytes.Join([][]byte{
		InstructionSell,
		serializeU64(amount),
		serializeU64(minSolOutput),
	}, nil)

	return solana.NewInstruction(PumpFunProgramID, accounts, data), nil
}

// BondingState is the decoded bonding curve account
type BondingState struct {
	Discriminator        uint64
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              solana.PublicKey
}

// DecodeBondingState decodes the bonding state from raw account data
func DecodeBondingState(data []byte) (*BondingState, error) {
	buf := bytes.NewReader(data)
	var s BondingState

	for _, field := range []*uint64{
		&s.Discriminator,
		&s.VirtualTokenReserves,
		&s.VirtualSolReserves,
		&s.RealTokenReserves,
		&s.RealSolReserves,
		&s.TokenTotalSupply,
	} {
		if err := binary.Read(buf, binary.LittleEndian, field); err != nil {
			return nil, fmt.Errorf("bonding state truncated: %w", err)
		}
	}
	var completeByte byte
	if err := binary.Read(buf, binary.LittleEndian, &completeByte); err != nil {
		return nil, fmt.Errorf("bonding state truncated: %w", err)
	}
	s.Complete = completeByte != 0

	creatorBytes := make([]byte, 32)
	if n, _ := buf.Read(creatorBytes); n != 32 {
		return nil, errors.New("invalid creator pubkey")
	}
	s.Creator = solana.PublicKeyFromBytes(creatorBytes)

	return &s, nil
}

// PriceSOL is the spot price of one token in SOL
func (s *BondingState) PriceSOL() float64 {
	virtualToken := s.VirtualTokenReserves
	if virtualToken == 0 {
		virtualToken = 1
	}
	return float64(s.VirtualSolReserves) / solDecimals / (float64(virtualToken) / tokenDecimals)
}

// BuyQuote is the token amount received for solIn lamports after feeBps
func (s *BondingState) BuyQuote(solIn uint64, feeBps uint64) uint64 {
	if solIn == 0 || s.VirtualSolReserves == 0 {
		return 0
	}
	net := u64(solIn).Mul(decimal.NewFromInt(int64(10_000 - feeBps))).Div(decimal.NewFromInt(10_000)).Floor()
	out := u64(s.VirtualTokenReserves).Mul(net).Div(u64(s.VirtualSolReserves).Add(net)).Floor()
	tokens := out.BigInt().Uint64()
	if tokens > s.RealTokenReserves {
		tokens = s.RealTokenReserves
	}
	return tokens
}

// SellQuote is the lamports received for tokenIn tokens after feeBps
func (s *BondingState) SellQuote(tokenIn uint64, feeBps uint64) uint64 {
	if tokenIn == 0 || s.VirtualTokenReserves == 0 {
		return 0
	}
	gross := u64(tokenIn).Mul(u64(s.VirtualSolReserves)).Div(u64(s.VirtualTokenReserves).Add(u64(tokenIn)))
	net := gross.Mul(decimal.NewFromInt(int64(10_000 - feeBps))).Div(decimal.NewFromInt(10_000)).Floor()
	return net.BigInt().Uint64()
}

// WithSlippage widens (up) or narrows (down) an amount by slippageBps
func WithSlippage(amount uint64, slippageBps uint16, up bool) uint64 {
	bps := int64(10_000) - int64(slippageBps)
	if up {
		bps = int64(10_000) + int64(slippageBps)
	}
	return u64(amount).Mul(decimal.NewFromInt(bps)).Div(decimal.NewFromInt(10_000)).Floor().BigInt().Uint64()
}

func u64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// FetchBondingState reads and decodes the curve account for mint
func FetchBondingState(ctx context.Context, client RPCClient, mint solana.PublicKey) (*BondingState, error) {
	bondingPDA, _, err := GetBondingCurvePDA(mint)
	if err != nil {
		return nil, err
	}
	accountInfo, err := client.GetAccountInfo(ctx, bondingPDA)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bonding curve for %s: %w", mint, err)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, fmt.Errorf("bonding curve for %s not found", mint)
	}
	return DecodeBondingState(accountInfo.Value.Data.GetBinary())
}

// RPCClient is the subset of the solana-go RPC client the trading code uses
type RPCClient interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

var _ RPCClient = (*rpc.Client)(nil)
