package solana

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// ComputeBudgetProgramID is the native compute budget program
var ComputeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

const (
	computeBudgetSetUnitLimit = 2
	computeBudgetSetUnitPrice = 3
)

// DefaultComputeUnitLimit covers a pump.fun buy including ATA creation
const DefaultComputeUnitLimit uint32 = 120_000

// NewSetComputeUnitPriceInstruction sets the priority fee in micro-lamports per compute unit
func NewSetComputeUnitPriceInstruction(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = computeBudgetSetUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solana.NewInstruction(ComputeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// NewSetComputeUnitLimitInstruction caps the compute units the transaction may use
func NewSetComputeUnitLimitInstruction(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = computeBudgetSetUnitLimit
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.NewInstruction(ComputeBudgetProgramID, solana.AccountMetaSlice{}, data)
}
