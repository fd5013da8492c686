package solana

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeBondingState(s BondingState) []byte {
	var buf bytes.Buffer
	for _, v := range []uint64{
		s.Discriminator,
		s.VirtualTokenReserves,
		s.VirtualSolReserves,
		s.RealTokenReserves,
		s.RealSolReserves,
		s.TokenTotalSupply,
	} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	if s.Complete {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.Write(s.Creator.Bytes())
	return buf.Bytes()
}

func TestDecodeBondingState(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	want := BondingState{
		Discriminator:        7,
		VirtualTokenReserves: 1_073_000_000_000_000,
		VirtualSolReserves:   30_000_000_000,
		RealTokenReserves:    793_100_000_000_000,
		RealSolReserves:      0,
		TokenTotalSupply:     1_000_000_000_000_000,
		Creator:              creator,
	}

	got, err := DecodeBondingState(encodeBondingState(want))
	require.NoError(t, err)
	assert.Equal(t, want, *got)
	assert.InDelta(t, 2.7959e-8, got.PriceSOL(), 1e-11)

	t.Run("Truncated", func(t *testing.T) {
		_, err := DecodeBondingState(encodeBondingState(want)[:20])
		assert.Error(t, err)
	})

	t.Run("Missing Creator", func(t *testing.T) {
		_, err := DecodeBondingState(encodeBondingState(want)[:49+10])
		assert.Error(t, err)
	})
}

func TestCurveQuotes(t *testing.T) {
	state := &BondingState{
		VirtualTokenReserves: 1000,
		VirtualSolReserves:   1000,
		RealTokenReserves:    1000,
	}

	assert.Equal(t, uint64(500), state.BuyQuote(1000, 0))
	assert.Equal(t, uint64(90), state.BuyQuote(100, 100))
	assert.Equal(t, uint64(0), state.BuyQuote(0, 100))

	capped := *state
	capped.RealTokenReserves = 400
	assert.Equal(t, uint64(400), capped.BuyQuote(1000, 0))

	assert.Equal(t, uint64(495), state.SellQuote(1000, 100))
	assert.Equal(t, uint64(0), state.SellQuote(0, 100))

	t.Run("Large Reserves Do Not Overflow", func(t *testing.T) {
		big := &BondingState{
			VirtualTokenReserves: 1_073_000_000_000_000,
			VirtualSolReserves:   30_000_000_000,
			RealTokenReserves:    793_100_000_000_000,
		}
		tokens := big.BuyQuote(1_000_000_000, 100)
		assert.Greater(t, tokens, uint64(34_000_000_000_000))
		assert.Less(t, tokens, uint64(35_000_000_000_000))
	})
}

func TestWithSlippage(t *testing.T) {
	assert.Equal(t, uint64(1010), WithSlippage(1000, 100, true))
	assert.Equal(t, uint64(990), WithSlippage(1000, 100, false))
	assert.Equal(t, uint64(1000), WithSlippage(1000, 0, true))
}

func TestInstructions(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()

	acc, err := DeriveCurveAccounts(mint, user, creator, DefaultFeeRecipient)
	require.NoError(t, err)
	curve, _, err := GetBondingCurvePDA(mint)
	require.NoError(t, err)
	assert.Equal(t, curve, acc.BondingCurve)

	t.Run("Buy", func(t *testing.T) {
		ix, err := CreateBuyInstruction(acc, 500, 1010)
		require.NoError(t, err)
		data, err := ix.Data()
		require.NoError(t, err)
		require.Len(t, data, 24)
		assert.Equal(t, InstructionBuy, data[:8])
		assert.Equal(t, uint64(500), binary.LittleEndian.Uint64(data[8:16]))
		assert.Equal(t, uint64(1010), binary.LittleEndian.Uint64(data[16:24]))
		assert.Equal(t, PumpFunProgramID, ix.ProgramID())
		assert.Len(t, ix.Accounts(), 12)
	})

	t.Run("Sell", func(t *testing.T) {
		ix, err := CreateSellInstruction(acc, 500, 990)
		require.NoError(t, err)
		data, err := ix.Data()
		require.NoError(t, err)
		assert.Equal(t, InstructionSell, data[:8])
		assert.Equal(t, uint64(990), binary.LittleEndian.Uint64(data[16:24]))
	})

	t.Run("Compute Budget", func(t *testing.T) {
		data, err := NewSetComputeUnitPriceInstruction(50_000).Data()
		require.NoError(t, err)
		assert.Equal(t, byte(3), data[0])
		assert.Equal(t, uint64(50_000), binary.LittleEndian.Uint64(data[1:]))

		data, err = NewSetComputeUnitLimitInstruction(DefaultComputeUnitLimit).Data()
		require.NoError(t, err)
		assert.Equal(t, byte(2), data[0])
		assert.Equal(t, DefaultComputeUnitLimit, binary.LittleEndian.Uint32(data[1:]))
	})
}
