package executor

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// Fee defaults, in micro-lamports per compute unit
const (
	DefaultBaseFee        uint64  = 1_000
	DefaultFeeMultiplier  float64 = 1.75
	DefaultMaxPriorityFee uint64  = 100_000
)

// FeeCalculator derives the priority fee from a base fee and a volatility multiplier
type FeeCalculator struct {
	BaseFee    uint64
	Multiplier float64
	MaxFee     uint64
}

func NewFeeCalculator(baseFee uint64, multiplier float64, maxFee uint64) FeeCalculator {
	return FeeCalculator{BaseFee: baseFee, Multiplier: multiplier, MaxFee: maxFee}
}

func DefaultFeeCalculator() FeeCalculator {
	return NewFeeCalculator(DefaultBaseFee, DefaultFeeMultiplier, DefaultMaxPriorityFee)
}

// ComputeFee returns base * multiplier, capped at MaxFee. A non-positive
// product yields zero.
func (f FeeCalculator) ComputeFee() uint64 {
	raw := float64(f.BaseFee) * f.Multiplier
	var fee uint64
	switch {
	case !(raw > 0):
	case raw >= float64(f.MaxFee):
		fee = f.MaxFee
	default:
		fee = uint64(raw)
	}
	log.WithFields(log.Fields{
		"computed_fee": raw,
		"capped_fee":   fee,
	}).Debug("Priority fee computed")
	return fee
}

// CheckFee rejects a fee above the cap
func (f FeeCalculator) CheckFee(fee uint64) error {
	if fee > f.MaxFee {
		return fmt.Errorf("%w: priority fee %d exceeds maximum %d micro-lamports", core.ErrExecutionFailed, fee, f.MaxFee)
	}
	return nil
}
