package strategy

const (
	DefaultTakeProfitPct = 0.5
	DefaultStopLossPct   = 0.1
)

// TpSlLevels are fractional exit thresholds relative to entry price
type TpSlLevels struct {
	TakeProfitPct float64 `json:"take_profit_pct"`
	StopLossPct   float64 `json:"stop_loss_pct"`
}

// TpSlCalculator widens take-profit and tightens stop-loss as confidence grows
type TpSlCalculator struct {
	defaultTP float64
	defaultSL float64
}

func NewTpSlCalculator(defaultTP, defaultSL float64) TpSlCalculator {
	return TpSlCalculator{defaultTP: defaultTP, defaultSL: defaultSL}
}

func DefaultTpSlCalculator() TpSlCalculator {
	return NewTpSlCalculator(DefaultTakeProfitPct, DefaultStopLossPct)
}

func (c TpSlCalculator) Calculate(confidence float64) TpSlLevels {
	f := confidence
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return TpSlLevels{
		TakeProfitPct: c.defaultTP * (1 + f),
		StopLossPct:   c.defaultSL * (1 - f*0.5),
	}
}
