package phases

import "fmt"

// TradePhase is one step of a trade's lifecycle, in strictly increasing order
type TradePhase int

const (
	SignalReceived TradePhase = iota
	AiScoring
	StrategyFiltering
	RiskCheck
	OrderSubmitted
	PositionOpen
	Monitoring
	TradeClosed
)

var tradePhaseNames = [...]string{
	"signal_received",
	"ai_scoring",
	"strategy_filtering",
	"risk_check",
	"order_submitted",
	"position_open",
	"monitoring",
	"trade_closed",
}

func (p TradePhase) String() string {
	if p < SignalReceived || p > TradeClosed {
		return "unknown"
	}
	return tradePhaseNames[p]
}

// MarshalText renders the phase by name in JSON and logs
func (p TradePhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *TradePhase) UnmarshalText(text []byte) error {
	for i, name := range tradePhaseNames {
		if name == string(text) {
			*p = TradePhase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown trade phase %q", text)
}

// Next returns the following phase; ok is false at the terminal phase
func (p TradePhase) Next() (TradePhase, bool) {
	if p >= TradeClosed {
		return p, false
	}
	return p + 1, true
}

// IsTerminal reports whether no further phase exists
func (p TradePhase) IsTerminal() bool {
	return p == TradeClosed
}
