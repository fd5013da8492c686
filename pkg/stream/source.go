package stream

import (
	"context"

	"tradecontrol/internal/core"
)

// SliceSource replays a fixed list of mint events, then reports the stream closed
type SliceSource struct {
	signals []core.MintSignal
	next    int
}

func NewSliceSource(signals ...core.MintSignal) *SliceSource {
	return &SliceSource{signals: signals}
}

func (s *SliceSource) NextSignal(ctx context.Context) (core.MintSignal, bool) {
	if ctx.Err() != nil || s.next >= len(s.signals) {
		return core.MintSignal{}, false
	}
	sig := s.signals[s.next]
	s.next++
	return sig, true
}

// channelSource adapts a channel fed by a background loop
type channelSource struct {
	out chan core.MintSignal
}

func (s *channelSource) NextSignal(ctx context.Context) (core.MintSignal, bool) {
	select {
	case <-ctx.Done():
		return core.MintSignal{}, false
	case sig, ok := <-s.out:
		return sig, ok
	}
}

// push blocks until the consumer takes sig or ctx ends
func (s *channelSource) push(ctx context.Context, sig core.MintSignal) bool {
	select {
	case <-ctx.Done():
		return false
	case s.out <- sig:
		return true
	}
}

var (
	_ core.MarketDataStream = (*SliceSource)(nil)
	_ core.MarketDataStream = (*WebsocketSource)(nil)
	_ core.MarketDataStream = (*AMQPSource)(nil)
)
