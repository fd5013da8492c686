package strategy

import (
	log "github.com/sirupsen/logrus"

	"tradecontrol/internal/core"
)

// SignalFilter drops signals below a confidence floor or of a disallowed kind
type SignalFilter struct {
	minConfidence float64
	allowed       map[core.SignalKind]struct{}
}

func NewSignalFilter(minConfidence float64, allowed ...core.SignalKind) *SignalFilter {
	set := make(map[core.SignalKind]struct{}, len(allowed))
	for _, k := range allowed {
		set[k] = struct{}{}
	}
	return &SignalFilter{minConfidence: minConfidence, allowed: set}
}

// Allows checks a single signal
func (f *SignalFilter) Allows(signal core.Signal) bool {
	if signal.Confidence < f.minConfidence {
		return false
	}
	_, ok := f.allowed[signal.Kind]
	return ok
}

// Apply keeps the signals that pass, preserving order
func (f *SignalFilter) Apply(signals []core.Signal) []core.Signal {
	filtered := make([]core.Signal, 0, len(signals))
	for _, s := range signals {
		if f.Allows(s) {
			filtered = append(filtered, s)
		}
	}
	log.WithFields(log.Fields{
		"before":         len(signals),
		"after":          len(filtered),
		"min_confidence": f.minConfidence,
	}).Debug("Signals filtered")
	return filtered
}
