package executor

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
)

// Shield validates signatures returned by a backend before they are recorded.
// In strict mode the signature must be a base58 ed25519 signature.
type Shield struct {
	Strict bool
}

func NewShield(strict bool) Shield {
	return Shield{Strict: strict}
}

func (s Shield) VerifySignature(signature string) error {
	if signature == "" {
		return errors.New("empty signature is invalid")
	}
	if s.Strict {
		if _, err := solana.SignatureFromBase58(signature); err != nil {
			return fmt.Errorf("malformed signature %q: %w", signature, err)
		}
	}
	log.WithField("signature", signature).Debug("Signature verified")
	return nil
}
