package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"

	"tradecontrol/pkg/executor"
)

// RawSender submits already signed, serialized transactions. The compute
// unit price is baked into the payload, so priorityFee is only logged.
type RawSender struct {
	client RPCClient
}

func NewRawSender(client RPCClient) *RawSender {
	return &RawSender{client: client}
}

func (s *RawSender) Send(ctx context.Context, payload []byte, priorityFee uint64) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("empty transaction payload")
	}
	sig, err := s.client.SendRawTransactionWithOpts(ctx, payload, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send raw transaction: %w", err)
	}
	log.WithFields(log.Fields{
		"signature":    sig.String(),
		"priority_fee": priorityFee,
	}).Debug("Raw transaction sent")
	return sig.String(), nil
}

var _ executor.Sender = (*RawSender)(nil)
