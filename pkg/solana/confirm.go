package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
)

// Signature states reported by CheckTransactionStatus
const (
	TxPending   = "pending"
	TxConfirmed = "confirmed"
	TxFinalized = "finalized"
	TxFailed    = "error"
)

const defaultConfirmPoll = 500 * time.Millisecond

// CheckTransactionStatus looks up one signature. A transaction that landed
// with an error returns TxFailed and the on-chain error.
func CheckTransactionStatus(ctx context.Context, client RPCClient, signature solana.Signature) (string, error) {
	res, err := client.GetSignatureStatuses(ctx, false, signature)
	if err != nil {
		return "", fmt.Errorf("failed to get signature status: %w", err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return TxPending, nil
	}

	status := res.Value[0]
	if status.Err != nil {
		errJSON, _ := json.Marshal(status.Err)
		return TxFailed, fmt.Errorf("transaction failed: %s", string(errJSON))
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		return TxFinalized, nil
	case rpc.ConfirmationStatusConfirmed:
		return TxConfirmed, nil
	}
	return TxPending, nil
}

// WaitForConfirmation polls until the signature is confirmed, fails on chain,
// or timeout elapses. A timeout is not an error: the transaction may still
// land, and resending it could double the trade.
func WaitForConfirmation(ctx context.Context, client RPCClient, signature solana.Signature, timeout, poll time.Duration) error {
	if poll <= 0 {
		poll = defaultConfirmPoll
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		status, err := CheckTransactionStatus(ctx, client, signature)
		switch {
		case status == TxFailed:
			return err
		case err != nil:
			log.WithFields(log.Fields{
				"signature": signature.String(),
				"error":     err,
			}).Debug("Signature status lookup failed, polling again")
		case status == TxConfirmed || status == TxFinalized:
			return nil
		}

		select {
		case <-ctx.Done():
			log.WithFields(log.Fields{
				"signature": signature.String(),
				"timeout":   timeout.String(),
			}).Warn("Transaction not confirmed before timeout")
			return nil
		case <-ticker.C:
		}
	}
}
