package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// SimulationResult is the part of a simulation the caller acts on.
type SimulationResult struct {
	Err           interface{} `json:"err,omitempty"`
	Logs          []string    `json:"logs"`
	UnitsConsumed uint64      `json:"unitsConsumed"`
}

// SimulateUnsigned dry-runs a base64 encoded transaction that has not been signed yet.
// Signature verification is disabled and the blockhash is replaced by the node.
func (c *Client) SimulateUnsigned(ctx context.Context, encoded string) (*SimulationResult, error) {
	tx, err := solana.TransactionFromBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	res, err := c.RpcClient.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		ReplaceRecentBlockhash: true,
		Commitment:             c.Commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to simulate transaction: %w", err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("empty simulation response")
	}

	out := &SimulationResult{Err: res.Value.Err, Logs: res.Value.Logs}
	if res.Value.UnitsConsumed != nil {
		out.UnitsConsumed = *res.Value.UnitsConsumed
	}
	c.logger.Debug("simulated transaction",
		zap.Any("err", out.Err),
		zap.Uint64("units_consumed", out.UnitsConsumed),
		zap.Int("logs", len(out.Logs)),
	)
	return out, nil
}
