package sol

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// TokenAccountExists reports whether owner's associated token account for mint exists.
// The associated address is returned in both cases.
func (c *Client) TokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, bool, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, false, fmt.Errorf("failed to derive associated token account: %w", err)
	}

	_, err = c.AccountData(ctx, ata)
	if errors.Is(err, rpc.ErrNotFound) {
		c.logger.Debug("token account missing",
			zap.String("owner", owner.String()),
			zap.String("mint", mint.String()),
			zap.String("ata", ata.String()),
		)
		return ata, false, nil
	}
	if err != nil {
		return ata, false, err
	}
	return ata, true, nil
}

// CreateTokenAccountInstruction creates owner's associated token account for mint, paid by payer.
func CreateTokenAccountInstruction(payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	inst, err := associatedtokenaccount.NewCreateInstruction(payer, owner, mint).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build create ata instruction: %w", err)
	}
	return inst, nil
}
