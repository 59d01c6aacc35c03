package sol

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// WrapSolInstructions moves lamports from wallet into its WSOL account and syncs the
// token balance. createAccount prepends the creation of that account.
func WrapSolInstructions(wallet, payer solana.PublicKey, lamports uint64, createAccount bool) ([]solana.Instruction, error) {
	insts := make([]solana.Instruction, 0, 3)

	wsolAccount, _, err := solana.FindAssociatedTokenAddress(wallet, WSOL)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wsol account: %w", err)
	}

	if createAccount {
		createInst, err := CreateTokenAccountInstruction(payer, wallet, WSOL)
		if err != nil {
			return nil, err
		}
		insts = append(insts, createInst)
	}

	transferInst, err := system.NewTransferInstruction(
		lamports,
		wallet,
		wsolAccount,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer instruction: %w", err)
	}
	insts = append(insts, transferInst)

	syncNativeInst, err := token.NewSyncNativeInstruction(
		wsolAccount,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build sync native instruction: %w", err)
	}
	insts = append(insts, syncNativeInst)
	return insts, nil
}

// CloseWsolInstruction closes the wallet's WSOL account and returns its lamports to the wallet.
func CloseWsolInstruction(wallet solana.PublicKey) (solana.Instruction, error) {
	wsolAccount, _, err := solana.FindAssociatedTokenAddress(wallet, WSOL)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wsol account: %w", err)
	}
	closeInst, err := token.NewCloseAccountInstruction(
		wsolAccount,
		wallet,
		wallet,
		[]solana.PublicKey{},
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build close account instruction: %w", err)
	}
	return closeInst, nil
}
