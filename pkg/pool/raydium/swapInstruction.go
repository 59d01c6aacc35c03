package raydium

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gtdvccc/clmmswap/pkg"
	"lukechampine.com/uint128"
)

// SwapV2Accounts names the fixed accounts of a swap_v2 instruction.
type SwapV2Accounts struct {
	Payer              solana.PublicKey
	AmmConfig          solana.PublicKey
	Pool               solana.PublicKey
	Observation        solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	InputVault         solana.PublicKey
	OutputVault        solana.PublicKey
	InputVaultMint     solana.PublicKey
	OutputVaultMint    solana.PublicKey
}

// SwapV2Instruction represents a swap_v2 instruction for the Raydium CLMM program
type SwapV2Instruction struct {
	Amount                  uint64
	OtherAmountThreshold    uint64
	SqrtPriceLimitX64       uint128.Uint128
	IsBaseInput             bool
	Program                 solana.PublicKey `bin:"-" borsh_skip:"true"`
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

// NewSwapV2Instruction lays out the accounts in the order the program consumes them:
// payer, config, pool, observation, token programs, memo, user accounts, vaults,
// vault mints, then the remaining accounts.
func NewSwapV2Instruction(
	programID solana.PublicKey,
	amount uint64,
	otherAmountThreshold uint64,
	sqrtPriceLimitX64 uint128.Uint128,
	isBaseInput bool,
	accounts SwapV2Accounts,
	remaining []pkg.RemainingAccount,
) *SwapV2Instruction {
	inst := &SwapV2Instruction{
		Amount:               amount,
		OtherAmountThreshold: otherAmountThreshold,
		SqrtPriceLimitX64:    sqrtPriceLimitX64,
		IsBaseInput:          isBaseInput,
		Program:              programID,
		AccountMetaSlice:     make(solana.AccountMetaSlice, 0, 13+len(remaining)),
	}
	inst.AccountMetaSlice = append(inst.AccountMetaSlice,
		solana.NewAccountMeta(accounts.Payer, false, true),
		solana.NewAccountMeta(accounts.AmmConfig, false, false),
		solana.NewAccountMeta(accounts.Pool, true, false),
		solana.NewAccountMeta(accounts.Observation, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(TOKEN_2022_PROGRAM_ID, false, false),
		solana.NewAccountMeta(MEMO_PROGRAM_ID, false, false),
		solana.NewAccountMeta(accounts.InputTokenAccount, true, false),
		solana.NewAccountMeta(accounts.OutputTokenAccount, true, false),
		solana.NewAccountMeta(accounts.InputVault, true, false),
		solana.NewAccountMeta(accounts.OutputVault, true, false),
		solana.NewAccountMeta(accounts.InputVaultMint, false, false),
		solana.NewAccountMeta(accounts.OutputVaultMint, false, false),
	)
	for _, acc := range remaining {
		inst.AccountMetaSlice = append(inst.AccountMetaSlice, acc.Meta())
	}
	return inst
}

// ProgramID returns the program ID for the Raydium CLMM program
func (inst *SwapV2Instruction) ProgramID() solana.PublicKey {
	return inst.Program
}

// Accounts returns the account metas for the instruction
func (inst *SwapV2Instruction) Accounts() (out []*solana.AccountMeta) {
	return inst.AccountMetaSlice
}

// Data serializes the instruction data
func (inst *SwapV2Instruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.Write(SwapV2Discriminator[:]); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}

	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(inst.Amount, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode amount: %w", err)
	}
	if err := enc.WriteUint64(inst.OtherAmountThreshold, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode other amount threshold: %w", err)
	}
	limit := bin.Uint128{Lo: inst.SqrtPriceLimitX64.Lo, Hi: inst.SqrtPriceLimitX64.Hi}
	if err := enc.WriteUint128(limit, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("failed to encode sqrt price limit: %w", err)
	}
	if err := enc.WriteBool(inst.IsBaseInput); err != nil {
		return nil, fmt.Errorf("failed to encode is base input: %w", err)
	}

	return buf.Bytes(), nil
}
