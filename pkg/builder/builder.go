// Package builder assembles unsigned swap_v2 transactions from a quote.
package builder

import (
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/gtdvccc/clmmswap/pkg/sol"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

const stage = "build transaction"

// Builder turns quotes into unsigned transactions. It never signs and holds no per-call state.
type Builder struct {
	programID        solana.PublicKey
	computeUnitLimit uint32
	computeUnitPrice uint64
	bitmapExtension  bool
	wrapSol          bool
	logger           *zap.Logger
}

type Option func(*Builder)

// WithComputeUnitLimit prepends a SetComputeUnitLimit instruction. Zero leaves it out.
func WithComputeUnitLimit(units uint32) Option {
	return func(b *Builder) {
		b.computeUnitLimit = units
	}
}

// WithComputeUnitPrice prepends a SetComputeUnitPrice instruction in micro-lamports. Zero leaves it out.
func WithComputeUnitPrice(microLamports uint64) Option {
	return func(b *Builder) {
		b.computeUnitPrice = microLamports
	}
}

// WithBitmapExtension references the pool's tick array bitmap extension account
// ahead of the tick arrays. Pools trading far from their initial price need it.
func WithBitmapExtension(enabled bool) Option {
	return func(b *Builder) {
		b.bitmapExtension = enabled
	}
}

// WithWrapSol funds the WSOL account before a swap that spends WSOL and closes
// it after a swap that receives WSOL.
func WithWrapSol(enabled bool) Option {
	return func(b *Builder) {
		b.wrapSol = enabled
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func NewBuilder(programID solana.PublicKey, opts ...Option) *Builder {
	b := &Builder{
		programID: programID,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Params is everything a build needs. Pool and Config must be fresh snapshots.
type Params struct {
	Pool              *raydium.PoolState
	Config            *raydium.AmmConfig
	Quote             *pkg.Quote
	RemainingAccounts []pkg.RemainingAccount
	Wallet            solana.PublicKey
	FeePayer          solana.PublicKey
	RecentBlockhash   solana.Hash
	// MissingAccounts lists the quote mints whose wallet token account does not exist
	// yet. Their associated token accounts are created ahead of the swap, paid by FeePayer.
	MissingAccounts   []solana.PublicKey
}

// Build assembles the swap transaction for p.Quote and returns it base64 encoded with
// zeroed signature slots. It either fully succeeds or returns nothing.
func (b *Builder) Build(p Params) (*pkg.UnsignedTransaction, error) {
	if err := b.validate(p); err != nil {
		return nil, err
	}
	q := p.Quote
	zeroForOne := q.ZeroForOne()

	inputTokenAccount, err := associatedAccount(p.Wallet, q.InputMint)
	if err != nil {
		return nil, err
	}
	outputTokenAccount, err := associatedAccount(p.Wallet, q.OutputMint)
	if err != nil {
		return nil, err
	}

	inputVault, outputVault := p.Pool.TokenVault0, p.Pool.TokenVault1
	inputVaultMint, outputVaultMint := p.Pool.TokenMint0, p.Pool.TokenMint1
	if !zeroForOne {
		inputVault, outputVault = outputVault, inputVault
		inputVaultMint, outputVaultMint = outputVaultMint, inputVaultMint
	}

	remaining := make([]pkg.RemainingAccount, 0, len(p.RemainingAccounts)+1)
	if b.bitmapExtension {
		ext, err := raydium.TickArrayBitmapExtensionAddress(b.programID, p.Pool.PoolId)
		if err != nil {
			return nil, pkg.NewError(pkg.KindBuild, stage, pkg.ErrSerializationFailure, "bitmap extension: %v", err)
		}
		remaining = append(remaining, pkg.RemainingAccount{Pubkey: ext})
	}
	remaining = append(remaining, p.RemainingAccounts...)

	amount := q.SpecifiedAmount()
	if !amount.IsUint64() || !q.OtherAmountThreshold.IsUint64() {
		return nil, pkg.NewError(pkg.KindBuild, stage, pkg.ErrSerializationFailure,
			"amount %s or threshold %s does not fit u64", amount, q.OtherAmountThreshold)
	}

	swapInst := raydium.NewSwapV2Instruction(
		b.programID,
		amount.Uint64(),
		q.OtherAmountThreshold.Uint64(),
		// zero lets the program apply the bound of the swap direction
		uint128.Zero,
		q.SwapType == pkg.SwapKindBaseIn,
		raydium.SwapV2Accounts{
			Payer:              p.Wallet,
			AmmConfig:          p.Pool.AmmConfig,
			Pool:               p.Pool.PoolId,
			Observation:        p.Pool.ObservationKey,
			InputTokenAccount:  inputTokenAccount,
			OutputTokenAccount: outputTokenAccount,
			InputVault:         inputVault,
			OutputVault:        outputVault,
			InputVaultMint:     inputVaultMint,
			OutputVaultMint:    outputVaultMint,
		},
		remaining,
	)

	instrs, err := b.instructions(p, swapInst)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(
		instrs,
		p.RecentBlockhash,
		solana.TransactionPayer(p.FeePayer),
	)
	if err != nil {
		return nil, pkg.NewError(pkg.KindBuild, stage, pkg.ErrSerializationFailure, "%v", err)
	}
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	encoded, err := tx.ToBase64()
	if err != nil {
		return nil, pkg.NewError(pkg.KindBuild, stage, pkg.ErrSerializationFailure, "%v", err)
	}

	b.logger.Debug("built swap transaction",
		zap.String("pool", p.Pool.PoolId.String()),
		zap.Bool("zero_for_one", zeroForOne),
		zap.Int("instructions", len(instrs)),
		zap.Int("remaining_accounts", len(remaining)),
		zap.Int("signatures", len(tx.Signatures)),
	)

	return &pkg.UnsignedTransaction{
		Transaction:     encoded,
		FeePayer:        p.FeePayer,
		RecentBlockhash: p.RecentBlockhash,
	}, nil
}

func (b *Builder) validate(p Params) error {
	if p.Pool == nil || p.Config == nil || p.Quote == nil {
		return pkg.NewError(pkg.KindBuild, stage, pkg.ErrSerializationFailure, "pool, config and quote are required")
	}
	if p.FeePayer.IsZero() {
		return pkg.NewError(pkg.KindBuild, stage, pkg.ErrMissingFeePayer, "")
	}
	if p.RecentBlockhash.IsZero() {
		return pkg.NewError(pkg.KindBuild, stage, pkg.ErrMissingBlockhash, "")
	}
	if p.Wallet.IsZero() {
		return pkg.NewError(pkg.KindBuild, stage, pkg.ErrMissingAssociatedAccount, "wallet is not set")
	}
	if !p.Config.Address.IsZero() && !p.Config.Address.Equals(p.Pool.AmmConfig) {
		return pkg.NewError(pkg.KindValidation, stage, pkg.ErrConfigMismatch,
			"pool %s uses %s, got %s", p.Pool.PoolId, p.Pool.AmmConfig, p.Config.Address)
	}
	if !p.Pool.HasMint(p.Quote.InputMint) || !p.Pool.HasMint(p.Quote.OutputMint) || p.Quote.InputMint.Equals(p.Quote.OutputMint) {
		return pkg.NewError(pkg.KindValidation, stage, pkg.ErrMintMismatch,
			"quote %s -> %s against pool %s", p.Quote.InputMint, p.Quote.OutputMint, p.Pool.PoolId)
	}
	for _, mint := range p.MissingAccounts {
		if !mint.Equals(p.Quote.InputMint) && !mint.Equals(p.Quote.OutputMint) {
			return pkg.NewError(pkg.KindValidation, stage, pkg.ErrMintMismatch,
				"cannot create token account for %s, quote swaps %s -> %s", mint, p.Quote.InputMint, p.Quote.OutputMint)
		}
	}
	if id, err := p.Quote.PoolID(); err == nil && !id.Equals(p.Pool.PoolId) {
		return pkg.NewError(pkg.KindValidation, stage, pkg.ErrMintMismatch,
			"quote was priced on pool %s, building on %s", id, p.Pool.PoolId)
	}
	return nil
}

// instructions wraps the swap with the optional compute budget, token account
// creation and SOL wrapping steps.
func (b *Builder) instructions(p Params, swapInst solana.Instruction) ([]solana.Instruction, error) {
	instrs := make([]solana.Instruction, 0, 8)

	if b.computeUnitLimit > 0 {
		inst, err := computebudget.NewSetComputeUnitLimitInstruction(b.computeUnitLimit).ValidateAndBuild()
		if err != nil {
			return nil, pkg.NewError(pkg.KindBuild, stage, pkg.ErrSerializationFailure, "compute unit limit: %v", err)
		}
		instrs = append(instrs, inst)
	}
	if b.computeUnitPrice > 0 {
		inst, err := computebudget.NewSetComputeUnitPriceInstruction(b.computeUnitPrice).ValidateAndBuild()
		if err != nil {
			return nil, pkg.NewError(pkg.KindBuild, stage, pkg.ErrSerializationFailure, "compute unit price: %v", err)
		}
		instrs = append(instrs, inst)
	}

	q := p.Quote
	wrapInput := b.wrapSol && sol.IsWSOL(q.InputMint)
	for _, mint := range []solana.PublicKey{q.InputMint, q.OutputMint} {
		// the wrap step creates the WSOL account itself
		if !missing(p.MissingAccounts, mint) || (wrapInput && mint.Equals(q.InputMint)) {
			continue
		}
		inst, err := sol.CreateTokenAccountInstruction(p.FeePayer, p.Wallet, mint)
		if err != nil {
			return nil, pkg.NewError(pkg.KindBuild, stage, pkg.ErrMissingAssociatedAccount, "%v", err)
		}
		instrs = append(instrs, inst)
	}

	if wrapInput {
		// BaseOut may spend up to the threshold
		lamports := q.InputAmount
		if q.SwapType == pkg.SwapKindBaseOut {
			lamports = q.OtherAmountThreshold
		}
		if !lamports.IsUint64() {
			return nil, pkg.NewError(pkg.KindBuild, stage, pkg.ErrSerializationFailure, "wrap amount %s", lamports)
		}
		wrap, err := sol.WrapSolInstructions(p.Wallet, p.FeePayer, lamports.Uint64(), missing(p.MissingAccounts, q.InputMint))
		if err != nil {
			return nil, pkg.NewError(pkg.KindBuild, stage, pkg.ErrSerializationFailure, "wrap sol: %v", err)
		}
		instrs = append(instrs, wrap...)
	}

	instrs = append(instrs, swapInst)

	if b.wrapSol && sol.IsWSOL(q.OutputMint) {
		closeInst, err := sol.CloseWsolInstruction(p.Wallet)
		if err != nil {
			return nil, pkg.NewError(pkg.KindBuild, stage, pkg.ErrSerializationFailure, "close wsol: %v", err)
		}
		instrs = append(instrs, closeInst)
	}
	return instrs, nil
}

func missing(mints []solana.PublicKey, mint solana.PublicKey) bool {
	for _, m := range mints {
		if m.Equals(mint) {
			return true
		}
	}
	return false
}

func associatedAccount(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, pkg.NewError(pkg.KindBuild, stage, pkg.ErrMissingAssociatedAccount, "wallet %s mint %s: %v", wallet, mint, err)
	}
	return ata, nil
}
