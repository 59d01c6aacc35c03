package builder

import (
	"encoding/binary"
	"errors"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/gtdvccc/clmmswap/pkg/sol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

var (
	programID = raydium.RAYDIUM_CLMM_PROGRAM_ID
	usdc      = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

type fixture struct {
	pool      *raydium.PoolState
	config    *raydium.AmmConfig
	wallet    solana.PublicKey
	blockhash solana.Hash
	tickArray solana.PublicKey
}

func newFixture() *fixture {
	configAddr := solana.NewWallet().PublicKey()
	return &fixture{
		pool: &raydium.PoolState{
			PoolId:         solana.NewWallet().PublicKey(),
			AmmConfig:      configAddr,
			TokenMint0:     sol.WSOL,
			TokenMint1:     usdc,
			TokenVault0:    solana.NewWallet().PublicKey(),
			TokenVault1:    solana.NewWallet().PublicKey(),
			ObservationKey: solana.NewWallet().PublicKey(),
			TickSpacing:    10,
			Liquidity:      uint128.From64(1_000_000_000_000),
			SqrtPriceX64:   uint128.From64(1 << 63),
		},
		config:    &raydium.AmmConfig{Address: configAddr, TradeFeeRate: 2500},
		wallet:    solana.NewWallet().PublicKey(),
		blockhash: solana.Hash(solana.NewWallet().PublicKey()),
		tickArray: solana.NewWallet().PublicKey(),
	}
}

func (f *fixture) quote(input, output solana.PublicKey, kind pkg.SwapKind) *pkg.Quote {
	_, _, zeroForOne := sol.NormalizeMintOrder(input, output)
	return &pkg.Quote{
		Direction:            pkg.DirectionOf(zeroForOne),
		SwapType:             kind,
		InputMint:            input,
		InputAmount:          math.NewInt(1_000_000_000),
		OutputMint:           output,
		OutputAmount:         math.NewInt(4_000_000_000),
		OtherAmountThreshold: math.NewInt(3_980_000_000),
		SlippageBps:          50,
		RoutePlan:            []pkg.RoutePlan{{PoolID: f.pool.PoolId}},
	}
}

func (f *fixture) params(q *pkg.Quote) Params {
	return Params{
		Pool:              f.pool,
		Config:            f.config,
		Quote:             q,
		RemainingAccounts: []pkg.RemainingAccount{{Pubkey: f.tickArray, IsWritable: true}},
		Wallet:            f.wallet,
		FeePayer:          f.wallet,
		RecentBlockhash:   f.blockhash,
	}
}

func decode(t *testing.T, out *pkg.UnsignedTransaction) *solana.Transaction {
	t.Helper()
	tx, err := solana.TransactionFromBase64(out.Transaction)
	require.NoError(t, err)
	return tx
}

func programOf(t *testing.T, tx *solana.Transaction, i int) solana.PublicKey {
	t.Helper()
	id, err := tx.ResolveProgramIDIndex(tx.Message.Instructions[i].ProgramIDIndex)
	require.NoError(t, err)
	return id
}

func TestBuildZeroForOne(t *testing.T) {
	f := newFixture()
	q := f.quote(sol.WSOL, usdc, pkg.SwapKindBaseIn)

	out, err := NewBuilder(programID).Build(f.params(q))
	require.NoError(t, err)
	assert.Equal(t, f.wallet, out.FeePayer)
	assert.Equal(t, f.blockhash, out.RecentBlockhash)

	tx := decode(t, out)
	assert.Equal(t, f.blockhash, tx.Message.RecentBlockhash)
	assert.Equal(t, f.wallet, tx.Message.AccountKeys[0])
	require.Len(t, tx.Signatures, 1)
	assert.True(t, tx.Signatures[0].IsZero())

	require.Len(t, tx.Message.Instructions, 1)
	assert.Equal(t, programID, programOf(t, tx, 0))

	inst := tx.Message.Instructions[0]
	metas, err := inst.ResolveInstructionAccounts(&tx.Message)
	require.NoError(t, err)
	require.Len(t, metas, 14)

	inputAta, _, err := solana.FindAssociatedTokenAddress(f.wallet, sol.WSOL)
	require.NoError(t, err)
	outputAta, _, err := solana.FindAssociatedTokenAddress(f.wallet, usdc)
	require.NoError(t, err)

	want := []solana.PublicKey{
		f.wallet,
		f.pool.AmmConfig,
		f.pool.PoolId,
		f.pool.ObservationKey,
		solana.TokenProgramID,
		raydium.TOKEN_2022_PROGRAM_ID,
		raydium.MEMO_PROGRAM_ID,
		inputAta,
		outputAta,
		f.pool.TokenVault0,
		f.pool.TokenVault1,
		sol.WSOL,
		usdc,
		f.tickArray,
	}
	for i, key := range want {
		assert.Equal(t, key, metas[i].PublicKey, "account %d", i)
	}

	data := []byte(inst.Data)
	require.Len(t, data, 41)
	assert.Equal(t, raydium.SwapV2Discriminator[:], data[:8])
	assert.Equal(t, uint64(1_000_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(3_980_000_000), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, make([]byte, 16), data[24:40])
	assert.Equal(t, byte(1), data[40])
}

func TestBuildOneForZeroSwapsVaults(t *testing.T) {
	f := newFixture()
	q := f.quote(usdc, sol.WSOL, pkg.SwapKindBaseOut)

	out, err := NewBuilder(programID).Build(f.params(q))
	require.NoError(t, err)

	tx := decode(t, out)
	inst := tx.Message.Instructions[0]
	metas, err := inst.ResolveInstructionAccounts(&tx.Message)
	require.NoError(t, err)

	assert.Equal(t, f.pool.TokenVault1, metas[9].PublicKey)
	assert.Equal(t, f.pool.TokenVault0, metas[10].PublicKey)
	assert.Equal(t, usdc, metas[11].PublicKey)
	assert.Equal(t, sol.WSOL, metas[12].PublicKey)

	data := []byte(inst.Data)
	// BaseOut fixes the output amount
	assert.Equal(t, uint64(4_000_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, byte(0), data[40])
}

func TestBuildSeparateFeePayer(t *testing.T) {
	f := newFixture()
	p := f.params(f.quote(sol.WSOL, usdc, pkg.SwapKindBaseIn))
	p.FeePayer = solana.NewWallet().PublicKey()

	out, err := NewBuilder(programID).Build(p)
	require.NoError(t, err)

	tx := decode(t, out)
	assert.Equal(t, p.FeePayer, tx.Message.AccountKeys[0])
	require.Len(t, tx.Signatures, 2)
	for _, sig := range tx.Signatures {
		assert.True(t, sig.IsZero())
	}
}

func TestBuildWithOptions(t *testing.T) {
	f := newFixture()
	b := NewBuilder(programID,
		WithComputeUnitLimit(1_400_000),
		WithComputeUnitPrice(1_000),
		WithBitmapExtension(true),
		WithWrapSol(true),
	)

	t.Run("wsol input is wrapped", func(t *testing.T) {
		out, err := b.Build(f.params(f.quote(sol.WSOL, usdc, pkg.SwapKindBaseIn)))
		require.NoError(t, err)

		tx := decode(t, out)
		require.Len(t, tx.Message.Instructions, 5)
		assert.Equal(t, solana.ComputeBudget, programOf(t, tx, 0))
		assert.Equal(t, solana.ComputeBudget, programOf(t, tx, 1))
		assert.Equal(t, solana.SystemProgramID, programOf(t, tx, 2))
		assert.Equal(t, solana.TokenProgramID, programOf(t, tx, 3))
		assert.Equal(t, programID, programOf(t, tx, 4))

		metas, err := tx.Message.Instructions[4].ResolveInstructionAccounts(&tx.Message)
		require.NoError(t, err)
		require.Len(t, metas, 15)
		ext, err := raydium.TickArrayBitmapExtensionAddress(programID, f.pool.PoolId)
		require.NoError(t, err)
		assert.Equal(t, ext, metas[13].PublicKey)
		assert.Equal(t, f.tickArray, metas[14].PublicKey)
	})

	t.Run("wsol output is closed", func(t *testing.T) {
		out, err := b.Build(f.params(f.quote(usdc, sol.WSOL, pkg.SwapKindBaseIn)))
		require.NoError(t, err)

		tx := decode(t, out)
		require.Len(t, tx.Message.Instructions, 4)
		assert.Equal(t, programID, programOf(t, tx, 2))
		assert.Equal(t, solana.TokenProgramID, programOf(t, tx, 3))
	})
}

func TestBuildCreatesMissingTokenAccounts(t *testing.T) {
	f := newFixture()
	outputAta, _, err := solana.FindAssociatedTokenAddress(f.wallet, usdc)
	require.NoError(t, err)

	t.Run("output account before the swap", func(t *testing.T) {
		p := f.params(f.quote(sol.WSOL, usdc, pkg.SwapKindBaseIn))
		p.MissingAccounts = []solana.PublicKey{usdc}

		out, err := NewBuilder(programID).Build(p)
		require.NoError(t, err)

		tx := decode(t, out)
		require.Len(t, tx.Message.Instructions, 2)
		assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, programOf(t, tx, 0))
		assert.Equal(t, programID, programOf(t, tx, 1))

		metas, err := tx.Message.Instructions[0].ResolveInstructionAccounts(&tx.Message)
		require.NoError(t, err)
		assert.Equal(t, f.wallet, metas[0].PublicKey)
		assert.Equal(t, outputAta, metas[1].PublicKey)
		assert.Equal(t, usdc, metas[3].PublicKey)
	})

	t.Run("wrapped input created by the wrap step", func(t *testing.T) {
		p := f.params(f.quote(sol.WSOL, usdc, pkg.SwapKindBaseIn))
		p.MissingAccounts = []solana.PublicKey{sol.WSOL, usdc}

		out, err := NewBuilder(programID, WithWrapSol(true)).Build(p)
		require.NoError(t, err)

		tx := decode(t, out)
		require.Len(t, tx.Message.Instructions, 5)
		assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, programOf(t, tx, 0))
		assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, programOf(t, tx, 1))
		assert.Equal(t, solana.SystemProgramID, programOf(t, tx, 2))
		assert.Equal(t, solana.TokenProgramID, programOf(t, tx, 3))
		assert.Equal(t, programID, programOf(t, tx, 4))

		outputCreate, err := tx.Message.Instructions[0].ResolveInstructionAccounts(&tx.Message)
		require.NoError(t, err)
		assert.Equal(t, outputAta, outputCreate[1].PublicKey)

		wsolAta, _, err := solana.FindAssociatedTokenAddress(f.wallet, sol.WSOL)
		require.NoError(t, err)
		wsolCreate, err := tx.Message.Instructions[1].ResolveInstructionAccounts(&tx.Message)
		require.NoError(t, err)
		assert.Equal(t, wsolAta, wsolCreate[1].PublicKey)
	})

	t.Run("fee payer funds the accounts", func(t *testing.T) {
		p := f.params(f.quote(usdc, sol.WSOL, pkg.SwapKindBaseIn))
		p.FeePayer = solana.NewWallet().PublicKey()
		p.MissingAccounts = []solana.PublicKey{sol.WSOL}

		out, err := NewBuilder(programID).Build(p)
		require.NoError(t, err)

		tx := decode(t, out)
		require.Len(t, tx.Message.Instructions, 2)
		metas, err := tx.Message.Instructions[0].ResolveInstructionAccounts(&tx.Message)
		require.NoError(t, err)
		assert.Equal(t, p.FeePayer, metas[0].PublicKey)
		assert.Equal(t, f.wallet, metas[2].PublicKey)
	})
}

func TestBuildErrors(t *testing.T) {
	f := newFixture()
	b := NewBuilder(programID)
	base := func() Params { return f.params(f.quote(sol.WSOL, usdc, pkg.SwapKindBaseIn)) }

	tests := []struct {
		name   string
		modify func(p *Params)
		want   error
		kind   pkg.ErrorKind
	}{
		{"missing fee payer", func(p *Params) { p.FeePayer = solana.PublicKey{} }, pkg.ErrMissingFeePayer, pkg.KindBuild},
		{"missing blockhash", func(p *Params) { p.RecentBlockhash = solana.Hash{} }, pkg.ErrMissingBlockhash, pkg.KindBuild},
		{"missing wallet", func(p *Params) { p.Wallet = solana.PublicKey{} }, pkg.ErrMissingAssociatedAccount, pkg.KindBuild},
		{"missing quote", func(p *Params) { p.Quote = nil }, pkg.ErrSerializationFailure, pkg.KindBuild},
		{"config mismatch", func(p *Params) {
			p.Config = &raydium.AmmConfig{Address: solana.NewWallet().PublicKey()}
		}, pkg.ErrConfigMismatch, pkg.KindValidation},
		{"foreign mint", func(p *Params) {
			p.Quote = f.quote(solana.NewWallet().PublicKey(), usdc, pkg.SwapKindBaseIn)
		}, pkg.ErrMintMismatch, pkg.KindValidation},
		{"quote from another pool", func(p *Params) {
			p.Quote.RoutePlan[0].PoolID = solana.NewWallet().PublicKey()
		}, pkg.ErrMintMismatch, pkg.KindValidation},
		{"foreign missing account", func(p *Params) {
			p.MissingAccounts = []solana.PublicKey{solana.NewWallet().PublicKey()}
		}, pkg.ErrMintMismatch, pkg.KindValidation},
		{"threshold above u64", func(p *Params) {
			p.Quote.OtherAmountThreshold = math.NewIntFromUint64(^uint64(0)).AddRaw(1)
		}, pkg.ErrSerializationFailure, pkg.KindBuild},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.modify(&p)

			out, err := b.Build(p)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, tt.kind, pkg.KindOf(err))
		})
	}
}
