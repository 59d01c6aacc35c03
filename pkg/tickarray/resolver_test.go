package tickarray

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/gtdvccc/clmmswap/pkg/pricemath"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

var programID = raydium.RAYDIUM_CLMM_PROGRAM_ID

func sqrtPriceAtTick(t *testing.T, tick int) uint128.Uint128 {
	t.Helper()
	price := decimal.NewFromFloat(math.Pow(1.0001, float64(tick)))
	s, err := pricemath.SqrtPriceX64FromPrice(price, 0, 0)
	require.NoError(t, err)
	return s
}

func setBit(pool *raydium.PoolState, index, offset int64) {
	bit := index + offset
	pool.TickArrayBitmap[bit/64] |= 1 << uint(bit%64)
}

func bitSet(pool *raydium.PoolState, index, offset int64) bool {
	bit := index + offset
	return pool.TickArrayBitmap[bit/64]&(1<<uint(bit%64)) != 0
}

func newPool(tickCurrent int32, spacing uint16) *raydium.PoolState {
	return &raydium.PoolState{
		PoolId:      solana.NewWallet().PublicKey(),
		TickCurrent: tickCurrent,
		TickSpacing: spacing,
	}
}

func indices(refs []Reference) []int64 {
	out := make([]int64, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.Index)
	}
	return out
}

func TestResolveEmptyBitmap(t *testing.T) {
	r := NewResolver(WithBitmapOffset(raydium.TICK_ARRAY_BITMAP_SIZE))
	pool := newPool(-13864, 10)

	refs, err := r.Resolve(pool, sqrtPriceAtTick(t, -30000), true, programID, 10)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestResolveZeroForOneIsReversed(t *testing.T) {
	const offset = raydium.TICK_ARRAY_BITMAP_SIZE
	r := NewResolver(WithBitmapOffset(offset))
	pool := newPool(-13864, 10)
	for _, idx := range []int64{-3, -4, -5} {
		setBit(pool, idx, offset)
	}

	refs, err := r.Resolve(pool, sqrtPriceAtTick(t, -30000), true, programID, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{-5, -4, -3}, indices(refs))

	for _, ref := range refs {
		assert.Equal(t, int32(ref.Index*10*DefaultTicksPerArray), ref.StartTick)
		want, err := raydium.TickArrayAddress(programID, pool.PoolId, ref.StartTick)
		require.NoError(t, err)
		assert.Equal(t, want, ref.Address)
	}
}

func TestResolveOneForZeroAscending(t *testing.T) {
	r := NewResolver()
	pool := newPool(100, 10)
	setBit(pool, 0, 0)
	setBit(pool, 2, 0)

	refs, err := r.Resolve(pool, sqrtPriceAtTick(t, 12000), false, programID, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2}, indices(refs))
	assert.Equal(t, int32(0), refs[0].StartTick)
	assert.Equal(t, int32(10240), refs[1].StartTick)
}

func TestResolveStopsAtTarget(t *testing.T) {
	r := NewResolver()
	pool := newPool(100, 10)
	for i := int64(0); i < 10; i++ {
		setBit(pool, i, 0)
	}

	refs, err := r.Resolve(pool, sqrtPriceAtTick(t, 200), false, programID, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, indices(refs))
}

func TestResolveRespectsMaxArrays(t *testing.T) {
	r := NewResolver(WithTicksPerArray(raydium.TICK_ARRAY_SIZE))
	pool := newPool(0, 1)
	for i := range pool.TickArrayBitmap {
		pool.TickArrayBitmap[i] = math.MaxUint64
	}

	refs, err := r.Resolve(pool, sqrtPriceAtTick(t, 5000), false, programID, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, indices(refs))

	refs, err = r.Resolve(pool, sqrtPriceAtTick(t, 5000), false, programID, 0)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestResolveTargetBehindDirection(t *testing.T) {
	r := NewResolver()
	pool := newPool(6000, 10)
	setBit(pool, 1, 0)
	setBit(pool, 2, 0)

	refs, err := r.Resolve(pool, sqrtPriceAtTick(t, 12000), true, programID, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, indices(refs))
}

func TestResolveNeverExceedsLimitsOrReturnsUnsetBits(t *testing.T) {
	const offset = raydium.TICK_ARRAY_BITMAP_SIZE
	rng := rand.New(rand.NewSource(7))
	r := NewResolver(WithBitmapOffset(offset), WithTicksPerArray(raydium.TICK_ARRAY_SIZE))

	for i := 0; i < 200; i++ {
		pool := newPool(int32(rng.Intn(20000)-10000), 1)
		for w := range pool.TickArrayBitmap {
			pool.TickArrayBitmap[w] = rng.Uint64()
		}
		zeroForOne := rng.Intn(2) == 0
		target := int(pool.TickCurrent) + rng.Intn(5000)
		if zeroForOne {
			target = int(pool.TickCurrent) - rng.Intn(5000)
		}
		maxArrays := rng.Intn(12)

		refs, err := r.Resolve(pool, sqrtPriceAtTick(t, target), zeroForOne, programID, maxArrays)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(refs), maxArrays)
		for _, ref := range refs {
			assert.True(t, bitSet(pool, ref.Index, offset), "index %d is not initialized", ref.Index)
		}
	}
}

func TestResolveOutOfRange(t *testing.T) {
	t.Run("negative index without offset", func(t *testing.T) {
		r := NewResolver()
		_, err := r.Resolve(newPool(-13864, 10), sqrtPriceAtTick(t, -30000), true, programID, 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, pkg.ErrArrayIndexOutOfRange))
		assert.Equal(t, pkg.KindResolution, pkg.KindOf(err))
	})

	t.Run("target beyond bitmap", func(t *testing.T) {
		r := NewResolver(WithBitmapOffset(raydium.TICK_ARRAY_BITMAP_SIZE))
		_, err := r.Resolve(newPool(0, 1), pricemath.MaxSqrtPriceX64, false, programID, 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, pkg.ErrArrayIndexOutOfRange))
	})
}

func TestResolveInvalidTickSpacing(t *testing.T) {
	_, err := NewResolver().Resolve(newPool(0, 0), sqrtPriceAtTick(t, 0), true, programID, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkg.ErrInvalidTickSpacing))
}

func TestToRemainingAccounts(t *testing.T) {
	refs := []Reference{{Index: 1, Address: solana.NewWallet().PublicKey()}}
	accounts := ToRemainingAccounts(refs)
	require.Len(t, accounts, 1)
	assert.Equal(t, refs[0].Address, accounts[0].Pubkey)
	assert.True(t, accounts[0].IsWritable)
	assert.False(t, accounts[0].IsSigner)
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, int64(-3), floorDiv(-13864, 5120))
	assert.Equal(t, int64(-1), floorDiv(-1, 5120))
	assert.Equal(t, int64(0), floorDiv(0, 5120))
	assert.Equal(t, int64(2), floorDiv(10240, 5120))
	assert.Equal(t, int64(-2), floorDiv(-10240, 5120))
}
