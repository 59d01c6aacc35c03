// Package tickarray resolves the tick array accounts a swap has to reference.
package tickarray

import (
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/gtdvccc/clmmswap/pkg/pricemath"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

const (
	// DefaultTicksPerArray is the number of tick spacings covered by one bitmap bit.
	DefaultTicksPerArray = 512
	// DefaultMaxArrays keeps the swap within the transaction account limit.
	DefaultMaxArrays = 5
)

// Reference identifies one tick array account.
type Reference struct {
	Index     int64            `json:"index"`
	StartTick int32            `json:"startTick"`
	Address   solana.PublicKey `json:"address"`
}

// Resolver walks a pool's tick array bitmap. It holds no per-call state.
type Resolver struct {
	ticksPerArray int64
	bitmapOffset  int64
	logger        *zap.Logger
}

type Option func(*Resolver)

func WithTicksPerArray(n int64) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.ticksPerArray = n
		}
	}
}

// WithBitmapOffset sets which bitmap bit represents array index 0.
// Raydium pools centre their bitmap, so index 0 sits at bit TICK_ARRAY_BITMAP_SIZE.
func WithBitmapOffset(offset int64) Option {
	return func(r *Resolver) {
		r.bitmapOffset = offset
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		ticksPerArray: DefaultTicksPerArray,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the initialized tick arrays between the pool's current tick and the
// tick of targetSqrtPriceX64, visiting at most maxArrays indices. For zeroForOne the
// walk goes down and the result is reversed.
func (r *Resolver) Resolve(
	pool *raydium.PoolState,
	targetSqrtPriceX64 uint128.Uint128,
	zeroForOne bool,
	programID solana.PublicKey,
	maxArrays int,
) ([]Reference, error) {
	const stage = "resolve tick arrays"
	if pool.TickSpacing == 0 {
		return nil, pkg.NewError(pkg.KindResolution, stage, pkg.ErrInvalidTickSpacing, "pool %s", pool.PoolId)
	}
	words := pool.BitmapWords()
	if len(words) == 0 {
		return nil, pkg.NewError(pkg.KindResolution, stage, pkg.ErrBitmapDecode, "pool %s has an empty bitmap", pool.PoolId)
	}

	span := int64(pool.TickSpacing) * r.ticksPerArray
	currentIndex := floorDiv(int64(pool.TickCurrent), span)
	targetTick := pricemath.TickAtSqrtPrice(targetSqrtPriceX64)
	targetIndex := floorDiv(int64(targetTick), span)

	if !r.addressable(currentIndex, len(words)) {
		return nil, pkg.NewError(pkg.KindResolution, stage, pkg.ErrArrayIndexOutOfRange, "current array index %d", currentIndex)
	}
	if !r.addressable(targetIndex, len(words)) {
		return nil, pkg.NewError(pkg.KindResolution, stage, pkg.ErrArrayIndexOutOfRange, "target array index %d", targetIndex)
	}

	step := int64(1)
	if zeroForOne {
		step = -1
	}
	if (zeroForOne && targetIndex > currentIndex) || (!zeroForOne && targetIndex < currentIndex) {
		r.logger.Debug("target tick lies behind the swap direction",
			zap.String("pool", pool.PoolId.String()),
			zap.Int64("current_index", currentIndex),
			zap.Int64("target_index", targetIndex),
			zap.Bool("zero_for_one", zeroForOne),
		)
		targetIndex = currentIndex
	}

	refs := make([]Reference, 0)
	for i, index := 0, currentIndex; i < maxArrays; i, index = i+1, index+step {
		if r.isInitialized(words, index) {
			startTick := index * span
			if startTick < math.MinInt32 || startTick > math.MaxInt32 {
				return nil, pkg.NewError(pkg.KindResolution, stage, pkg.ErrArrayIndexOutOfRange, "start tick %d of array %d", startTick, index)
			}
			addr, err := raydium.TickArrayAddress(programID, pool.PoolId, int32(startTick))
			if err != nil {
				return nil, pkg.NewError(pkg.KindResolution, stage, err, "array %d", index)
			}
			refs = append(refs, Reference{Index: index, StartTick: int32(startTick), Address: addr})
		} else {
			r.logger.Debug("skipping uninitialized tick array",
				zap.String("pool", pool.PoolId.String()),
				zap.Int64("index", index),
			)
		}
		if index == targetIndex {
			break
		}
	}

	if zeroForOne {
		for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
			refs[i], refs[j] = refs[j], refs[i]
		}
	}
	return refs, nil
}

func (r *Resolver) addressable(index int64, words int) bool {
	bit := index + r.bitmapOffset
	return bit >= 0 && bit < int64(words)*64
}

func (r *Resolver) isInitialized(words []uint64, index int64) bool {
	bit := index + r.bitmapOffset
	return words[bit/64]&(uint64(1)<<uint(bit%64)) != 0
}

// ToRemainingAccounts marks every tick array writable.
func ToRemainingAccounts(refs []Reference) []pkg.RemainingAccount {
	out := make([]pkg.RemainingAccount, 0, len(refs))
	for _, ref := range refs {
		out = append(out, pkg.RemainingAccount{Pubkey: ref.Address, IsWritable: true})
	}
	return out
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
