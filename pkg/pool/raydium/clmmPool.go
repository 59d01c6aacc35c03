package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/pricemath"
	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"
)

// PoolState is a snapshot of a Raydium CLMM pool account.
type PoolState struct {
	// Core states
	Bump           uint8
	AmmConfig      solana.PublicKey
	Owner          solana.PublicKey
	TokenMint0     solana.PublicKey
	TokenMint1     solana.PublicKey
	TokenVault0    solana.PublicKey
	TokenVault1    solana.PublicKey
	ObservationKey solana.PublicKey
	MintDecimals0  uint8
	MintDecimals1  uint8
	TickSpacing    uint16
	// Liquidity states
	Liquidity           uint128.Uint128
	SqrtPriceX64        uint128.Uint128
	TickCurrent         int32
	FeeGrowthGlobal0X64 uint128.Uint128
	FeeGrowthGlobal1X64 uint128.Uint128
	ProtocolFeesToken0  uint64
	ProtocolFeesToken1  uint64
	Status              uint8
	// Tick array states
	TickArrayBitmap [BITMAP_WORDS]uint64
	// Other states
	OpenTime    uint64
	RecentEpoch uint64

	PoolId    solana.PublicKey
	ProgramID solana.PublicKey
}

const (
	poolMint0Offset     = DISCRIMINATOR_SZ + 1 + 32 + 32
	poolMint1Offset     = poolMint0Offset + 32
	poolStatusOffset    = 389
	poolBitmapOffset    = 904
	poolOpenTimeOffset  = 1080
	rewardInfoSpan      = 169
	rewardInfoCount     = 3
	feeStateFieldsCount = 6
)

func (pool *PoolState) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumClmm
}

// GetProgramID returns the program that owns the pool, defaulting to mainnet.
func (pool *PoolState) GetProgramID() solana.PublicKey {
	if pool.ProgramID.IsZero() {
		return RAYDIUM_CLMM_PROGRAM_ID
	}
	return pool.ProgramID
}

// layoutReader walks a little-endian account layout and remembers the first short read.
type layoutReader struct {
	data   []byte
	offset int
	err    error
}

func (r *layoutReader) next(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if r.offset+n > len(r.data) {
		r.err = fmt.Errorf("account data too short: need %d bytes at offset %d, have %d", n, r.offset, len(r.data))
		return make([]byte, n)
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *layoutReader) skip(n int) { r.next(n) }
func (r *layoutReader) u8() uint8 { return r.next(1)[0] }
func (r *layoutReader) u16() uint16 { return binary.LittleEndian.Uint16(r.next(2)) }
func (r *layoutReader) i32() int32 { return int32(binary.LittleEndian.Uint32(r.next(4))) }
func (r *layoutReader) u64() uint64 { return binary.LittleEndian.Uint64(r.next(8)) }
func (r *layoutReader) u128() uint128.Uint128 { return uint128.FromBytes(r.next(16)) }
func (r *layoutReader) pubkey() solana.PublicKey { return solana.PublicKeyFromBytes(r.next(32)) }

// Decode parses the pool account data including its 8-byte discriminator.
func (pool *PoolState) Decode(data []byte) error {
	if len(data) < POOL_STATE_SPAN {
		return fmt.Errorf("pool state: account data has %d bytes, want %d", len(data), POOL_STATE_SPAN)
	}
	if [8]byte(data[:DISCRIMINATOR_SZ]) != PoolStateDiscriminator {
		return fmt.Errorf("pool state: unexpected discriminator %v", data[:DISCRIMINATOR_SZ])
	}

	r := &layoutReader{data: data, offset: DISCRIMINATOR_SZ}

	pool.Bump = r.u8()
	pool.AmmConfig = r.pubkey()
	pool.Owner = r.pubkey()
	pool.TokenMint0 = r.pubkey()
	pool.TokenMint1 = r.pubkey()
	pool.TokenVault0 = r.pubkey()
	pool.TokenVault1 = r.pubkey()
	pool.ObservationKey = r.pubkey()
	pool.MintDecimals0 = r.u8()
	pool.MintDecimals1 = r.u8()
	pool.TickSpacing = r.u16()

	pool.Liquidity = r.u128()
	pool.SqrtPriceX64 = r.u128()
	pool.TickCurrent = r.i32()
	// observation index and update duration
	r.skip(2 + 2)
	pool.FeeGrowthGlobal0X64 = r.u128()
	pool.FeeGrowthGlobal1X64 = r.u128()
	pool.ProtocolFeesToken0 = r.u64()
	pool.ProtocolFeesToken1 = r.u64()
	// swap in/out accumulators
	r.skip(4 * 16)
	pool.Status = r.u8()
	r.skip(7)

	r.skip(rewardInfoCount * rewardInfoSpan)

	words, err := DecodeTickArrayBitmap(r.next(BITMAP_WORDS * 8))
	if err != nil {
		return err
	}
	copy(pool.TickArrayBitmap[:], words)

	r.skip(feeStateFieldsCount * 8)
	pool.OpenTime = r.u64()
	pool.RecentEpoch = r.u64()

	if r.err != nil {
		return fmt.Errorf("pool state: %w", r.err)
	}
	return nil
}

func (pool *PoolState) Span() uint64 {
	return uint64(POOL_STATE_SPAN)
}

func (pool *PoolState) Offset(field string) uint64 {
	switch field {
	case "TokenMint0":
		return poolMint0Offset
	case "TokenMint1":
		return poolMint1Offset
	case "Status":
		return poolStatusOffset
	case "TickArrayBitmap":
		return poolBitmapOffset
	case "OpenTime":
		return poolOpenTimeOffset
	}
	return 0
}

// GetID returns the pool ID
func (pool *PoolState) GetID() string {
	return pool.PoolId.String()
}

// GetTokens returns the base and quote token mints
func (pool *PoolState) GetTokens() (baseMint, quoteMint string) {
	return pool.TokenMint0.String(), pool.TokenMint1.String()
}

// CurrentPrice returns the price of mint1 per mint0 adjusted for decimals.
func (pool *PoolState) CurrentPrice() decimal.Decimal {
	return pricemath.SqrtPriceToPrice(pool.SqrtPriceX64, pool.MintDecimals0, pool.MintDecimals1)
}

// IsSwapEnabled checks if swap functionality is enabled for this pool
func (pool *PoolState) IsSwapEnabled() bool {
	// bit 4 set means swaps are disabled
	return (pool.Status>>4)&1 == 0
}

// BitmapWords returns the tick array bitmap as an ordered word sequence.
func (pool *PoolState) BitmapWords() []uint64 {
	return pool.TickArrayBitmap[:]
}

// HasMint reports whether mint is one of the pool's two mints.
func (pool *PoolState) HasMint(mint solana.PublicKey) bool {
	return mint.Equals(pool.TokenMint0) || mint.Equals(pool.TokenMint1)
}

// MintDecimals returns the decimals of one of the pool's mints.
func (pool *PoolState) MintDecimals(mint solana.PublicKey) (uint8, error) {
	switch {
	case mint.Equals(pool.TokenMint0):
		return pool.MintDecimals0, nil
	case mint.Equals(pool.TokenMint1):
		return pool.MintDecimals1, nil
	}
	return 0, fmt.Errorf("mint %s is not part of pool %s", mint, pool.PoolId)
}

// VaultFor returns the pool vault that holds mint.
func (pool *PoolState) VaultFor(mint solana.PublicKey) (solana.PublicKey, error) {
	switch {
	case mint.Equals(pool.TokenMint0):
		return pool.TokenVault0, nil
	case mint.Equals(pool.TokenMint1):
		return pool.TokenVault1, nil
	}
	return solana.PublicKey{}, fmt.Errorf("mint %s is not part of pool %s", mint, pool.PoolId)
}

// DecodeTickArrayBitmap reads little-endian 64-bit bitmap words.
func DecodeTickArrayBitmap(raw []byte) ([]uint64, error) {
	if len(raw) == 0 || len(raw)%8 != 0 {
		return nil, pkg.NewError(pkg.KindResolution, "decode bitmap", pkg.ErrBitmapDecode, "%d bytes is not a whole number of words", len(raw))
	}
	words := make([]uint64, len(raw)/8)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(raw[i*8 : i*8+8])
	}
	return words, nil
}
