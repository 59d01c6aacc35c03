package raydium

import (
	"github.com/gagliardetto/solana-go"
)

// Program IDs
var (
	// Token Program IDs
	TOKEN_2022_PROGRAM_ID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	MEMO_PROGRAM_ID       = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

	// Raydium Program IDs
	RAYDIUM_CLMM_PROGRAM_ID        = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	RAYDIUM_CLMM_DEVNET_PROGRAM_ID = solana.MustPublicKeyFromBase58("DRayAUgENGQBKVaX8owNhgzkEDyoHTGVEGHVJT1E9pfH")
)

// Tick Array Configuration
const (
	// TICK_ARRAY_SIZE is the number of ticks stored in one on-chain tick array account.
	TICK_ARRAY_SIZE = 60
	// TICK_ARRAY_BITMAP_SIZE is the number of array slots on each side of zero in the pool bitmap.
	TICK_ARRAY_BITMAP_SIZE = 512
	BITMAP_WORDS           = 16
	MAX_TICK               = 443636
	MIN_TICK               = -443636
)

// Account layout
const (
	POOL_STATE_SPAN  = 1544
	AMM_CONFIG_SPAN  = 117
	DISCRIMINATOR_SZ = 8
)

// Seeds and Discriminators
var (
	AMM_CONFIG_SEED             = []byte("amm_config")
	POOL_SEED                   = []byte("pool")
	POOL_VAULT_SEED             = []byte("pool_vault")
	OBSERVATION_SEED            = []byte("observation")
	TICK_ARRAY_SEED             = []byte("tick_array")
	POOL_TICK_ARRAY_BITMAP_SEED = []byte("pool_tick_array_bitmap_extension")
	PoolStateDiscriminator      = [8]byte{247, 237, 227, 245, 215, 195, 222, 70}
	AmmConfigDiscriminator      = [8]byte{218, 244, 33, 104, 203, 203, 43, 111}
	SwapV2Discriminator         = [8]byte{43, 4, 237, 11, 26, 201, 30, 98}
)
