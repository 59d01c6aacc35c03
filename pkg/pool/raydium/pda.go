package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

func i32ToBytes(v int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return buf
}

func u16ToBytes(v uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, v)
	return buf
}

// TickArrayAddress derives the tick array account starting at startTick.
func TickArrayAddress(programID, poolID solana.PublicKey, startTick int32) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		TICK_ARRAY_SEED,
		poolID.Bytes(),
		i32ToBytes(startTick),
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive tick array %d: %w", startTick, err)
	}
	return addr, nil
}

// TickArrayBitmapExtensionAddress derives the pool's bitmap extension account.
func TickArrayBitmapExtensionAddress(programID, poolID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		POOL_TICK_ARRAY_BITMAP_SEED,
		poolID.Bytes(),
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive bitmap extension: %w", err)
	}
	return addr, nil
}

// AmmConfigAddress derives the config account for a config index.
func AmmConfigAddress(programID solana.PublicKey, index uint16) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		AMM_CONFIG_SEED,
		u16ToBytes(index),
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive amm config %d: %w", index, err)
	}
	return addr, nil
}

// PoolAddress derives the pool for a config and an ordered mint pair.
func PoolAddress(programID, ammConfig, mint0, mint1 solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		POOL_SEED,
		ammConfig.Bytes(),
		mint0.Bytes(),
		mint1.Bytes(),
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool: %w", err)
	}
	return addr, nil
}

func ObservationAddress(programID, poolID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		OBSERVATION_SEED,
		poolID.Bytes(),
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive observation: %w", err)
	}
	return addr, nil
}

func PoolVaultAddress(programID, poolID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		POOL_VAULT_SEED,
		poolID.Bytes(),
		mint.Bytes(),
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool vault: %w", err)
	}
	return addr, nil
}
