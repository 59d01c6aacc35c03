package sol

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

var (
	WSOL      = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	NativeSOL = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
)

// IsWSOL reports whether mint is wrapped SOL.
func IsWSOL(mint solana.PublicKey) bool {
	return mint.Equals(WSOL)
}

// ParseMint parses a base58 mint. Native SOL, spelled "SOL" or as the system
// program address, is mapped to WSOL since pools only hold the wrapped token.
func ParseMint(s string) (solana.PublicKey, error) {
	if strings.EqualFold(s, "sol") {
		return WSOL, nil
	}
	mint, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid mint %q: %w", s, err)
	}
	if mint.Equals(NativeSOL) {
		return WSOL, nil
	}
	return mint, nil
}
