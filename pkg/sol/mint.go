package sol

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
)

// NormalizeMintOrder returns the canonical (mint0, mint1) pair for a swap from
// input to output, with mint0 < mint1 byte-wise. zeroForOne reports whether the
// input is mint0.
func NormalizeMintOrder(input, output solana.PublicKey) (mint0, mint1 solana.PublicKey, zeroForOne bool) {
	if CompareMints(input, output) < 0 {
		return input, output, true
	}
	return output, input, false
}

// CompareMints orders two mints by their raw key bytes.
func CompareMints(a, b solana.PublicKey) int {
	return bytes.Compare(a[:], b[:])
}
