package sol

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapSolInstructions(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	wsolAccount, _, err := solana.FindAssociatedTokenAddress(wallet, WSOL)
	require.NoError(t, err)

	insts, err := WrapSolInstructions(wallet, wallet, 1_000_000, false)
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, solana.SystemProgramID, insts[0].ProgramID())
	assert.Equal(t, solana.TokenProgramID, insts[1].ProgramID())
	assert.Equal(t, wsolAccount, insts[1].Accounts()[0].PublicKey)

	insts, err = WrapSolInstructions(wallet, wallet, 1_000_000, true)
	require.NoError(t, err)
	require.Len(t, insts, 3)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, insts[0].ProgramID())
}

func TestCloseWsolInstruction(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	inst, err := CloseWsolInstruction(wallet)
	require.NoError(t, err)

	wsolAccount, _, err := solana.FindAssociatedTokenAddress(wallet, WSOL)
	require.NoError(t, err)
	accounts := inst.Accounts()
	require.GreaterOrEqual(t, len(accounts), 3)
	assert.Equal(t, wsolAccount, accounts[0].PublicKey)
	assert.Equal(t, wallet, accounts[1].PublicKey)
	assert.Equal(t, wallet, accounts[2].PublicKey)
}

func TestParseMint(t *testing.T) {
	for _, in := range []string{"SOL", "sol", NativeSOL.String(), WSOL.String()} {
		mint, err := ParseMint(in)
		require.NoError(t, err)
		assert.Equal(t, WSOL, mint, in)
	}

	mint, err := ParseMint(usdcMint.String())
	require.NoError(t, err)
	assert.Equal(t, usdcMint, mint)

	_, err = ParseMint("not-a-key")
	require.Error(t, err)
}
