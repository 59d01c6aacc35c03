package main

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/gtdvccc/clmmswap/pkg/sol"
	"github.com/gtdvccc/clmmswap/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdc = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func TestSwapRequestFromFlags(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	cmd := newQuoteCmd()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--input", "SOL",
		"--output", usdc,
		"--amount", "1000000000",
		"--kind", "base-out",
		"--pool", pool.String(),
	}))

	req, pools, err := swapRequest(cmd, utils.Config{SlippageBps: 75})
	require.NoError(t, err)
	assert.Equal(t, sol.WSOL, req.InputMint)
	assert.Equal(t, usdc, req.OutputMint.String())
	assert.Equal(t, "1000000000", req.Amount.String())
	assert.Equal(t, pkg.SwapKindBaseOut, req.SwapKind)
	assert.Equal(t, uint16(75), req.SlippageBps)
	assert.Equal(t, []solana.PublicKey{pool}, pools)
}

func TestSwapRequestRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"amount", []string{"--input", "SOL", "--output", usdc, "--amount", "1.5"}, pkg.ErrInvalidAmount},
		{"kind", []string{"--input", "SOL", "--output", usdc, "--amount", "1", "--kind", "exact"}, pkg.ErrUnsupportedSwapKind},
		{"mint", []string{"--input", "nope", "--output", usdc, "--amount", "1"}, nil},
		{"pool", []string{"--input", "SOL", "--output", usdc, "--amount", "1", "--pool", "nope"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newQuoteCmd()
			require.NoError(t, cmd.Flags().Parse(tt.args))
			_, _, err := swapRequest(cmd, utils.Config{})
			require.Error(t, err)
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want), "got %v", err)
			}
		})
	}
}

func TestDerivePoolAddresses(t *testing.T) {
	programID := raydium.RAYDIUM_CLMM_PROGRAM_ID
	pool := solana.NewWallet().PublicKey()

	rows, err := derivePoolAddresses(programID, pool, 1, []int32{-600, 0})
	require.NoError(t, err)
	require.Len(t, rows, 5)

	config, err := raydium.AmmConfigAddress(programID, 1)
	require.NoError(t, err)
	assert.Equal(t, config, rows[0].Address)

	tickArray, err := raydium.TickArrayAddress(programID, pool, -600)
	require.NoError(t, err)
	assert.Equal(t, "tick array -600", rows[3].Name)
	assert.Equal(t, tickArray, rows[3].Address)
}
