package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/gtdvccc/clmmswap/pkg/sol"
	"go.uber.org/zap"
)

// RaydiumClmmProtocol fetches Raydium CLMM pool and config snapshots.
//
// Every call goes to the RPC node; nothing is cached, since prices move between calls.
// Callers own timeouts through ctx and decide whether to retry.
type RaydiumClmmProtocol struct {
	SolClient *sol.Client
	ProgramID solana.PublicKey
	logger    *zap.Logger
}

// NewRaydiumClmm creates a protocol instance bound to programID. A zero
// programID selects the mainnet program.
func NewRaydiumClmm(solClient *sol.Client, programID solana.PublicKey, logger *zap.Logger) *RaydiumClmmProtocol {
	if programID.IsZero() {
		programID = raydium.RAYDIUM_CLMM_PROGRAM_ID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RaydiumClmmProtocol{
		SolClient: solClient,
		ProgramID: programID,
		logger:    logger,
	}
}

func (p *RaydiumClmmProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameRaydiumClmm
}

// FetchPoolsByPair lists the swap-enabled pools trading baseMint against quoteMint.
func (p *RaydiumClmmProtocol) FetchPoolsByPair(ctx context.Context, baseMint, quoteMint solana.PublicKey) ([]*raydium.PoolState, error) {
	accounts := make([]*rpc.KeyedAccount, 0)

	// pools store their mints in canonical order, but query both to be safe
	programAccounts, err := p.getCLMMPoolAccountsByTokenPair(ctx, baseMint, quoteMint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools with base token %s: %w", baseMint, err)
	}
	accounts = append(accounts, programAccounts...)

	programAccounts, err = p.getCLMMPoolAccountsByTokenPair(ctx, quoteMint, baseMint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pools with base token %s: %w", quoteMint, err)
	}
	accounts = append(accounts, programAccounts...)

	res := make([]*raydium.PoolState, 0, len(accounts))
	for _, v := range accounts {
		if v.Account == nil || v.Account.Data == nil {
			continue
		}
		layout := &raydium.PoolState{}
		if err := layout.Decode(v.Account.Data.GetBinary()); err != nil {
			p.logger.Warn("skipping undecodable pool", zap.String("pool", v.Pubkey.String()), zap.Error(err))
			continue
		}
		layout.PoolId = v.Pubkey
		layout.ProgramID = p.ProgramID

		if !layout.IsSwapEnabled() {
			p.logger.Warn("skipping pool with swaps disabled",
				zap.String("pool", layout.PoolId.String()),
				zap.Uint8("status", layout.Status),
			)
			continue
		}
		res = append(res, layout)
	}
	return res, nil
}

func (p *RaydiumClmmProtocol) getCLMMPoolAccountsByTokenPair(ctx context.Context, baseMint, quoteMint solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	var knownPoolLayout raydium.PoolState
	result, err := p.SolClient.RpcClient.GetProgramAccountsWithOpts(ctx, p.ProgramID, &rpc.GetProgramAccountsOpts{
		Commitment: p.SolClient.Commitment,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  raydium.PoolStateDiscriminator[:],
				},
			},
			{
				DataSize: knownPoolLayout.Span(),
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: knownPoolLayout.Offset("TokenMint0"),
					Bytes:  baseMint.Bytes(),
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: knownPoolLayout.Offset("TokenMint1"),
					Bytes:  quoteMint.Bytes(),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}
	return result, nil
}

// FetchPoolByID fetches and decodes a single pool.
func (p *RaydiumClmmProtocol) FetchPoolByID(ctx context.Context, poolID solana.PublicKey) (*raydium.PoolState, error) {
	data, err := p.SolClient.AccountData(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolID, err)
	}
	layout := &raydium.PoolState{}
	if err := layout.Decode(data); err != nil {
		return nil, fmt.Errorf("failed to decode pool data for %s: %w", poolID, err)
	}
	layout.PoolId = poolID
	layout.ProgramID = p.ProgramID
	return layout, nil
}

// FetchAmmConfig fetches and decodes the config account at address.
func (p *RaydiumClmmProtocol) FetchAmmConfig(ctx context.Context, address solana.PublicKey) (*raydium.AmmConfig, error) {
	data, err := p.SolClient.AccountData(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get amm config %s: %w", address, err)
	}
	config := &raydium.AmmConfig{Address: address}
	if err := config.Decode(data); err != nil {
		return nil, fmt.Errorf("failed to decode amm config %s: %w", address, err)
	}
	return config, nil
}

// FetchAmmConfigByIndex derives the config address for index and fetches it.
func (p *RaydiumClmmProtocol) FetchAmmConfigByIndex(ctx context.Context, index uint16) (*raydium.AmmConfig, error) {
	address, err := raydium.AmmConfigAddress(p.ProgramID, index)
	if err != nil {
		return nil, err
	}
	return p.FetchAmmConfig(ctx, address)
}

// LatestBlockhash returns the blockhash new transactions are anchored to.
func (p *RaydiumClmmProtocol) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return p.SolClient.LatestBlockhash(ctx)
}
