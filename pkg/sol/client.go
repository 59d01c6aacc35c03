package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"
)

// Client represents a Solana client that handles both RPC and WebSocket connections
type Client struct {
	RpcClient  *rpc.Client
	WsClient   *ws.Client
	Commitment rpc.CommitmentType
	logger     *zap.Logger
}

// NewClient creates a new Solana client. The WebSocket connection is only opened
// when wsEndpoint is set.
func NewClient(ctx context.Context, endpoint, wsEndpoint string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		RpcClient:  rpc.New(endpoint),
		Commitment: rpc.CommitmentConfirmed,
		logger:     logger,
	}
	if wsEndpoint != "" {
		wsClient, err := ws.Connect(ctx, wsEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to establish WebSocket connection: %w", err)
		}
		c.WsClient = wsClient
	}
	return c, nil
}

// Close terminates all client connections
func (c *Client) Close() error {
	if c.WsClient != nil {
		c.WsClient.Close()
	}
	return nil
}

// AccountData returns the raw data of account. A missing account yields rpc.ErrNotFound.
func (c *Client) AccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	res, err := c.RpcClient.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.Commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", account, err)
	}
	return res.Value.Data.GetBinary(), nil
}

// MultipleAccountData fetches accounts in one round trip. Missing accounts come back as nil.
func (c *Client) MultipleAccountData(ctx context.Context, accounts []solana.PublicKey) ([][]byte, error) {
	res, err := c.RpcClient.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.Commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %d accounts: %w", len(accounts), err)
	}
	out := make([][]byte, len(accounts))
	for i, acc := range res.Value {
		if i >= len(out) {
			break
		}
		if acc == nil || acc.Data == nil {
			c.logger.Debug("account not found", zap.String("account", accounts[i].String()))
			continue
		}
		out[i] = acc.Data.GetBinary()
	}
	return out, nil
}

// LatestBlockhash returns the blockhash a new transaction should be anchored to.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.RpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, fmt.Errorf("empty latest blockhash response")
	}
	return res.Value.Blockhash, nil
}
