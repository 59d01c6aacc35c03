// Package router orchestrates fetch, quote, tick array resolution and transaction assembly.
package router

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/builder"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/gtdvccc/clmmswap/pkg/quote"
	"github.com/gtdvccc/clmmswap/pkg/tickarray"
	"go.uber.org/zap"
)

// Source is the fetch boundary. Every call must return fresh chain state.
type Source interface {
	FetchPoolByID(ctx context.Context, poolID solana.PublicKey) (*raydium.PoolState, error)
	FetchAmmConfig(ctx context.Context, address solana.PublicKey) (*raydium.AmmConfig, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// PoolFinder is implemented by sources that can discover pools for a pair.
type PoolFinder interface {
	FetchPoolsByPair(ctx context.Context, baseMint, quoteMint solana.PublicKey) ([]*raydium.PoolState, error)
}

// Engine wires the pure quoting and building steps to a Source. It keeps no
// snapshots between calls.
type Engine struct {
	source    Source
	programID solana.PublicKey
	quoter    *quote.Quoter
	resolver  *tickarray.Resolver
	builder   *builder.Builder
	maxArrays int
	logger    *zap.Logger
}

type Option func(*Engine)

func WithQuoter(q *quote.Quoter) Option {
	return func(e *Engine) { e.quoter = q }
}

func WithResolver(r *tickarray.Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

func WithBuilder(b *builder.Builder) Option {
	return func(e *Engine) { e.builder = b }
}

// WithMaxArrays caps how many tick array indices a quote may visit.
func WithMaxArrays(n int) Option {
	return func(e *Engine) { e.maxArrays = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine for programID. Components not supplied through
// options are created with their defaults and the engine's logger. The default
// resolver uses the deployed program's geometry: TICK_ARRAY_SIZE ticks per array
// and a bitmap centred at TICK_ARRAY_BITMAP_SIZE.
func NewEngine(source Source, programID solana.PublicKey, opts ...Option) *Engine {
	e := &Engine{
		source:    source,
		programID: programID,
		maxArrays: tickarray.DefaultMaxArrays,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.quoter == nil {
		e.quoter = quote.NewQuoter(e.logger)
	}
	if e.resolver == nil {
		e.resolver = tickarray.NewResolver(
			tickarray.WithTicksPerArray(raydium.TICK_ARRAY_SIZE),
			tickarray.WithBitmapOffset(raydium.TICK_ARRAY_BITMAP_SIZE),
			tickarray.WithLogger(e.logger),
		)
	}
	if e.builder == nil {
		e.builder = builder.NewBuilder(programID, builder.WithLogger(e.logger))
	}
	return e
}

func (e *Engine) fetchPoolAndConfig(ctx context.Context, poolID solana.PublicKey) (*raydium.PoolState, *raydium.AmmConfig, error) {
	pool, err := e.source.FetchPoolByID(ctx, poolID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch pool %s: %w", poolID, err)
	}
	config, err := e.source.FetchAmmConfig(ctx, pool.AmmConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch amm config %s: %w", pool.AmmConfig, err)
	}
	return pool, config, nil
}

// Quote fetches poolID, prices req against it and attaches the tick arrays the
// swap has to reference.
func (e *Engine) Quote(ctx context.Context, poolID solana.PublicKey, req quote.Request) (*pkg.Quote, error) {
	pool, config, err := e.fetchPoolAndConfig(ctx, poolID)
	if err != nil {
		return nil, err
	}

	q, err := e.quoter.Quote(pool, config, req)
	if err != nil {
		return nil, err
	}

	refs, err := e.resolver.Resolve(pool, q.NextSqrtPriceX64, q.ZeroForOne(), e.programID, e.maxArrays)
	if err != nil {
		return nil, err
	}
	q.RoutePlan[0].RemainingAccounts = tickarray.ToRemainingAccounts(refs)

	e.logger.Info("quoted swap",
		zap.String("pool", poolID.String()),
		zap.String("input_mint", req.InputMint.String()),
		zap.String("output_mint", req.OutputMint.String()),
		zap.String("input_amount", q.InputAmount.String()),
		zap.String("output_amount", q.OutputAmount.String()),
		zap.Int("tick_arrays", len(refs)),
	)
	return q, nil
}

// BestQuote quotes req on every pool and keeps the largest output for BaseIn or the
// smallest input for BaseOut. Pools that fail to quote are logged and skipped.
func (e *Engine) BestQuote(ctx context.Context, poolIDs []solana.PublicKey, req quote.Request) (*pkg.Quote, error) {
	var best *pkg.Quote
	for _, poolID := range poolIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, err := e.Quote(ctx, poolID, req)
		if err != nil {
			e.logger.Warn("error quoting", zap.String("pool", poolID.String()), zap.Error(err))
			continue
		}
		if best == nil || better(q, best) {
			best = q
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s -> %s over %d pools", pkg.ErrNoRoute, req.InputMint, req.OutputMint, len(poolIDs))
	}
	return best, nil
}

func better(candidate, current *pkg.Quote) bool {
	if candidate.SwapType == pkg.SwapKindBaseOut {
		return candidate.InputAmount.LT(current.InputAmount)
	}
	return candidate.OutputAmount.GT(current.OutputAmount)
}

// QueryPools discovers the pools trading the pair, when the source supports discovery.
func (e *Engine) QueryPools(ctx context.Context, baseMint, quoteMint solana.PublicKey) ([]*raydium.PoolState, error) {
	finder, ok := e.source.(PoolFinder)
	if !ok {
		return nil, fmt.Errorf("source %T cannot discover pools", e.source)
	}
	pools, err := finder.FetchPoolsByPair(ctx, baseMint, quoteMint)
	if err != nil {
		return nil, err
	}
	return pools, nil
}

// BestQuoteForPair discovers the pair's pools and returns the best quote among them.
func (e *Engine) BestQuoteForPair(ctx context.Context, req quote.Request) (*pkg.Quote, error) {
	pools, err := e.QueryPools(ctx, req.InputMint, req.OutputMint)
	if err != nil {
		return nil, err
	}
	ids := make([]solana.PublicKey, 0, len(pools))
	for _, pool := range pools {
		ids = append(ids, pool.PoolId)
	}
	return e.BestQuote(ctx, ids, req)
}

// BuildTransaction refetches the quoted pool, its config and a blockhash, then
// assembles the unsigned transaction for q. missingAccounts names the quote mints
// whose wallet token accounts have to be created first.
func (e *Engine) BuildTransaction(ctx context.Context, q *pkg.Quote, wallet, feePayer solana.PublicKey, missingAccounts ...solana.PublicKey) (*pkg.UnsignedTransaction, error) {
	poolID, err := q.PoolID()
	if err != nil {
		return nil, err
	}
	pool, config, err := e.fetchPoolAndConfig(ctx, poolID)
	if err != nil {
		return nil, err
	}
	blockhash, err := e.source.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	return e.builder.Build(builder.Params{
		Pool:              pool,
		Config:            config,
		Quote:             q,
		RemainingAccounts: q.RemainingAccounts(),
		Wallet:            wallet,
		FeePayer:          feePayer,
		RecentBlockhash:   blockhash,
		MissingAccounts:   missingAccounts,
	})
}
