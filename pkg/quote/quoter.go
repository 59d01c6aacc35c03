// Package quote prices a swap against a single pool snapshot.
package quote

import (
	"math/big"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/gtdvccc/clmmswap/pkg/pricemath"
	"github.com/gtdvccc/clmmswap/pkg/sol"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

const bpsDenominator = 10000

// Request is a caller's swap intent.
type Request struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      math.Int
	SlippageBps uint16
	SwapKind    pkg.SwapKind
}

// Quoter computes quotes with the single-step liquidity approximation.
// It never touches the network and is safe for concurrent use.
type Quoter struct {
	logger *zap.Logger
}

func NewQuoter(logger *zap.Logger) *Quoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Quoter{logger: logger}
}

// Quote prices req against pool and config. Output amounts are estimated at the
// current price; the next price only feeds the reported price impact and the
// tick array resolution.
func (q *Quoter) Quote(pool *raydium.PoolState, config *raydium.AmmConfig, req Request) (*pkg.Quote, error) {
	if err := q.validate(pool, req); err != nil {
		return nil, err
	}
	const stage = "quote"

	_, _, zeroForOne := sol.NormalizeMintOrder(req.InputMint, req.OutputMint)

	currentPrice := pricemath.SqrtPriceToPrice(pool.SqrtPriceX64, pool.MintDecimals0, pool.MintDecimals1)
	if currentPrice.IsZero() {
		return nil, pkg.NewError(pkg.KindArithmetic, stage, pkg.ErrInvalidPriceBounds, "pool %s has a zero price", pool.PoolId)
	}

	amount := decimal.NewFromBigInt(req.Amount.BigInt(), 0)
	var inputAmount, outputAmount math.Int
	switch req.SwapKind {
	case pkg.SwapKindBaseIn:
		inputAmount = req.Amount
		out, err := toAmount(convert(amount, currentPrice, zeroForOne), "output amount")
		if err != nil {
			return nil, err
		}
		outputAmount = out
	case pkg.SwapKindBaseOut:
		outputAmount = req.Amount
		// the output mint is mint0 exactly when the swap is not zeroForOne
		in, err := toAmount(convert(amount, currentPrice, !zeroForOne), "input amount")
		if err != nil {
			return nil, err
		}
		inputAmount = in
	}

	amountIn, err := toUint128(inputAmount)
	if err != nil {
		return nil, err
	}
	nextSqrtPrice, err := pricemath.NextSqrtPriceFromInput(pool.SqrtPriceX64, pool.Liquidity, amountIn, zeroForOne)
	if err != nil {
		return nil, err
	}
	nextPrice := pricemath.SqrtPriceToPrice(nextSqrtPrice, pool.MintDecimals0, pool.MintDecimals1)

	threshold := otherAmountThreshold(req.SwapKind, inputAmount, outputAmount, req.SlippageBps)
	if !threshold.IsUint64() || !inputAmount.IsUint64() || !outputAmount.IsUint64() {
		return nil, pkg.NewError(pkg.KindArithmetic, stage, pkg.ErrArithmeticOverflow, "amounts exceed u64 (in %s, out %s, threshold %s)", inputAmount, outputAmount, threshold)
	}

	feeDecimals, err := pool.MintDecimals(req.InputMint)
	if err != nil {
		return nil, pkg.NewError(pkg.KindValidation, stage, pkg.ErrMintMismatch, "%v", err)
	}
	// the fee is charged in input units, so BaseOut uses the converted input
	feeAmount := inputAmount.
		Mul(math.NewIntFromUint64(uint64(config.ProtocolFeeRate))).
		Quo(math.NewIntFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(feeDecimals)), nil)))

	result := &pkg.Quote{
		Direction:            pkg.DirectionOf(zeroForOne),
		CurrentPrice:         currentPrice,
		NextPrice:            nextPrice,
		SwapType:             req.SwapKind,
		InputMint:            req.InputMint,
		InputAmount:          inputAmount,
		OutputMint:           req.OutputMint,
		OutputAmount:         outputAmount,
		OtherAmountThreshold: threshold,
		SlippageBps:          req.SlippageBps,
		PriceImpactPct:       pricemath.PriceImpactPct(currentPrice, nextPrice),
		FeeRate:              config.TradeFeeRate,
		FeeAmount:            feeAmount,
		RoutePlan: []pkg.RoutePlan{{
			PoolID:            pool.PoolId,
			InputMint:         req.InputMint,
			OutputMint:        req.OutputMint,
			FeeMint:           req.InputMint,
			FeeRate:           config.TradeFeeRate,
			FeeAmount:         feeAmount,
			RemainingAccounts: []pkg.RemainingAccount{},
			LastPoolPriceX64:  pool.SqrtPriceX64.String(),
		}},
		NextSqrtPriceX64: nextSqrtPrice,
	}

	q.logger.Debug("quote computed",
		zap.String("pool", pool.PoolId.String()),
		zap.String("swap_type", string(req.SwapKind)),
		zap.Bool("zero_for_one", zeroForOne),
		zap.String("input_amount", inputAmount.String()),
		zap.String("output_amount", outputAmount.String()),
		zap.String("price_impact_pct", result.PriceImpactPct.String()),
	)
	return result, nil
}

func (q *Quoter) validate(pool *raydium.PoolState, req Request) error {
	const stage = "validate quote request"
	if req.Amount.IsNil() || !req.Amount.IsPositive() {
		return pkg.NewError(pkg.KindValidation, stage, pkg.ErrInvalidAmount, "amount must be positive")
	}
	if !req.Amount.IsUint64() {
		return pkg.NewError(pkg.KindValidation, stage, pkg.ErrInvalidAmount, "amount %s exceeds u64", req.Amount)
	}
	if req.SlippageBps >= bpsDenominator {
		return pkg.NewError(pkg.KindValidation, stage, pkg.ErrInvalidSlippage, "%d bps", req.SlippageBps)
	}
	if !req.SwapKind.Valid() {
		return pkg.NewError(pkg.KindValidation, stage, pkg.ErrUnsupportedSwapKind, "%q", req.SwapKind)
	}
	if req.InputMint.Equals(req.OutputMint) {
		return pkg.NewError(pkg.KindValidation, stage, pkg.ErrIdenticalMints, "%s", req.InputMint)
	}
	mint0, mint1, _ := sol.NormalizeMintOrder(req.InputMint, req.OutputMint)
	if !mint0.Equals(pool.TokenMint0) || !mint1.Equals(pool.TokenMint1) {
		return pkg.NewError(pkg.KindValidation, stage, pkg.ErrMintMismatch,
			"pair %s/%s, pool %s has %s/%s", req.InputMint, req.OutputMint, pool.PoolId, pool.TokenMint0, pool.TokenMint1)
	}
	if !pool.IsSwapEnabled() {
		return pkg.NewError(pkg.KindValidation, stage, pkg.ErrPoolSwapDisabled, "pool %s status %d", pool.PoolId, pool.Status)
	}
	return nil
}

// convert moves an amount across the pair at price (mint1 per mint0): amounts of
// mint0 are divided by the price, amounts of mint1 multiplied.
func convert(amount, price decimal.Decimal, fromMint0 bool) decimal.Decimal {
	if fromMint0 {
		return amount.DivRound(price, pricemath.PriceScale)
	}
	return amount.Mul(price)
}

func toAmount(d decimal.Decimal, what string) (math.Int, error) {
	v := d.Truncate(0).BigInt()
	if v.BitLen() > 128 {
		return math.Int{}, pkg.NewError(pkg.KindArithmetic, "quote", pkg.ErrArithmeticOverflow, "%s %s", what, d)
	}
	return math.NewIntFromBigInt(v), nil
}

func toUint128(v math.Int) (uint128.Uint128, error) {
	b := v.BigInt()
	if b.Sign() < 0 || b.BitLen() > 128 {
		return uint128.Zero, pkg.NewError(pkg.KindArithmetic, "quote", pkg.ErrArithmeticOverflow, "amount %s", v)
	}
	lo := new(big.Int).And(b, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(b, 64).Uint64()
	return uint128.New(lo, hi), nil
}

// otherAmountThreshold is the minimum output for BaseIn and the maximum input for BaseOut.
func otherAmountThreshold(kind pkg.SwapKind, inputAmount, outputAmount math.Int, slippageBps uint16) math.Int {
	denominator := math.NewInt(bpsDenominator)
	if kind == pkg.SwapKindBaseOut {
		return inputAmount.Mul(math.NewInt(bpsDenominator + int64(slippageBps))).Quo(denominator)
	}
	return outputAmount.Mul(math.NewInt(bpsDenominator - int64(slippageBps))).Quo(denominator)
}
