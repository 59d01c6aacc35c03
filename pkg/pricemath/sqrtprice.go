// Package pricemath converts between Q64.64 square-root prices and human prices
// and implements the single-step constant-liquidity price move used for quoting.
package pricemath

import (
	"math/big"

	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"
)

const (
	MinTick = -443636
	MaxTick = 443636

	// PriceScale is the number of decimal places kept by human-facing prices.
	PriceScale = 30
)

var (
	MinSqrtPriceX64 = uint128.From64(4295048016)
	// 79226673521066979257578248091
	MaxSqrtPriceX64 = uint128.New(9537527425331189659, 4294886577)

	q64     = new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	q128    = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	q128Dec = decimal.NewFromBigInt(q128.ToBig(), 0)
	hundred = decimal.NewFromInt(100)
)

func toU256(v uint128.Uint128) *uint256.Int {
	return &uint256.Int{v.Lo, v.Hi, 0, 0}
}

func fromU256(v *uint256.Int) (uint128.Uint128, bool) {
	if v[2] != 0 || v[3] != 0 {
		return uint128.Zero, false
	}
	return uint128.New(v[0], v[1]), true
}

// SqrtPriceToPrice returns the price of mint1 per mint0 in whole-token units.
func SqrtPriceToPrice(sqrtPriceX64 uint128.Uint128, decimals0, decimals1 uint8) decimal.Decimal {
	s := toU256(sqrtPriceX64)
	// a 128-bit value squared always fits in 256 bits
	sq := new(uint256.Int).Mul(s, s)
	raw := decimal.NewFromBigInt(sq.ToBig(), 0).DivRound(q128Dec, PriceScale)
	return raw.Shift(int32(decimals0) - int32(decimals1))
}

// SqrtPriceX64FromPrice inverts SqrtPriceToPrice, rounding down.
func SqrtPriceX64FromPrice(price decimal.Decimal, decimals0, decimals1 uint8) (uint128.Uint128, error) {
	if !price.IsPositive() {
		return uint128.Zero, pkg.NewError(pkg.KindArithmetic, "sqrt price from price", pkg.ErrInvalidPriceBounds, "price %s", price)
	}
	raw := price.Shift(int32(decimals1) - int32(decimals0))
	f, ok := new(big.Float).SetPrec(256).SetString(raw.String())
	if !ok {
		return uint128.Zero, pkg.NewError(pkg.KindArithmetic, "sqrt price from price", pkg.ErrInvalidPriceBounds, "price %s", price)
	}
	f.Sqrt(f)
	f.Mul(f, new(big.Float).SetPrec(256).SetInt(q64.ToBig()))
	n, _ := f.Int(nil)
	v, overflow := uint256.FromBig(n)
	if overflow {
		return uint128.Zero, pkg.NewError(pkg.KindArithmetic, "sqrt price from price", pkg.ErrArithmeticOverflow, "price %s", price)
	}
	out, ok := fromU256(v)
	if !ok {
		return uint128.Zero, pkg.NewError(pkg.KindArithmetic, "sqrt price from price", pkg.ErrArithmeticOverflow, "price %s", price)
	}
	return out, nil
}

// NextSqrtPriceFromInput moves the price by amountIn within the active liquidity.
//
// For zeroForOne the price decreases:
//
//	next = ceil(L*2^64*sqrtP / (L*2^64 + amountIn*sqrtP))
//
// otherwise it increases:
//
//	next = sqrtP + floor(amountIn*2^64 / L)
//
// Crossing into neighbouring ticks is not simulated.
func NextSqrtPriceFromInput(sqrtPriceX64, liquidity, amountIn uint128.Uint128, zeroForOne bool) (uint128.Uint128, error) {
	const stage = "next sqrt price"
	if sqrtPriceX64.IsZero() {
		return uint128.Zero, pkg.NewError(pkg.KindArithmetic, stage, pkg.ErrInvalidPriceBounds, "sqrt price is zero")
	}
	if liquidity.IsZero() {
		return uint128.Zero, pkg.NewError(pkg.KindArithmetic, stage, pkg.ErrZeroLiquidity, "")
	}
	if amountIn.IsZero() {
		return sqrtPriceX64, nil
	}

	sqrtP := toU256(sqrtPriceX64)
	amount := toU256(amountIn)
	liq := toU256(liquidity)

	var next *uint256.Int
	if zeroForOne {
		numerator := new(uint256.Int).Lsh(liq, 64)
		product, overflow := new(uint256.Int).MulOverflow(amount, sqrtP)
		if overflow {
			return uint128.Zero, pkg.NewError(pkg.KindArithmetic, stage, pkg.ErrArithmeticOverflow, "amount * sqrt price")
		}
		denominator, overflow := new(uint256.Int).AddOverflow(numerator, product)
		if overflow {
			return uint128.Zero, pkg.NewError(pkg.KindArithmetic, stage, pkg.ErrArithmeticOverflow, "liquidity + amount * sqrt price")
		}
		quotient, overflow := new(uint256.Int).MulDivOverflow(numerator, sqrtP, denominator)
		if overflow {
			return uint128.Zero, pkg.NewError(pkg.KindArithmetic, stage, pkg.ErrArithmeticOverflow, "mul div")
		}
		if !new(uint256.Int).MulMod(numerator, sqrtP, denominator).IsZero() {
			quotient.AddUint64(quotient, 1)
		}
		next = quotient
	} else {
		shifted := new(uint256.Int).Lsh(amount, 64)
		delta := new(uint256.Int).Div(shifted, liq)
		sum, overflow := new(uint256.Int).AddOverflow(sqrtP, delta)
		if overflow {
			return uint128.Zero, pkg.NewError(pkg.KindArithmetic, stage, pkg.ErrArithmeticOverflow, "sqrt price + delta")
		}
		next = sum
	}

	out, ok := fromU256(next)
	if !ok {
		return uint128.Zero, pkg.NewError(pkg.KindArithmetic, stage, pkg.ErrArithmeticOverflow, "result exceeds 128 bits")
	}
	if out.Cmp(MinSqrtPriceX64) < 0 || out.Cmp(MaxSqrtPriceX64) > 0 {
		return uint128.Zero, pkg.NewError(pkg.KindArithmetic, stage, pkg.ErrInvalidPriceBounds, "next sqrt price %s", out)
	}
	return out, nil
}

// PriceImpactPct returns |current - next| / current * 100.
func PriceImpactPct(current, next decimal.Decimal) decimal.Decimal {
	if current.IsZero() {
		return decimal.Zero
	}
	return current.Sub(next).Abs().Mul(hundred).DivRound(current, PriceScale)
}
