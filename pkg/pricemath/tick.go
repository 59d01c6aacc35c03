package pricemath

import (
	"math"
	"math/big"

	"lukechampine.com/uint128"
)

var logTickBase = math.Log(1.0001)

// TickAtSqrtPrice returns round(log(price) / log(1.0001)) where price = (sqrtPriceX64 / 2^64)^2,
// clamped to [MinTick, MaxTick].
func TickAtSqrtPrice(sqrtPriceX64 uint128.Uint128) int32 {
	if sqrtPriceX64.IsZero() {
		return MinTick
	}
	f, _ := new(big.Float).SetInt(sqrtPriceX64.Big()).Float64()
	sqrtPrice := math.Ldexp(f, -64)
	tick := math.Round(2 * math.Log(sqrtPrice) / logTickBase)
	switch {
	case tick < MinTick:
		return MinTick
	case tick > MaxTick:
		return MaxTick
	}
	return int32(tick)
}
