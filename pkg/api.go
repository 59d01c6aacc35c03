package pkg

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"
)

// ProtocolName represents the string name of AMM protocol
type ProtocolName string

const (
	ProtocolNameRaydiumClmm ProtocolName = "raydium_clmm"
)

// SwapKind tells which side of the swap is fixed by the caller.
type SwapKind string

const (
	// SwapKindBaseIn fixes the input amount and quotes the output.
	SwapKindBaseIn SwapKind = "BaseIn"
	// SwapKindBaseOut fixes the output amount and quotes the input.
	SwapKindBaseOut SwapKind = "BaseOut"
)

// ParseSwapKind accepts the canonical names and the CLI spellings.
func ParseSwapKind(s string) (SwapKind, error) {
	switch s {
	case "BaseIn", "base-in", "base_in", "in":
		return SwapKindBaseIn, nil
	case "BaseOut", "base-out", "base_out", "out":
		return SwapKindBaseOut, nil
	}
	return "", NewError(KindValidation, "parse swap kind", ErrUnsupportedSwapKind, "%q", s)
}

func (k SwapKind) Valid() bool {
	return k == SwapKindBaseIn || k == SwapKindBaseOut
}

// Direction is the swap direction relative to the canonical (mint0, mint1) pair.
type Direction string

const (
	DirectionZeroForOne Direction = "zeroForOne"
	DirectionOneForZero Direction = "oneForZero"
)

// DirectionOf maps the zeroForOne flag to a Direction.
func DirectionOf(zeroForOne bool) Direction {
	if zeroForOne {
		return DirectionZeroForOne
	}
	return DirectionOneForZero
}

func (d Direction) ZeroForOne() bool {
	return d == DirectionZeroForOne
}

// RemainingAccount is an auxiliary account appended after the fixed accounts of an instruction.
type RemainingAccount struct {
	Pubkey     solana.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"isSigner"`
	IsWritable bool             `json:"isWritable"`
}

// Meta converts the account into a solana account meta.
func (a RemainingAccount) Meta() *solana.AccountMeta {
	return solana.NewAccountMeta(a.Pubkey, a.IsWritable, a.IsSigner)
}

// RoutePlan describes one pool hop of a quote.
type RoutePlan struct {
	PoolID            solana.PublicKey   `json:"poolId"`
	InputMint         solana.PublicKey   `json:"inputMint"`
	OutputMint        solana.PublicKey   `json:"outputMint"`
	FeeMint           solana.PublicKey   `json:"feeMint"`
	FeeRate           uint32             `json:"feeRate"`
	FeeAmount         math.Int           `json:"feeAmount"`
	RemainingAccounts []RemainingAccount `json:"remainingAccounts"`
	LastPoolPriceX64  string             `json:"lastPoolPriceX64"`
}

// Quote is the result of quoting a swap against a single pool snapshot.
// A Quote is never mutated after it is returned, except for attaching the
// resolved remaining accounts to its route plan before it leaves the engine.
type Quote struct {
	Direction            Direction        `json:"direction"`
	CurrentPrice         decimal.Decimal  `json:"currentPrice"`
	NextPrice            decimal.Decimal  `json:"nextPrice"`
	SwapType             SwapKind         `json:"swapType"`
	InputMint            solana.PublicKey `json:"inputMint"`
	InputAmount          math.Int         `json:"inputAmount"`
	OutputMint           solana.PublicKey `json:"outputMint"`
	OutputAmount         math.Int         `json:"outputAmount"`
	OtherAmountThreshold math.Int         `json:"otherAmountThreshold"`
	SlippageBps          uint16           `json:"slippageBps"`
	PriceImpactPct       decimal.Decimal  `json:"priceImpactPct"`
	FeeRate              uint32           `json:"feeRate"`
	FeeAmount            math.Int         `json:"feeAmount"`
	RoutePlan            []RoutePlan      `json:"routePlan"`

	// NextSqrtPriceX64 is the predicted post-swap sqrt price used to resolve tick arrays.
	NextSqrtPriceX64 uint128.Uint128 `json:"-"`
}

// ZeroForOne reports whether the quote swaps mint0 for mint1.
func (q *Quote) ZeroForOne() bool {
	return q.Direction.ZeroForOne()
}

// SpecifiedAmount is the amount fixed by the caller: the input for BaseIn, the output for BaseOut.
func (q *Quote) SpecifiedAmount() math.Int {
	if q.SwapType == SwapKindBaseOut {
		return q.OutputAmount
	}
	return q.InputAmount
}

// PoolID returns the pool of the first route hop.
func (q *Quote) PoolID() (solana.PublicKey, error) {
	if len(q.RoutePlan) == 0 {
		return solana.PublicKey{}, fmt.Errorf("quote has no route plan")
	}
	return q.RoutePlan[0].PoolID, nil
}

// RemainingAccounts returns the remaining accounts of every route hop in order.
func (q *Quote) RemainingAccounts() []RemainingAccount {
	out := make([]RemainingAccount, 0)
	for _, hop := range q.RoutePlan {
		out = append(out, hop.RemainingAccounts...)
	}
	return out
}

func (q *Quote) String() string {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Sprintf("quote(%s %s -> %s)", q.SwapType, q.InputMint, q.OutputMint)
	}
	return string(b)
}

// UnsignedTransaction is a serialized transaction waiting for the caller's signatures.
type UnsignedTransaction struct {
	// Transaction is the base64 wire encoding with zeroed signature slots.
	Transaction     string           `json:"transaction"`
	FeePayer        solana.PublicKey `json:"feePayer"`
	RecentBlockhash solana.Hash      `json:"recentBlockhash"`
}
