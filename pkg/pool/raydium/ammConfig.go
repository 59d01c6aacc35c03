package raydium

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// AmmConfig is the fee configuration shared by every pool created under it.
// Rates are expressed in units of FEE_RATE_DENOMINATOR.
type AmmConfig struct {
	Bump            uint8
	Index           uint16
	Owner           solana.PublicKey
	ProtocolFeeRate uint32
	TradeFeeRate    uint32
	TickSpacing     uint16
	FundFeeRate     uint32
	PaddingU32      uint32
	FundOwner       solana.PublicKey
	Padding         [3]uint64

	Address solana.PublicKey `bin:"-" borsh_skip:"true"`
}

const FEE_RATE_DENOMINATOR = 1_000_000

// Decode parses the config account data including its 8-byte discriminator.
func (c *AmmConfig) Decode(data []byte) error {
	if len(data) < AMM_CONFIG_SPAN {
		return fmt.Errorf("amm config: account data has %d bytes, want %d", len(data), AMM_CONFIG_SPAN)
	}
	if [8]byte(data[:DISCRIMINATOR_SZ]) != AmmConfigDiscriminator {
		return fmt.Errorf("amm config: unexpected discriminator %v", data[:DISCRIMINATOR_SZ])
	}
	address := c.Address
	if err := bin.NewBorshDecoder(data[DISCRIMINATOR_SZ:]).Decode(c); err != nil {
		return fmt.Errorf("amm config: %w", err)
	}
	c.Address = address
	return nil
}

// Encode serializes the config in its on-chain layout.
func (c *AmmConfig) Encode() ([]byte, error) {
	buf, err := bin.MarshalBorsh(c)
	if err != nil {
		return nil, fmt.Errorf("amm config: %w", err)
	}
	return append(AmmConfigDiscriminator[:], buf...), nil
}
