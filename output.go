package main

import (
	"encoding/json"
	"os"

	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/gtdvccc/clmmswap/pkg/sol"
	"github.com/jedib0t/go-pretty/v6/table"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("%s", title)
	t.SetStyle(table.StyleLight)
	return t
}

func printQuote(q *pkg.Quote) error {
	if jsonOutput {
		return printJSON(q)
	}
	renderQuote(q)
	return nil
}

func renderQuote(q *pkg.Quote) {
	t := newTable("Quote")
	t.AppendRow(table.Row{"Swap type", q.SwapType})
	t.AppendRow(table.Row{"Direction", q.Direction})
	t.AppendRow(table.Row{"Input", q.InputMint.String(), q.InputAmount.String()})
	t.AppendRow(table.Row{"Output", q.OutputMint.String(), q.OutputAmount.String()})
	threshold := "Minimum output"
	if q.SwapType == pkg.SwapKindBaseOut {
		threshold = "Maximum input"
	}
	t.AppendRow(table.Row{threshold, q.OtherAmountThreshold.String()})
	t.AppendRow(table.Row{"Slippage (bps)", q.SlippageBps})
	t.AppendRow(table.Row{"Price", q.CurrentPrice.String(), q.NextPrice.String()})
	t.AppendRow(table.Row{"Price impact (%)", q.PriceImpactPct.StringFixed(6)})
	t.AppendRow(table.Row{"Fee", q.FeeAmount.String(), q.FeeRate})
	for _, hop := range q.RoutePlan {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Pool", hop.PoolID.String()})
		t.AppendRow(table.Row{"Fee mint", hop.FeeMint.String()})
		for _, acc := range hop.RemainingAccounts {
			t.AppendRow(table.Row{"Tick array", acc.Pubkey.String()})
		}
	}
	t.Render()
}

type buildOutput struct {
	Quote      *pkg.Quote               `json:"quote"`
	Tx         *pkg.UnsignedTransaction `json:"unsignedTransaction"`
	Simulation *sol.SimulationResult    `json:"simulation,omitempty"`
}

func printBuild(q *pkg.Quote, tx *pkg.UnsignedTransaction, sim *sol.SimulationResult) error {
	if jsonOutput {
		return printJSON(buildOutput{Quote: q, Tx: tx, Simulation: sim})
	}
	renderQuote(q)

	t := newTable("Unsigned transaction")
	t.AppendRow(table.Row{"Fee payer", tx.FeePayer.String()})
	t.AppendRow(table.Row{"Blockhash", tx.RecentBlockhash.String()})
	if sim != nil {
		status := "ok"
		if sim.Err != nil {
			status = "failed"
		}
		t.AppendRow(table.Row{"Simulation", status, sim.UnitsConsumed})
	}
	t.Render()

	if sim != nil && sim.Err != nil {
		for _, line := range sim.Logs {
			os.Stdout.WriteString(line + "\n")
		}
	}
	os.Stdout.WriteString(tx.Transaction + "\n")
	return nil
}

func printPools(pools []*raydium.PoolState) error {
	if jsonOutput {
		type poolRow struct {
			ID          string `json:"id"`
			AmmConfig   string `json:"ammConfig"`
			Mint0       string `json:"mint0"`
			Mint1       string `json:"mint1"`
			TickSpacing uint16 `json:"tickSpacing"`
			TickCurrent int32  `json:"tickCurrent"`
			Liquidity   string `json:"liquidity"`
			Price       string `json:"price"`
		}
		rows := make([]poolRow, 0, len(pools))
		for _, p := range pools {
			rows = append(rows, poolRow{
				ID:          p.PoolId.String(),
				AmmConfig:   p.AmmConfig.String(),
				Mint0:       p.TokenMint0.String(),
				Mint1:       p.TokenMint1.String(),
				TickSpacing: p.TickSpacing,
				TickCurrent: p.TickCurrent,
				Liquidity:   p.Liquidity.String(),
				Price:       p.CurrentPrice().String(),
			})
		}
		return printJSON(rows)
	}

	t := newTable("CLMM pools")
	t.AppendHeader(table.Row{"Pool", "AMM config", "Tick spacing", "Tick", "Liquidity", "Price"})
	for _, p := range pools {
		t.AppendRow(table.Row{p.PoolId.String(), p.AmmConfig.String(), p.TickSpacing, p.TickCurrent, p.Liquidity.String(), p.CurrentPrice().String()})
	}
	t.SetCaption("%d pools", len(pools))
	t.Render()
	return nil
}

func printAmmConfig(c *raydium.AmmConfig) error {
	if jsonOutput {
		return printJSON(c)
	}
	t := newTable(c.Address.String())
	t.AppendRow(table.Row{"Index", c.Index})
	t.AppendRow(table.Row{"Tick spacing", c.TickSpacing})
	t.AppendRow(table.Row{"Trade fee rate", c.TradeFeeRate})
	t.AppendRow(table.Row{"Protocol fee rate", c.ProtocolFeeRate})
	t.AppendRow(table.Row{"Fund fee rate", c.FundFeeRate})
	t.AppendRow(table.Row{"Owner", c.Owner.String()})
	t.SetCaption("rates in units of 1/%d", raydium.FEE_RATE_DENOMINATOR)
	t.Render()
	return nil
}

func printAddresses(rows []addressRow) error {
	if jsonOutput {
		return printJSON(rows)
	}
	t := newTable("Program addresses")
	for _, r := range rows {
		t.AppendRow(table.Row{r.Name, r.Address.String()})
	}
	t.Render()
	return nil
}
