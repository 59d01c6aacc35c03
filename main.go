package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gtdvccc/clmmswap/pkg"
	"github.com/gtdvccc/clmmswap/pkg/builder"
	"github.com/gtdvccc/clmmswap/pkg/pool/raydium"
	"github.com/gtdvccc/clmmswap/pkg/protocol"
	"github.com/gtdvccc/clmmswap/pkg/quote"
	"github.com/gtdvccc/clmmswap/pkg/router"
	"github.com/gtdvccc/clmmswap/pkg/sol"
	"github.com/gtdvccc/clmmswap/pkg/tickarray"
	"github.com/gtdvccc/clmmswap/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile    string
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clmmswap",
		Short:        "Quote Raydium CLMM swaps and assemble unsigned swap transactions",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")
	rootCmd.PersistentFlags().String("rpc-url", "", "Solana RPC endpoint")
	rootCmd.PersistentFlags().String("ws-url", "", "Solana websocket endpoint")
	rootCmd.PersistentFlags().String("program-id", raydium.RAYDIUM_CLMM_PROGRAM_ID.String(), "Raydium CLMM program id")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newQuoteCmd(), newBuildCmd(), newPoolsCmd(), newAmmConfigCmd(), newPdaCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the clients and engine shared by every subcommand.
type app struct {
	cfg    utils.Config
	logger *zap.Logger
	client *sol.Client
	clmm   *protocol.RaydiumClmmProtocol
	engine *router.Engine
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	utils.LoadEnv(nil)

	cfg, err := utils.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	client, err := sol.NewClient(ctx, cfg.RPCURL, cfg.WSURL, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to create solana client: %w", err)
	}
	clmm := protocol.NewRaydiumClmm(client, cfg.ProgramID, logger)

	resolver := tickarray.NewResolver(
		tickarray.WithTicksPerArray(cfg.TicksPerArray),
		tickarray.WithBitmapOffset(cfg.BitmapOffset),
		tickarray.WithLogger(logger),
	)
	txBuilder := builder.NewBuilder(cfg.ProgramID,
		builder.WithComputeUnitLimit(cfg.ComputeUnitLimit),
		builder.WithComputeUnitPrice(cfg.ComputeUnitPrice),
		builder.WithBitmapExtension(cfg.BitmapExtension),
		builder.WithWrapSol(cfg.WrapSol),
		builder.WithLogger(logger),
	)
	engine := router.NewEngine(clmm, cfg.ProgramID,
		router.WithQuoter(quote.NewQuoter(logger)),
		router.WithResolver(resolver),
		router.WithBuilder(txBuilder),
		router.WithMaxArrays(cfg.MaxArrays),
		router.WithLogger(logger),
	)

	return &app{cfg: cfg, logger: logger, client: client, clmm: clmm, engine: engine}, nil
}

func (a *app) Close() {
	if err := a.client.Close(); err != nil {
		a.logger.Warn("close solana client", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// run executes fn with a signal-aware context and a fully wired app.
func run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func addSwapFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "input mint (or SOL)")
	cmd.Flags().String("output", "", "output mint (or SOL)")
	cmd.Flags().String("amount", "", "amount in base units of the fixed side")
	cmd.Flags().String("kind", string(pkg.SwapKindBaseIn), "swap kind: base-in or base-out")
	cmd.Flags().StringSlice("pool", nil, "pool id to quote against, repeatable (default: discover pools for the pair)")
	cmd.Flags().Uint16("slippage-bps", 50, "slippage tolerance in basis points")
	cmd.Flags().Int("max-arrays", tickarray.DefaultMaxArrays, "maximum tick arrays referenced by a swap")
	cmd.Flags().Int64("ticks-per-array", raydium.TICK_ARRAY_SIZE, "tick spacings covered by one tick array")
	cmd.Flags().Int64("bitmap-offset", raydium.TICK_ARRAY_BITMAP_SIZE, "bitmap bit of tick array index zero")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("amount")
}

func swapRequest(cmd *cobra.Command, cfg utils.Config) (quote.Request, []solana.PublicKey, error) {
	flags := cmd.Flags()
	inputStr, _ := flags.GetString("input")
	outputStr, _ := flags.GetString("output")
	amountStr, _ := flags.GetString("amount")
	kindStr, _ := flags.GetString("kind")
	poolStrs, _ := flags.GetStringSlice("pool")

	input, err := sol.ParseMint(inputStr)
	if err != nil {
		return quote.Request{}, nil, err
	}
	output, err := sol.ParseMint(outputStr)
	if err != nil {
		return quote.Request{}, nil, err
	}
	amount, ok := math.NewIntFromString(amountStr)
	if !ok {
		return quote.Request{}, nil, pkg.NewError(pkg.KindValidation, "parse amount", pkg.ErrInvalidAmount, "%q", amountStr)
	}
	kind, err := pkg.ParseSwapKind(kindStr)
	if err != nil {
		return quote.Request{}, nil, err
	}

	pools := make([]solana.PublicKey, 0, len(poolStrs))
	for _, s := range poolStrs {
		id, err := solana.PublicKeyFromBase58(s)
		if err != nil {
			return quote.Request{}, nil, fmt.Errorf("invalid pool %q: %w", s, err)
		}
		pools = append(pools, id)
	}

	return quote.Request{
		InputMint:   input,
		OutputMint:  output,
		Amount:      amount,
		SlippageBps: cfg.SlippageBps,
		SwapKind:    kind,
	}, pools, nil
}

func (a *app) bestQuote(ctx context.Context, req quote.Request, pools []solana.PublicKey) (*pkg.Quote, error) {
	switch len(pools) {
	case 0:
		return a.engine.BestQuoteForPair(ctx, req)
	case 1:
		return a.engine.Quote(ctx, pools[0], req)
	default:
		return a.engine.BestQuote(ctx, pools, req)
	}
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against one or more CLMM pools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				req, pools, err := swapRequest(cmd, a.cfg)
				if err != nil {
					return err
				}
				q, err := a.bestQuote(ctx, req, pools)
				if err != nil {
					return err
				}
				return printQuote(q)
			})
		},
	}
	addSwapFlags(cmd)
	return cmd
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Quote a swap and assemble the unsigned transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				req, pools, err := swapRequest(cmd, a.cfg)
				if err != nil {
					return err
				}
				walletStr, _ := cmd.Flags().GetString("wallet")
				feePayerStr, _ := cmd.Flags().GetString("fee-payer")
				simulate, _ := cmd.Flags().GetBool("simulate")

				wallet, err := solana.PublicKeyFromBase58(walletStr)
				if err != nil {
					return fmt.Errorf("invalid wallet %q: %w", walletStr, err)
				}
				feePayer := wallet
				if feePayerStr != "" {
					if feePayer, err = solana.PublicKeyFromBase58(feePayerStr); err != nil {
						return fmt.Errorf("invalid fee payer %q: %w", feePayerStr, err)
					}
				}

				q, err := a.bestQuote(ctx, req, pools)
				if err != nil {
					return err
				}
				missing := a.missingTokenAccounts(ctx, wallet, q)

				tx, err := a.engine.BuildTransaction(ctx, q, wallet, feePayer, missing...)
				if err != nil {
					return err
				}

				var sim *sol.SimulationResult
				if simulate {
					if sim, err = a.client.SimulateUnsigned(ctx, tx.Transaction); err != nil {
						return err
					}
				}
				return printBuild(q, tx, sim)
			})
		},
	}
	addSwapFlags(cmd)
	cmd.Flags().String("wallet", "", "wallet that owns the token accounts and signs the swap")
	cmd.Flags().String("fee-payer", "", "transaction fee payer (default: wallet)")
	cmd.Flags().Uint32("compute-unit-limit", 0, "prepend SetComputeUnitLimit when non-zero")
	cmd.Flags().Uint64("compute-unit-price", 0, "prepend SetComputeUnitPrice in micro-lamports when non-zero")
	cmd.Flags().Bool("bitmap-extension", false, "reference the pool's tick array bitmap extension")
	cmd.Flags().Bool("wrap-sol", false, "fund the WSOL account before spending it and close it after receiving it")
	cmd.Flags().Bool("simulate", false, "simulate the unsigned transaction without signature verification")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}

// missingTokenAccounts returns the quote mints whose wallet token account does not
// exist yet. Accounts that cannot be checked are assumed to exist.
func (a *app) missingTokenAccounts(ctx context.Context, wallet solana.PublicKey, q *pkg.Quote) []solana.PublicKey {
	missing := make([]solana.PublicKey, 0, 2)
	for _, mint := range []solana.PublicKey{q.InputMint, q.OutputMint} {
		account, exists, err := a.client.TokenAccountExists(ctx, wallet, mint)
		if err != nil {
			a.logger.Warn("cannot check token account", zap.String("mint", mint.String()), zap.Error(err))
			continue
		}
		if exists {
			continue
		}
		a.logger.Info("token account will be created",
			zap.String("mint", mint.String()),
			zap.String("account", account.String()),
		)
		missing = append(missing, mint)
	}
	return missing
}

func newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "List the enabled CLMM pools of a token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				baseStr, _ := cmd.Flags().GetString("base")
				quoteStr, _ := cmd.Flags().GetString("quote")
				base, err := sol.ParseMint(baseStr)
				if err != nil {
					return err
				}
				quoteMint, err := sol.ParseMint(quoteStr)
				if err != nil {
					return err
				}
				pools, err := a.engine.QueryPools(ctx, base, quoteMint)
				if err != nil {
					return err
				}
				return printPools(pools)
			})
		},
	}
	cmd.Flags().String("base", "", "first mint of the pair (or SOL)")
	cmd.Flags().String("quote", "", "second mint of the pair (or SOL)")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("quote")
	return cmd
}

func newAmmConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amm-config",
		Short: "Show the fee configuration at an AMM config index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				config, err := a.clmm.FetchAmmConfigByIndex(ctx, a.cfg.AmmConfigIndex)
				if err != nil {
					return err
				}
				return printAmmConfig(config)
			})
		},
	}
	cmd.Flags().Uint16("amm-config-index", 0, "AMM config index")
	return cmd
}

func newPdaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pda",
		Short: "Derive the program addresses of a pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			poolStr, _ := cmd.Flags().GetString("pool")
			startTicks, _ := cmd.Flags().GetInt32Slice("start-tick")
			poolID, err := solana.PublicKeyFromBase58(poolStr)
			if err != nil {
				return fmt.Errorf("invalid pool %q: %w", poolStr, err)
			}
			rows, err := derivePoolAddresses(cfg.ProgramID, poolID, cfg.AmmConfigIndex, startTicks)
			if err != nil {
				return err
			}
			return printAddresses(rows)
		},
	}
	cmd.Flags().String("pool", "", "pool id")
	cmd.Flags().Int32Slice("start-tick", nil, "tick array start index, repeatable")
	cmd.Flags().Uint16("amm-config-index", 0, "AMM config index")
	_ = cmd.MarkFlagRequired("pool")
	return cmd
}

type addressRow struct {
	Name    string           `json:"name"`
	Address solana.PublicKey `json:"address"`
}

func derivePoolAddresses(programID, poolID solana.PublicKey, configIndex uint16, startTicks []int32) ([]addressRow, error) {
	config, err := raydium.AmmConfigAddress(programID, configIndex)
	if err != nil {
		return nil, err
	}
	observation, err := raydium.ObservationAddress(programID, poolID)
	if err != nil {
		return nil, err
	}
	extension, err := raydium.TickArrayBitmapExtensionAddress(programID, poolID)
	if err != nil {
		return nil, err
	}
	rows := []addressRow{
		{Name: fmt.Sprintf("amm config #%d", configIndex), Address: config},
		{Name: "observation", Address: observation},
		{Name: "tick array bitmap extension", Address: extension},
	}
	for _, start := range startTicks {
		addr, err := raydium.TickArrayAddress(programID, poolID, start)
		if err != nil {
			return nil, err
		}
		rows = append(rows, addressRow{Name: fmt.Sprintf("tick array %d", start), Address: addr})
	}
	return rows, nil
}
