package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/camuig/paper-desk/internal/config"
	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/ledger"
	"github.com/camuig/paper-desk/internal/logger"
	"github.com/camuig/paper-desk/internal/marketdata"
	"github.com/camuig/paper-desk/internal/portfolio"
	"github.com/camuig/paper-desk/internal/storage"
	"github.com/camuig/paper-desk/internal/storage/postgres"
	"github.com/camuig/paper-desk/internal/storage/sqlite"
)

// env is what every subcommand needs. close releases the database.
type env struct {
	cfg     *config.Config
	ledger  *ledger.Ledger
	signals storage.SignalLog
	close   func() error
}

// openEnv is swapped out by tests.
var openEnv = func() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if cfg.Database.Driver == "postgres" {
		ctx := context.Background()
		pool, err := postgres.NewPool(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &env{
			cfg:     cfg,
			ledger:  ledger.New(postgres.NewPositionStore(pool), logger.Nop()),
			signals: postgres.NewSignalLog(pool),
			close:   func() error { pool.Close(); return nil },
		}, nil
	}

	db, err := sqlite.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:     cfg,
		ledger:  ledger.New(sqlite.NewPositionStore(db), logger.Nop()),
		signals: sqlite.NewSignalLog(db),
		close:   func() error { return sqlite.Close(db) },
	}, nil
}

// newPriceSource is swapped out by tests.
var newPriceSource = func(cfg *config.Config) ledger.PriceSource {
	return &marketdata.Router{
		Equities: marketdata.NewYahoo(cfg.MarketData.YahooBaseURL, "1d", cfg.MarketData.Proxy, cfg.MarketDataTimeout()),
		Crypto:   marketdata.NewBinance(cfg.MarketData.BinanceBaseURL, "1d", cfg.MarketData.Proxy, cfg.MarketDataTimeout()),
		MOEX:     marketdata.NewMOEX(cfg.MarketData.MoexBaseURL, "1d", cfg.MarketData.Proxy, cfg.MarketDataTimeout()),
	}
}

func withEnv(fn func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd.Context(), e, cmd, args)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid position id %q", s)
	}
	return id, nil
}

func listCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List positions, newest first",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, _ []string) error {
			positions, err := e.ledger.List(ctx, domain.PositionStatus(strings.ToUpper(status)))
			if err != nil {
				return err
			}
			if len(positions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No positions.")
				return nil
			}
			printPositions(cmd.OutOrStdout(), positions)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (OPEN or CLOSED)")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one position",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := e.ledger.Get(ctx, id)
			if err != nil {
				return err
			}
			printPositions(cmd.OutOrStdout(), []domain.Position{p})
			if pnl, ok := ledger.Realized(p); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "\nRealized P&L: %.2f (%.2f%%)\n", pnl.Leveraged, pnl.LeveragedPercent)
			}
			if p.Notes != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Notes: %s\n", *p.Notes)
			}
			return nil
		}),
	}
}

func closeCmd() *cobra.Command {
	var price float64
	var notes string
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close an open position at the given exit price",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req := ledger.CloseRequest{ExitPrice: price}
			if notes != "" {
				req.Notes = &notes
			}
			p, err := e.ledger.Close(ctx, id, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Closed #%d %s at %.4f, P&L %.2f\n", p.ID, p.AssetSymbol, price, ledger.ClosedPnL(p))
			return nil
		}),
	}
	cmd.Flags().Float64VarP(&price, "price", "p", 0, "exit price")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "closing notes")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func closeAllCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "close-all",
		Short: "Close every open position at the current market price",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			open, err := e.ledger.OpenWithPnL(ctx, newPriceSource(e.cfg))
			if err != nil {
				return err
			}
			if len(open) == 0 {
				fmt.Fprintln(out, "No priced open positions.")
				return nil
			}

			fmt.Fprintf(out, "Found %d position(s):\n\n", len(open))
			for _, p := range open {
				fmt.Fprintf(out, "  #%d %s %s: entry %.4f, current %.4f, P&L %.2f\n",
					p.ID, p.Type, p.AssetSymbol, p.EntryPrice, *p.CurrentPrice, p.Leveraged)
			}
			fmt.Fprintln(out)

			if dryRun {
				fmt.Fprintln(out, "Dry run, nothing closed.")
				return nil
			}

			notes := "closed by close-all"
			var closed, failed int
			for _, p := range open {
				if _, err := e.ledger.Close(ctx, p.ID, ledger.CloseRequest{ExitPrice: *p.CurrentPrice, Notes: &notes}); err != nil {
					fmt.Fprintf(out, "  FAIL #%d %s: %v\n", p.ID, p.AssetSymbol, err)
					failed++
					continue
				}
				closed++
			}
			fmt.Fprintf(out, "Closed: %d, failed: %d\n", closed, failed)
			if failed > 0 {
				return fmt.Errorf("%d position(s) failed to close", failed)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show positions without closing")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print portfolio statistics",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, _ []string) error {
			positions, err := e.ledger.List(ctx, "")
			if err != nil {
				return err
			}
			s := portfolio.Compute(positions)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Positions\t%d (open %d, closed %d)\n", s.TotalPositions, s.OpenPositions, s.ClosedPositions)
			fmt.Fprintf(tw, "Total P&L\t%.2f (%.2f%%)\n", s.TotalPnL, s.TotalPnLPercent)
			fmt.Fprintf(tw, "Win rate\t%.1f%%\n", s.WinRate)
			fmt.Fprintf(tw, "Largest win\t%.2f\n", s.LargestWin)
			fmt.Fprintf(tw, "Largest loss\t%.2f\n", s.LargestLoss)
			fmt.Fprintf(tw, "Avg win\t%.2f\n", s.AvgWin)
			fmt.Fprintf(tw, "Avg loss\t%.2f\n", s.AvgLoss)
			return tw.Flush()
		}),
	}
}

func signalsCmd() *cobra.Command {
	var symbol string
	var limit int
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Show recently journaled signals",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, cmd *cobra.Command, _ []string) error {
			records, err := e.signals.Recent(ctx, strings.ToUpper(symbol), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No signals.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSYMBOL\tSIGNAL\tCONFIDENCE\tMODEL")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%s\n",
					r.Signal.Timestamp.Format("2006-01-02 15:04"), r.Signal.Symbol, r.Signal.Kind,
					r.Signal.Confidence, r.Signal.ModelVersion)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "only this symbol")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of signals")
	return cmd
}

func printPositions(w io.Writer, positions []domain.Position) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tASSET\tSIDE\tENTRY\tQTY\tLEV\tSTATUS\tEXIT\tOPENED")
	for _, p := range positions {
		exit := "-"
		if p.ExitPrice != nil {
			exit = strconv.FormatFloat(*p.ExitPrice, 'f', 4, 64)
		}
		fmt.Fprintf(tw, "%d\t%s:%s\t%s\t%.4f\t%g\t%gx\t%s\t%s\t%s\n",
			p.ID, p.AssetClass, p.AssetSymbol, p.Type, p.EntryPrice, p.Quantity, p.Leverage,
			p.Status, exit, p.EntryTime.Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}
