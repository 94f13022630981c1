// Package main is the terminal client: it renders live spread tables,
// follows the websocket feed, and exports stored history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sharkspread/internal/adapter"
	"sharkspread/internal/config"
	"sharkspread/internal/domain"
	"sharkspread/internal/feed"
	"sharkspread/internal/probe"
	"sharkspread/internal/report"
	"sharkspread/internal/spread"
	"sharkspread/internal/stats"
)

func main() {
	root := &cobra.Command{
		Use:          "spreadwatch",
		Short:        "CEX/DEX spread viewer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("mode", "direct", "transport: direct, backend, hybrid")
	root.PersistentFlags().String("backend-url", "", "gateway base URL for backend and hybrid modes")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	tableCmd := &cobra.Command{
		Use:   "table",
		Short: "Print the current spread table once",
		RunE:  runTable,
	}
	root.AddCommand(tableCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live feed",
		RunE:  runWatch,
	}
	watchCmd.Flags().String("ws-url", "", "websocket feed URL, defaults to the backend URL's /ws")
	watchCmd.Flags().Duration("poll-interval", 10*time.Second, "polling cadence without a feed")
	root.AddCommand(watchCmd)

	exportCmd := &cobra.Command{
		Use:   "export [symbol]",
		Short: "Export stored history as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().String("timeframe", "24h", "window: 1h, 24h, 7d")
	exportCmd.Flags().String("out", "", "output file, stdout when empty")
	root.AddCommand(exportCmd)

	statsCmd := &cobra.Command{
		Use:   "stats [symbol]",
		Short: "Summarize stored history",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
	statsCmd.Flags().String("timeframe", "24h", "window: 1h, 24h, 7d")
	root.AddCommand(statsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command) (*config.Config, adapter.Source, *zap.Logger, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	source, cleanup, err := buildSource(cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, nil, nil, err
	}
	return cfg, source, logger, func() {
		cleanup()
		logger.Sync()
	}, nil
}

func runTable(cmd *cobra.Command, _ []string) error {
	_, source, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return printTable(ctx, source)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, source, logger, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Keep the hybrid recovery probe running for long watches.
	if h, ok := source.(*adapter.Hybrid); ok {
		go h.Run(ctx)
	}

	wsURL, _ := cmd.Flags().GetString("ws-url")
	if wsURL == "" && cfg.WSURL != "" {
		wsURL = cfg.WSURL
	}

	if wsURL != "" {
		return watchFeed(ctx, wsURL, logger)
	}

	pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
	return watchPolling(ctx, source, pollInterval)
}

// watchFeed renders rows as they arrive on the websocket feed. The
// feed client reconnects on its own; a side-channel handshake probe
// surfaces endpoint health while the stream is quiet.
func watchFeed(ctx context.Context, wsURL string, logger *zap.Logger) error {
	prober := probe.New(probe.Options{
		Endpoint: wsURL,
		Listener: func(old, new domain.ConnState) {
			logger.Warn("feed endpoint state changed",
				zap.String("from", old.String()),
				zap.String("to", new.String()))
		},
		Logger: logger,
	})
	go prober.Run(ctx)

	client := feed.NewClient(wsURL, nil, logger)
	rowsCh := client.Subscribe(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case rows, ok := <-rowsCh:
			if !ok {
				return nil
			}
			printRows(rows)
		}
	}
}

// watchPolling re-renders the snapshot table on a fixed cadence.
func watchPolling(ctx context.Context, source adapter.Source, interval time.Duration) error {
	if err := printTable(ctx, source); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printTable(ctx, source); err != nil {
				fmt.Fprintf(os.Stderr, "refresh failed: %v\n", err)
			}
		}
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	_, source, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tfRaw, _ := cmd.Flags().GetString("timeframe")
	tf, err := domain.ParseTimeframe(tfRaw)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	points, err := source.History(ctx, args[0], tf, 0)
	if err != nil {
		return err
	}
	csv := report.RenderCSV(points)

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		fmt.Print(csv)
		return nil
	}
	if err := os.WriteFile(out, []byte(csv), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %d samples to %s\n", len(points), out)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	_, source, _, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tfRaw, _ := cmd.Flags().GetString("timeframe")
	tf, err := domain.ParseTimeframe(tfRaw)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	points, err := source.History(ctx, args[0], tf, 0)
	if err != nil {
		return err
	}
	fmt.Print(report.RenderMarkdown(tf, []*stats.WindowStats{stats.Compute(args[0], points)}))
	return nil
}

// printTable fetches a snapshot per token and renders one table.
func printTable(ctx context.Context, source adapter.Source) error {
	tokens, err := source.Tokens(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN\tCEX\tDEX\tCEX PRICE\tDEX PRICE\tSPREAD\tAS OF")
	for _, tok := range tokens {
		if !tok.Enabled {
			fmt.Fprintf(w, "%s\tmexc\t—\t—\t—\t—\tdelisted\n", tok.Symbol)
			continue
		}
		dex, err := tok.DEXVenue()
		if err != nil {
			continue
		}
		snap, err := source.Snapshot(ctx, tok)
		if err != nil {
			fmt.Fprintf(w, "%s\tmexc\t%s\t—\t—\t—\tunavailable\n", tok.Symbol, dex)
			continue
		}
		fmt.Fprintf(w, "%s\tmexc\t%s\t%s\t%s\t%s\t%s\n",
			tok.Symbol,
			dex,
			formatQuote(snap.Prices[domain.VenueMEXC]),
			formatQuote(snap.Prices[dex]),
			spread.FormatSpread(snap.Spreads[dex]),
			spread.FormatTime(snap.TakenAt),
		)
	}
	return w.Flush()
}

func printRows(rows []feed.Row) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Token, r.Exchange1, r.Exchange2, r.Price1, r.Price2, r.Spread, r.Network)
	}
	w.Flush()
}

func formatQuote(p float64) string {
	if p == 0 {
		return "—"
	}
	return spread.FormatPrice(p)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
