// Package main runs the sharkspread gateway: the collector sampling
// venue prices, the REST and websocket API, the venue proxies, and the
// metrics sidecar.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sharkspread/internal/adapter"
	"sharkspread/internal/collector"
	"sharkspread/internal/config"
	"sharkspread/internal/discovery"
	"sharkspread/internal/domain"
	"sharkspread/internal/feed"
	"sharkspread/internal/gateway"
	"sharkspread/internal/observability"
	"sharkspread/internal/probe"
	"sharkspread/internal/proxy"
	"sharkspread/internal/storage"
	chstore "sharkspread/internal/storage/clickhouse"
	"sharkspread/internal/storage/memory"
	"sharkspread/internal/storage/migrations"
	pgstore "sharkspread/internal/storage/postgres"
	"sharkspread/internal/storage/rediscache"
	"sharkspread/internal/venue"
)

func main() {
	root := &cobra.Command{
		Use:          "gateway",
		Short:        "CEX/DEX spread tracking gateway",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE:  runServe,
	}

	serveCmd.Flags().String("http-addr", ":8080", "API listen address")
	serveCmd.Flags().String("metrics-addr", ":9090", "metrics listen address, empty disables")
	serveCmd.Flags().Duration("poll-interval", 10*time.Second, "venue sampling interval")
	serveCmd.Flags().Duration("history-keep", 7*24*time.Hour, "history retention horizon")
	serveCmd.Flags().String("postgres-dsn", "", "Postgres DSN, empty uses in-memory history")
	serveCmd.Flags().String("clickhouse-dsn", "", "ClickHouse DSN, empty disables the archive")
	serveCmd.Flags().String("redis-addr", "", "Redis address, empty uses in-memory caches")
	serveCmd.Flags().StringSlice("kafka-brokers", nil, "Kafka brokers, empty disables publishing")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Venue clients.
	mexc := venue.NewMEXC(cfg.MEXCBaseURL, cfg.MEXCAPIKey,
		venue.WithRateLimit(cfg.VenueRPS),
		venue.WithLogger(logger))
	jupiter := venue.NewJupiter(cfg.JupiterBaseURL,
		venue.WithRateLimit(cfg.VenueRPS),
		venue.WithLogger(logger))

	var reserves *venue.PancakeReserves
	if cfg.BSCRPCURL != "" {
		reserves, err = venue.NewPancakeReserves(cfg.BSCRPCURL)
		if err != nil {
			logger.Warn("BSC RPC unavailable, using DexScreener only", zap.Error(err))
		}
	}
	pancake := venue.NewPancake(cfg.DexScreenerURL, reserves,
		venue.WithRateLimit(cfg.VenueRPS),
		venue.WithLogger(logger))

	// Storage. Empty DSNs fall back to memory so the gateway runs
	// standalone.
	var history storage.SpreadHistoryStore = memory.NewSpreadHistoryStore()
	var tokenStore storage.TokenStore
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.PoolOptions{})
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		history = pgstore.NewSpreadHistoryStore(pool)
		tokenStore = pgstore.NewTokenStore(pool)
		logger.Info("history store: postgres")
	}

	var archive storage.ArchiveStore
	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		archive = chstore.NewSpreadArchiveStore(conn)
		logger.Info("archive store: clickhouse")
	}

	var latest storage.LatestCache = memory.NewLatestCache(cfg.CacheTTL)
	var window storage.HistoryCache = memory.NewHistoryCache(1000)
	if cfg.RedisAddr != "" {
		client := rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword, 0)
		defer client.Close()
		latest = rediscache.NewLatestCache(client, cfg.CacheTTL)
		window = rediscache.NewHistoryCache(client, 1000, cfg.CacheTTL)
		logger.Info("caches: redis", zap.String("addr", cfg.RedisAddr))
	}

	catalog := discovery.NewCatalog(discovery.CatalogOptions{
		Tokens: cfg.DomainTokens(),
		Lister: mexc,
		Store:  tokenStore,
		Logger: logger,
	})
	if err := catalog.Load(ctx); err != nil {
		logger.Warn("token catalog load failed, using configured set", zap.Error(err))
	}

	source := adapter.NewDirect(adapter.DirectOptions{
		Catalog: catalog,
		Clients: []adapter.VenueClient{mexc, jupiter, pancake},
		History: history,
		Window:  window,
		Logger:  logger,
	})

	hub := feed.NewHub(logger)
	defer hub.Close()

	var publisher collector.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := collector.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		logger.Info("kafka publishing enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	runner := collector.NewRunner(collector.RunnerOptions{
		Source:    source,
		History:   history,
		Archive:   archive,
		Latest:    latest,
		Window:    window,
		Feed:      hub,
		Publisher: publisher,
		Interval:  cfg.PollInterval,
		Retention: cfg.HistoryKeep,
		Logger:    logger,
	})
	go func() {
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("collector exited", zap.Error(err))
			stop()
		}
	}()

	if cfg.MEXCWSURL != "" {
		prober := probe.New(probe.Options{
			Endpoint:         cfg.MEXCWSURL,
			Interval:         cfg.ProbeInterval,
			HandshakeTimeout: cfg.ProbeHandshake,
			Listener: func(_, state domain.ConnState) {
				up := 0.0
				if state == domain.ConnConnected {
					up = 1
				}
				observability.VenueUp.WithLabelValues(domain.VenueMEXC.String()).Set(up)
			},
			Logger: logger,
		})
		go prober.Run(ctx)
	}

	observability.Serve(ctx, cfg.MetricsAddr, nil, logger)

	server := gateway.NewServer(gateway.ServerOptions{
		Addr:   cfg.HTTPAddr,
		Source: source,
		Latest: latest,
		Hub:    hub,
		Proxies: []*proxy.Handler{
			proxy.New(proxy.Options{
				Venue:    domain.VenueMEXC,
				Prefix:   "/api/mexc/",
				FreeBase: cfg.MEXCBaseURL,
				KeyBase:  cfg.MEXCKeyedBaseURL,
				Logger:   logger,
			}),
			proxy.New(proxy.Options{
				Venue:    domain.VenueJupiter,
				Prefix:   "/api/jupiter/",
				FreeBase: cfg.JupiterBaseURL,
				Logger:   logger,
			}),
			proxy.New(proxy.Options{
				Venue:    domain.VenuePancake,
				Prefix:   "/api/pancake/",
				FreeBase: cfg.DexScreenerURL,
				Logger:   logger,
			}),
		},
		ProxyRPS:    cfg.ProxyRPS,
		ProxyBurst:  cfg.ProxyBurst,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})
	return server.Run(ctx)
}
