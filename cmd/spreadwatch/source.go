package main

import (
	"fmt"

	"go.uber.org/zap"

	"sharkspread/internal/adapter"
	"sharkspread/internal/config"
	"sharkspread/internal/discovery"
	"sharkspread/internal/venue"
)

// buildSource assembles the transport the configured mode asks for.
// The cleanup func releases whatever the transport opened.
func buildSource(cfg *config.Config, logger *zap.Logger) (adapter.Source, func(), error) {
	switch cfg.Mode {
	case config.ModeDirect:
		src, err := buildDirect(cfg, logger)
		return src, func() {}, err

	case config.ModeBackend:
		return adapter.NewBackend(adapter.BackendOptions{
			BaseURL: cfg.BackendURL,
			Logger:  logger,
		}), func() {}, nil

	case config.ModeHybrid, config.ModeAuto:
		backend := adapter.NewBackend(adapter.BackendOptions{
			BaseURL: cfg.BackendURL,
			Logger:  logger,
		})
		direct, err := buildDirect(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return adapter.NewHybrid(adapter.HybridOptions{
			Primary:  backend,
			Fallback: direct,
			Prober:   backend,
			Logger:   logger,
		}), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown mode %q", cfg.Mode)
}

func buildDirect(cfg *config.Config, logger *zap.Logger) (*adapter.Direct, error) {
	mexc := venue.NewMEXC(cfg.MEXCBaseURL, cfg.MEXCAPIKey,
		venue.WithRateLimit(cfg.VenueRPS),
		venue.WithLogger(logger))
	jupiter := venue.NewJupiter(cfg.JupiterBaseURL,
		venue.WithRateLimit(cfg.VenueRPS),
		venue.WithLogger(logger))

	var reserves *venue.PancakeReserves
	if cfg.BSCRPCURL != "" {
		var err error
		reserves, err = venue.NewPancakeReserves(cfg.BSCRPCURL)
		if err != nil {
			logger.Warn("BSC RPC unavailable, using DexScreener only", zap.Error(err))
		}
	}
	pancake := venue.NewPancake(cfg.DexScreenerURL, reserves,
		venue.WithRateLimit(cfg.VenueRPS),
		venue.WithLogger(logger))

	catalog := discovery.NewCatalog(discovery.CatalogOptions{
		Tokens: cfg.DomainTokens(),
		Lister: mexc,
		Logger: logger,
	})

	return adapter.NewDirect(adapter.DirectOptions{
		Catalog: catalog,
		Clients: []adapter.VenueClient{mexc, jupiter, pancake},
		Logger:  logger,
	}), nil
}
