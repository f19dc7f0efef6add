// Package bootstrap wires configuration into the services shared by the
// ledgerbot service and the ledgerctl CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"txledger/internal/application"
	"txledger/internal/config"
	"txledger/internal/infrastructure/coingecko"
	"txledger/internal/infrastructure/memory"
	"txledger/internal/infrastructure/mysql"
	"txledger/internal/infrastructure/pricecache"
	"txledger/internal/infrastructure/sheets"
	"txledger/internal/infrastructure/sqlite"
	"txledger/internal/infrastructure/tronscan"
	"txledger/internal/interfaces/render"
)

type Services struct {
	Config   config.Config
	Fetcher  *tronscan.Client
	Prices   *coingecko.Client
	Oracle   *application.PriceOracle
	Store    *application.LedgerStore
	Pipeline *application.Pipeline
	Renderer *render.Renderer

	closers []func() error
}

// NewBackend returns the ledger backend selected by LEDGER_BACKEND.
func NewBackend(cfg config.Config) (application.LedgerBackend, error) {
	switch cfg.LedgerBackend {
	case config.LedgerBackendSheets:
		return sheets.NewLedger(sheets.Config{
			SpreadsheetID:   cfg.SheetID,
			CredentialsFile: cfg.SheetsCredFile,
		})
	case config.LedgerBackendMySQL:
		return mysql.NewRepository(cfg.LedgerDSN)
	case config.LedgerBackendSQLite:
		return sqlite.NewRepository(cfg.LedgerDSN)
	case config.LedgerBackendMemory:
		return memory.NewLedger(""), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

// Build connects every collaborator. A ledger that fails to connect is not
// an error: the pipeline runs with logging disabled.
func Build(ctx context.Context, cfg config.Config, observer application.PipelineObserver) (*Services, error) {
	svc := &Services{Config: cfg}

	fetcher, err := tronscan.NewClient(tronscan.Config{BaseURL: cfg.TronscanURL, Timeout: cfg.FetchTimeout})
	if err != nil {
		return nil, fmt.Errorf("tronscan client: %w", err)
	}
	svc.Fetcher = fetcher

	prices, err := coingecko.NewClient(coingecko.Config{BaseURL: cfg.PriceURL, CoinID: cfg.PriceCoinID, Timeout: cfg.PriceTimeout})
	if err != nil {
		return nil, fmt.Errorf("price client: %w", err)
	}
	svc.Prices = prices

	var source application.PriceSource = prices
	cached, err := pricecache.NewCachedSource(prices, pricecache.Config{Addr: cfg.RedisAddr, TTL: cfg.PriceCacheTTL, Key: cfg.PriceCoinID})
	if err != nil {
		slog.Warn("redis price cache disabled", "err", err)
	} else {
		source = cached
		svc.closers = append(svc.closers, cached.Close)
	}
	svc.Oracle = application.NewPriceOracle(source, cfg.PriceFallback, cfg.PriceTimeout)

	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	store, err := application.NewLedgerStore(ctx, backend, application.LedgerStoreConfig{
		Worksheet: cfg.Worksheet,
		Timeout:   cfg.StoreTimeout,
		StoreURL:  cfg.SheetURL(),
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	svc.Store = store
	svc.closers = append(svc.closers, store.Close)

	parser := application.NewCommandParser(cfg.BotUserID, nil)
	pipeline, err := application.NewPipeline(parser, fetcher, svc.Oracle, application.NewNormalizer(cfg.NativeSymbol), store, observer)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.Pipeline = pipeline
	svc.Renderer = render.NewRenderer(render.Config{
		BotName:      cfg.BotName,
		NativeSymbol: cfg.NativeSymbol,
		StoreURL:     cfg.SheetURL(),
	})

	slog.Info("services ready",
		"backend", cfg.LedgerBackend,
		"ledger_connected", store.IsConnected(),
		"ledger", store.Title(),
	)
	return svc, nil
}

func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
