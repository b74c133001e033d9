// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bvk/cryptoalerts/config"
	"github.com/bvk/cryptoalerts/scanner"
	"github.com/bvk/cryptoalerts/sources/binance"
	"github.com/bvk/cryptoalerts/sources/coingecko"
	"github.com/bvk/cryptoalerts/sources/cryptopanic"
	"github.com/bvk/cryptoalerts/sources/goplus"
	"github.com/bvk/cryptoalerts/sources/lunarcrush"
	"github.com/bvk/cryptoalerts/sources/taapi"
	"github.com/samber/lo"
)

// addScanners creates the enabled scanners and adds them to the scheduler.
func (s *Server) addScanners() error {
	scanners, err := s.newScanners()
	if err != nil {
		return err
	}
	for _, v := range scanners {
		if err := s.scheduler.Add(v.scanner, v.schedule); err != nil {
			return fmt.Errorf("could not schedule scanner %q: %w", v.scanner.Name(), err)
		}
		slog.Info("scheduled scanner", "scanner", v.scanner.Name(), "schedule", v.schedule)
	}
	return nil
}

type scheduledScanner struct {
	scanner  scanner.Scanner
	schedule string
}

func enabled(sc *config.ScannerConfig) bool {
	return sc != nil && sc.Enabled
}

func missingSecret(name, secret string) error {
	return fmt.Errorf("scanner %q requires the %s secret: %w", name, secret, os.ErrInvalid)
}

func (s *Server) newScanners() ([]*scheduledScanner, error) {
	var result []*scheduledScanner
	add := func(sc scanner.Scanner, cfg *config.ScannerConfig) {
		result = append(result, &scheduledScanner{scanner: sc, schedule: cfg.Schedule})
	}

	cfg := s.cfg.Scanners
	secrets := s.secrets

	// Binance client is shared by the tickers and portfolio scanners.
	var binanceClient *binance.Client
	getBinance := func() (*binance.Client, error) {
		if binanceClient != nil {
			return binanceClient, nil
		}
		var key, secret string
		if secrets.Binance != nil {
			key, secret = secrets.Binance.APIKey, secrets.Binance.SecretKey
		}
		bopts := &binance.Options{
			SpotBaseURL:    s.opts.BaseURLs["binance"],
			FuturesBaseURL: s.opts.BaseURLs["binance-futures"],
			Limiter:        s.limiters.Get("binance"),
			Metrics:        s.metrics,
		}
		client, err := binance.New(key, secret, bopts)
		if err != nil {
			return nil, fmt.Errorf("could not create binance client: %w", err)
		}
		binanceClient = client
		return client, nil
	}

	if v := cfg.Indicators; v != nil && enabled(&v.ScannerConfig) {
		if len(secrets.TAAPI) == 0 {
			return nil, missingSecret("indicators", "taapi")
		}
		topts := &taapi.Options{
			BaseURL:  s.opts.BaseURLs["taapi"],
			CacheTTL: s.cfg.IndicatorCacheTTL.Duration(),
			Limiter:  s.limiters.Get("taapi"),
			Metrics:  s.metrics,
		}
		client, err := taapi.New(secrets.TAAPI, topts)
		if err != nil {
			return nil, fmt.Errorf("could not create taapi client: %w", err)
		}
		iopts := &scanner.IndicatorsOptions{
			Symbols:       s.cfg.Pairs(),
			Intervals:     v.Intervals,
			RSIOverbought: v.RSIOverbought,
			RSIOversold:   v.RSIOversold,
			DisableMACD:   v.DisableMACD,
			DisableBBands: v.DisableBBands,
		}
		sc, err := scanner.NewIndicators(client, s.store, iopts)
		if err != nil {
			return nil, err
		}
		add(sc, &v.ScannerConfig)
	}

	if v := cfg.Social; v != nil && enabled(&v.ScannerConfig) {
		if len(secrets.LunarCrush) == 0 {
			return nil, missingSecret("social", "lunarcrush")
		}
		lopts := &lunarcrush.Options{
			BaseURL: s.opts.BaseURLs["lunarcrush"],
			Limiter: s.limiters.Get("lunarcrush"),
			Metrics: s.metrics,
		}
		client, err := lunarcrush.New(secrets.LunarCrush, lopts)
		if err != nil {
			return nil, fmt.Errorf("could not create lunarcrush client: %w", err)
		}
		sopts := &scanner.SocialOptions{
			Symbols:        s.cfg.Watchlist,
			MinGalaxyScore: v.MinGalaxyScore,
			MaxAltRank:     v.MaxAltRank,
			MinScoreChange: v.MinScoreChange,
		}
		sc, err := scanner.NewSocial(client, sopts)
		if err != nil {
			return nil, err
		}
		add(sc, &v.ScannerConfig)
	}

	if v := cfg.Tickers; v != nil && enabled(&v.ScannerConfig) {
		client, err := getBinance()
		if err != nil {
			return nil, err
		}
		topts := &scanner.TickersOptions{
			Symbols:               s.cfg.ExchangeSymbols(),
			ChangePercent:         v.ChangePercent,
			CriticalChangePercent: v.CriticalChangePercent,
			MinQuoteVolume:        v.MinQuoteVolume,
		}
		sc, err := scanner.NewTickers(client, topts)
		if err != nil {
			return nil, err
		}
		add(sc, &v.ScannerConfig)
	}

	if v := cfg.Security; v != nil && enabled(&v.ScannerConfig) {
		gopts := &goplus.Options{
			BaseURL: s.opts.BaseURLs["goplus"],
			Limiter: s.limiters.Get("goplus"),
			Metrics: s.metrics,
		}
		client, err := goplus.New(gopts)
		if err != nil {
			return nil, fmt.Errorf("could not create goplus client: %w", err)
		}
		tokens := lo.Map(v.Tokens, func(t *config.TokenConfig, _ int) *scanner.Token {
			return &scanner.Token{ChainID: t.ChainID, Address: t.Address, Label: t.Label}
		})
		sc, err := scanner.NewSecurity(client, &scanner.SecurityOptions{Tokens: tokens})
		if err != nil {
			return nil, err
		}
		add(sc, &v.ScannerConfig)
	}

	if v := cfg.News; v != nil && enabled(&v.ScannerConfig) {
		if len(secrets.CryptoPanic) == 0 {
			return nil, missingSecret("news", "cryptopanic")
		}
		copts := &cryptopanic.Options{
			BaseURL: s.opts.BaseURLs["cryptopanic"],
			Limiter: s.limiters.Get("cryptopanic"),
			Metrics: s.metrics,
		}
		client, err := cryptopanic.New(secrets.CryptoPanic, copts)
		if err != nil {
			return nil, fmt.Errorf("could not create cryptopanic client: %w", err)
		}
		nopts := &scanner.NewsOptions{
			Currencies:     s.cfg.Watchlist,
			Filter:         v.Filter,
			Kind:           v.Kind,
			MaxPosts:       v.MaxPosts,
			ImportantVotes: v.ImportantVotes,
		}
		sc, err := scanner.NewNews(client, s.store, nopts)
		if err != nil {
			return nil, err
		}
		add(sc, &v.ScannerConfig)
	}

	if v := cfg.Portfolio; v != nil && enabled(&v.ScannerConfig) {
		if secrets.Binance == nil {
			return nil, missingSecret("portfolio", "binance")
		}
		client, err := getBinance()
		if err != nil {
			return nil, err
		}
		popts := &scanner.PortfolioOptions{
			ProfitPercent:      v.ProfitPercent,
			LossPercent:        v.LossPercent,
			LiquidationPercent: v.LiquidationPercent,
			Summary:            v.Summary,
		}
		sc, err := scanner.NewPortfolio(client, popts)
		if err != nil {
			return nil, err
		}
		add(sc, &v.ScannerConfig)
	}

	if v := cfg.Prices; v != nil && enabled(&v.ScannerConfig) {
		gopts := &coingecko.Options{
			BaseURL: s.opts.BaseURLs["coingecko"],
			Limiter: s.limiters.Get("coingecko"),
			Metrics: s.metrics,
		}
		client, err := coingecko.New(secrets.CoinGecko, gopts)
		if err != nil {
			return nil, fmt.Errorf("could not create coingecko client: %w", err)
		}
		popts := &scanner.PricesOptions{
			IDs:         priceIDs(s.cfg.Watchlist, v.IDs),
			Currency:    v.Currency,
			MovePercent: v.MovePercent,
			Trending:    v.Trending,
		}
		sc, err := scanner.NewPrices(client, s.store, popts)
		if err != nil {
			return nil, err
		}
		add(sc, &v.ScannerConfig)
	}

	return result, nil
}

// priceIDs returns the coin ids for the watchlist symbols in a stable order.
// Symbols without an id mapping are skipped.
func priceIDs(watchlist []string, ids map[string]string) []string {
	var result []string
	for _, sym := range watchlist {
		if id, ok := ids[sym]; ok && len(id) > 0 {
			result = append(result, id)
		} else {
			slog.Warn("no coingecko id for watchlist symbol (skipped)", "symbol", sym)
		}
	}
	return lo.Uniq(result)
}
