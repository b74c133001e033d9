// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"github.com/shopspring/decimal"
)

// Example returns a config with every scanner. Scanners that don't need api
// keys are enabled; the others are listed disabled so that users only need to
// flip the flag after adding the keys.
func Example() *Config {
	c := &Config{
		Watchlist: []string{"BTC", "ETH", "SOL"},
		Scanners: ScannersConfig{
			Indicators: &IndicatorsConfig{
				Intervals:     []string{"1h", "4h"},
				RSIOverbought: 70,
				RSIOversold:   30,
			},
			Social: &SocialConfig{
				MinGalaxyScore: 70,
			},
			Tickers: &TickersConfig{
				ScannerConfig:         ScannerConfig{Enabled: true},
				ChangePercent:         decimal.NewFromInt(5),
				CriticalChangePercent: decimal.NewFromInt(10),
			},
			Security: &SecurityConfig{
				Tokens: []*TokenConfig{
					{ChainID: "1", Address: "0x6982508145454ce325ddbe47a25d4ec3d2311933", Label: "PEPE"},
				},
			},
			News: &NewsConfig{
				Filter: "important",
			},
			Portfolio: &PortfolioConfig{
				ProfitPercent:      decimal.NewFromInt(20),
				LossPercent:        decimal.NewFromInt(10),
				LiquidationPercent: decimal.NewFromInt(15),
			},
			Prices: &PricesConfig{
				ScannerConfig: ScannerConfig{Enabled: true},
				IDs: map[string]string{
					"BTC": "bitcoin",
					"ETH": "ethereum",
					"SOL": "solana",
				},
				Currency:    "usd",
				MovePercent: 5,
				Trending:    true,
			},
		},
	}
	c.setDefaults()
	return c
}
