// Copyright (c) 2025 BVK Chaitanya

// Package config defines the config.json and secrets.json files read by the
// daemon and the one-shot commands.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type ScannerConfig struct {
	Enabled bool `json:"enabled"`

	// Schedule is a cron expression or a descriptor like "@every 15m".
	Schedule string `json:"schedule,omitempty"`
}

type IndicatorsConfig struct {
	ScannerConfig

	Intervals     []string `json:"intervals,omitempty"`
	RSIOverbought float64  `json:"rsi_overbought,omitempty"`
	RSIOversold   float64  `json:"rsi_oversold,omitempty"`
	DisableMACD   bool     `json:"disable_macd,omitempty"`
	DisableBBands bool     `json:"disable_bbands,omitempty"`
}

type SocialConfig struct {
	ScannerConfig

	MinGalaxyScore float64 `json:"min_galaxy_score,omitempty"`
	MaxAltRank     int     `json:"max_alt_rank,omitempty"`
	MinScoreChange float64 `json:"min_score_change,omitempty"`
}

type TickersConfig struct {
	ScannerConfig

	ChangePercent         decimal.Decimal `json:"change_percent"`
	CriticalChangePercent decimal.Decimal `json:"critical_change_percent"`
	MinQuoteVolume        decimal.Decimal `json:"min_quote_volume"`
}

type TokenConfig struct {
	ChainID string `json:"chain_id"`
	Address string `json:"address"`
	Label   string `json:"label,omitempty"`
}

type SecurityConfig struct {
	ScannerConfig

	Tokens []*TokenConfig `json:"tokens"`
}

type NewsConfig struct {
	ScannerConfig

	Filter         string `json:"filter,omitempty"`
	Kind           string `json:"kind,omitempty"`
	MaxPosts       int    `json:"max_posts,omitempty"`
	ImportantVotes int    `json:"important_votes,omitempty"`
}

type PortfolioConfig struct {
	ScannerConfig

	ProfitPercent      decimal.Decimal `json:"profit_percent"`
	LossPercent        decimal.Decimal `json:"loss_percent"`
	LiquidationPercent decimal.Decimal `json:"liquidation_percent"`
	Summary            bool            `json:"summary,omitempty"`
}

type PricesConfig struct {
	ScannerConfig

	// IDs maps watchlist symbols to CoinGecko coin ids, eg: "BTC": "bitcoin".
	IDs         map[string]string `json:"ids"`
	Currency    string            `json:"currency,omitempty"`
	MovePercent float64           `json:"move_percent,omitempty"`
	Trending    bool              `json:"trending,omitempty"`
}

type ScannersConfig struct {
	Indicators *IndicatorsConfig `json:"indicators,omitempty"`
	Social     *SocialConfig     `json:"social,omitempty"`
	Tickers    *TickersConfig    `json:"tickers,omitempty"`
	Security   *SecurityConfig   `json:"security,omitempty"`
	News       *NewsConfig       `json:"news,omitempty"`
	Portfolio  *PortfolioConfig  `json:"portfolio,omitempty"`
	Prices     *PricesConfig     `json:"prices,omitempty"`
}

type LimiterConfig struct {
	MinInterval Duration `json:"min_interval,omitempty"`
	Burst       int      `json:"burst,omitempty"`
	PenaltyMin  Duration `json:"penalty_min,omitempty"`
	PenaltyMax  Duration `json:"penalty_max,omitempty"`
}

func (v *LimiterConfig) Options() *ratelimit.Options {
	return &ratelimit.Options{
		MinInterval: v.MinInterval.Duration(),
		Burst:       v.Burst,
		PenaltyMin:  v.PenaltyMin.Duration(),
		PenaltyMax:  v.PenaltyMax.Duration(),
	}
}

type Config struct {
	// Watchlist holds base asset symbols, eg: "BTC", "ETH".
	Watchlist []string `json:"watchlist"`

	// Quote is the quote currency for exchange pairs. Defaults to "USDT".
	Quote string `json:"quote,omitempty"`

	// Cooldown is the minimum time between two notifications for the same
	// alert condition.
	Cooldown Duration `json:"cooldown,omitempty"`

	// MinLevel is one of "info", "warning" or "critical".
	MinLevel string `json:"min_level,omitempty"`

	// HistoryRetention bounds how long delivered alerts are remembered.
	HistoryRetention Duration `json:"history_retention,omitempty"`

	// IndicatorCacheTTL overrides the cache lifetime for indicator values,
	// which otherwise follows the candle interval.
	IndicatorCacheTTL Duration `json:"indicator_cache_ttl,omitempty"`

	// Username is the display name for webhook messages.
	Username string `json:"username,omitempty"`

	// RateLimits holds limiter settings by service name. The "default" entry
	// applies to services without an entry.
	RateLimits map[string]*LimiterConfig `json:"rate_limits,omitempty"`

	Scanners ScannersConfig `json:"scanners"`
}

// Default schedules by scanner.
var DefaultSchedules = map[string]string{
	"indicators": "@every 15m",
	"social":     "@every 30m",
	"tickers":    "@every 5m",
	"security":   "@every 6h",
	"news":       "@every 10m",
	"portfolio":  "@every 5m",
	"prices":     "@every 5m",
}

func Default() *Config {
	c := &Config{
		Watchlist: []string{"BTC", "ETH"},
	}
	c.setDefaults()
	return c
}

func (v *Config) setDefaults() {
	if len(v.Quote) == 0 {
		v.Quote = "USDT"
	}
	if v.Cooldown == 0 {
		v.Cooldown = Duration(4 * time.Hour)
	}
	if len(v.MinLevel) == 0 {
		v.MinLevel = alert.Info.String()
	}
	if v.HistoryRetention == 0 {
		v.HistoryRetention = Duration(30 * 24 * time.Hour)
	}
	if len(v.Username) == 0 {
		v.Username = "cryptoalerts"
	}
	v.Watchlist = lo.Uniq(lo.Map(lo.Compact(v.Watchlist), func(s string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(s))
	}))
	v.Quote = strings.ToUpper(v.Quote)

	setSchedule := func(name string, sc *ScannerConfig) {
		if len(sc.Schedule) == 0 {
			sc.Schedule = DefaultSchedules[name]
		}
	}
	s := &v.Scanners
	if s.Indicators != nil {
		setSchedule("indicators", &s.Indicators.ScannerConfig)
	}
	if s.Social != nil {
		setSchedule("social", &s.Social.ScannerConfig)
	}
	if s.Tickers != nil {
		setSchedule("tickers", &s.Tickers.ScannerConfig)
	}
	if s.Security != nil {
		setSchedule("security", &s.Security.ScannerConfig)
	}
	if s.News != nil {
		setSchedule("news", &s.News.ScannerConfig)
	}
	if s.Portfolio != nil {
		setSchedule("portfolio", &s.Portfolio.ScannerConfig)
	}
	if s.Prices != nil {
		setSchedule("prices", &s.Prices.ScannerConfig)
	}
}

func (v *Config) Check() error {
	if _, err := alert.ParseLevel(v.MinLevel); err != nil {
		return err
	}
	if v.Cooldown < 0 || v.HistoryRetention < 0 || v.IndicatorCacheTTL < 0 {
		return fmt.Errorf("durations cannot be negative: %w", os.ErrInvalid)
	}
	// Pruning would otherwise drop sent records still inside the cooldown.
	if v.HistoryRetention > 0 && v.HistoryRetention < v.Cooldown {
		return fmt.Errorf("history retention %s cannot be shorter than the cooldown %s: %w", v.HistoryRetention, v.Cooldown, os.ErrInvalid)
	}
	if slices.ContainsFunc(v.Watchlist, func(s string) bool { return strings.ContainsAny(s, "/ ") }) {
		return fmt.Errorf("watchlist must hold base asset symbols only: %w", os.ErrInvalid)
	}
	for name, l := range v.RateLimits {
		if l == nil || l.MinInterval < 0 || l.Burst < 0 || l.PenaltyMin < 0 || l.PenaltyMax < 0 {
			return fmt.Errorf("invalid rate limit for %q: %w", name, os.ErrInvalid)
		}
		if l.PenaltyMax != 0 && l.PenaltyMax < l.PenaltyMin {
			return fmt.Errorf("rate limit penalty range for %q is invalid: %w", name, os.ErrInvalid)
		}
	}
	return nil
}

// Load reads the config file. Returns the default config if the file
// doesn't exist.
func Load(fpath string) (*Config, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	c := new(Config)
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("could not parse config file %q: %w", fpath, err)
	}
	c.setDefaults()
	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", fpath, err)
	}
	return c, nil
}

// Level returns the minimum alert level.
func (v *Config) Level() alert.Level {
	l, _ := alert.ParseLevel(v.MinLevel)
	return l
}

// Pairs returns the watchlist as BASE/QUOTE pairs.
func (v *Config) Pairs() []string {
	return lo.Map(v.Watchlist, func(s string, _ int) string { return s + "/" + v.Quote })
}

// ExchangeSymbols returns the watchlist as exchange symbols, eg: BTCUSDT.
func (v *Config) ExchangeSymbols() []string {
	return lo.Map(v.Watchlist, func(s string, _ int) string { return s + v.Quote })
}

// LimiterOptions returns the default limiter options and the per service
// overrides.
func (v *Config) LimiterOptions() (*ratelimit.Options, map[string]*ratelimit.Options) {
	var defaults *ratelimit.Options
	overrides := make(map[string]*ratelimit.Options)
	for name, l := range v.RateLimits {
		if name == "default" {
			defaults = l.Options()
			continue
		}
		overrides[name] = l.Options()
	}
	return defaults, overrides
}
