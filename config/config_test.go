// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/slack"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "watchlist": ["btc", "eth", "BTC", " sol "],
  "cooldown": "2h",
  "min_level": "warning",
  "history_retention": "1w",
  "rate_limits": {
    "default": {"min_interval": "1s"},
    "taapi": {"min_interval": "15s", "penalty_max": "5m"}
  },
  "scanners": {
    "indicators": {"enabled": true, "intervals": ["1h", "4h"], "rsi_overbought": 75},
    "tickers": {"enabled": true, "schedule": "*/2 * * * *", "change_percent": "7.5"},
    "prices": {"enabled": false, "ids": {"BTC": "bitcoin"}}
  }
}`

func TestLoad(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(fpath, []byte(sampleConfig), 0o600))

	c, err := Load(fpath)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, c.Watchlist)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}, c.Pairs())
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, c.ExchangeSymbols())
	assert.Equal(t, 2*time.Hour, c.Cooldown.Duration())
	assert.Equal(t, 7*24*time.Hour, c.HistoryRetention.Duration())
	assert.Equal(t, alert.Warning, c.Level())

	require.NotNil(t, c.Scanners.Indicators)
	assert.Equal(t, "@every 15m", c.Scanners.Indicators.Schedule)
	assert.Equal(t, []string{"1h", "4h"}, c.Scanners.Indicators.Intervals)
	assert.Equal(t, "*/2 * * * *", c.Scanners.Tickers.Schedule)
	assert.True(t, decimal.RequireFromString("7.5").Equal(c.Scanners.Tickers.ChangePercent))
	assert.False(t, c.Scanners.Prices.Enabled)
	assert.Nil(t, c.Scanners.News)

	defaults, overrides := c.LimiterOptions()
	require.NotNil(t, defaults)
	assert.Equal(t, time.Second, defaults.MinInterval)
	assert.Equal(t, 15*time.Second, overrides["taapi"].MinInterval)
	assert.Equal(t, 5*time.Minute, overrides["taapi"].PenaltyMax)
}

func TestLoadMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH"}, c.Watchlist)
	assert.Equal(t, "USDT", c.Quote)
	assert.Equal(t, alert.Info, c.Level())
}

func TestLoadInvalid(t *testing.T) {
	for _, data := range []string{
		`{"min_level": "loud"}`,
		`{"cooldown": "soon"}`,
		`{"watchlist": ["BTC/USDT"]}`,
		`{"rate_limits": {"x": {"penalty_min": "1m", "penalty_max": "1s"}}}`,
	} {
		fpath := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(fpath, []byte(data), 0o600))
		_, err := Load(fpath)
		assert.Error(t, err, data)
	}
}

func TestRetentionShorterThanCooldown(t *testing.T) {
	c := Default()
	c.Cooldown = Duration(48 * time.Hour)
	c.HistoryRetention = Duration(24 * time.Hour)
	assert.ErrorIs(t, c.Check(), os.ErrInvalid)

	c.HistoryRetention = c.Cooldown
	assert.NoError(t, c.Check())

	fpath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(fpath, []byte(`{"cooldown": "2d", "history_retention": "1d"}`), 0o600))
	_, err := Load(fpath)
	assert.ErrorIs(t, err, os.ErrInvalid)
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1d12h"`), &d))
	assert.Equal(t, 36*time.Hour, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`90`), &d))
	assert.Equal(t, 90*time.Second, d.Duration())

	data, err := json.Marshal(Duration(36 * time.Hour))
	require.NoError(t, err)
	var back Duration
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 36*time.Hour, back.Duration())
}

func TestSecretsApplyEnv(t *testing.T) {
	s := &Secrets{
		TAAPI: "file-secret",
		Slack: &slack.Secrets{WebhookURL: "https://hooks.slack.test/file"},
	}
	env := map[string]string{
		"CRYPTOALERTS_TAAPI_SECRET":       "env-secret",
		"CRYPTOALERTS_DISCORD_WEBHOOK":    "https://discord.test/api/webhooks/1/x",
		"CRYPTOALERTS_SLACK_CHANNEL":      "#alerts",
		"CRYPTOALERTS_BINANCE_API_KEY":    "key",
		"CRYPTOALERTS_BINANCE_SECRET_KEY": "",
	}
	s.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "env-secret", s.TAAPI)
	require.NotNil(t, s.Discord)
	assert.Equal(t, "https://discord.test/api/webhooks/1/x", s.Discord.WebhookURL)
	assert.Equal(t, "https://hooks.slack.test/file", s.Slack.WebhookURL)
	assert.Equal(t, "#alerts", s.Slack.Channel)
	require.NotNil(t, s.Binance)
	assert.Equal(t, "key", s.Binance.APIKey)
	assert.Nil(t, s.Pushover)
	assert.Nil(t, s.Telegram)
}

func TestSecretsSave(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "sub", "secrets.json")
	s := &Secrets{CryptoPanic: "token", Discord: &DiscordSecrets{WebhookURL: "https://discord.test/x"}}
	require.NoError(t, s.Save(fpath))

	fi, err := os.Stat(fpath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	back, err := SecretsFromFile(fpath)
	require.NoError(t, err)
	assert.Equal(t, s, back)
	assert.NoError(t, back.Check())
}

func TestExample(t *testing.T) {
	data, err := json.Marshal(Example())
	require.NoError(t, err)
	fpath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(fpath, data, 0o600))

	c, err := Load(fpath)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, c.Watchlist)
	assert.True(t, c.Scanners.Tickers.Enabled)
	assert.True(t, c.Scanners.Prices.Enabled)
	assert.False(t, c.Scanners.News.Enabled)
	assert.Equal(t, DefaultSchedules["news"], c.Scanners.News.Schedule)
	assert.Equal(t, "bitcoin", c.Scanners.Prices.IDs["BTC"])
}
