// Copyright (c) 2025 BVK Chaitanya

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bvk/cryptoalerts/pushover"
	"github.com/bvk/cryptoalerts/slack"
	"github.com/bvk/cryptoalerts/telegram"
)

// EnvPrefix is the prefix for environment variables that override secrets.
const EnvPrefix = "CRYPTOALERTS_"

type BinanceKeys struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
}

type DiscordSecrets struct {
	WebhookURL string `json:"webhook_url"`
}

// Secrets holds the api keys and webhook urls. Every field is optional; a
// scanner or notifier is disabled when it's secrets are missing.
type Secrets struct {
	TAAPI       string `json:"taapi_secret,omitempty"`
	LunarCrush  string `json:"lunarcrush_key,omitempty"`
	CoinGecko   string `json:"coingecko_key,omitempty"`
	CryptoPanic string `json:"cryptopanic_token,omitempty"`

	Binance *BinanceKeys `json:"binance,omitempty"`

	Discord  *DiscordSecrets   `json:"discord,omitempty"`
	Slack    *slack.Secrets    `json:"slack,omitempty"`
	Pushover *pushover.Keys    `json:"pushover,omitempty"`
	Telegram *telegram.Secrets `json:"telegram,omitempty"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("could not parse secrets file %q: %w", fpath, err)
	}
	return s, nil
}

// Save writes the secrets to a file readable only by the current user.
func (v *Secrets) Save(fpath string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fpath), 0o700); err != nil {
		return err
	}
	tmp := fpath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, fpath)
}

func (v *Secrets) Check() error {
	if v.Discord != nil && len(v.Discord.WebhookURL) == 0 {
		return fmt.Errorf("discord webhook url cannot be empty: %w", os.ErrInvalid)
	}
	if v.Slack != nil {
		if err := v.Slack.Check(); err != nil {
			return err
		}
	}
	if v.Pushover != nil {
		if err := v.Pushover.Check(); err != nil {
			return err
		}
	}
	if v.Telegram != nil {
		if err := v.Telegram.Check(); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides secrets with the CRYPTOALERTS_* variables found through
// the lookup function, which is usually os.LookupEnv.
func (v *Secrets) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(name string, dst *string) {
		if s, ok := lookup(EnvPrefix + name); ok && len(s) > 0 {
			*dst = s
		}
	}

	get("TAAPI_SECRET", &v.TAAPI)
	get("LUNARCRUSH_KEY", &v.LunarCrush)
	get("COINGECKO_KEY", &v.CoinGecko)
	get("CRYPTOPANIC_TOKEN", &v.CryptoPanic)

	binance := new(BinanceKeys)
	if v.Binance != nil {
		*binance = *v.Binance
	}
	get("BINANCE_API_KEY", &binance.APIKey)
	get("BINANCE_SECRET_KEY", &binance.SecretKey)
	if len(binance.APIKey) > 0 || len(binance.SecretKey) > 0 {
		v.Binance = binance
	}

	discord := new(DiscordSecrets)
	if v.Discord != nil {
		*discord = *v.Discord
	}
	get("DISCORD_WEBHOOK", &discord.WebhookURL)
	if len(discord.WebhookURL) > 0 {
		v.Discord = discord
	}

	slk := new(slack.Secrets)
	if v.Slack != nil {
		*slk = *v.Slack
	}
	get("SLACK_WEBHOOK", &slk.WebhookURL)
	get("SLACK_BOT_TOKEN", &slk.BotToken)
	get("SLACK_CHANNEL", &slk.Channel)
	if len(slk.WebhookURL) > 0 || len(slk.BotToken) > 0 {
		v.Slack = slk
	}

	po := new(pushover.Keys)
	if v.Pushover != nil {
		*po = *v.Pushover
	}
	get("PUSHOVER_APP_KEY", &po.ApplicationKey)
	get("PUSHOVER_USER_KEY", &po.UserKey)
	if len(po.ApplicationKey) > 0 || len(po.UserKey) > 0 {
		v.Pushover = po
	}

	if v.Telegram != nil {
		get("TELEGRAM_TOKEN", &v.Telegram.BotToken)
	} else if s, ok := lookup(EnvPrefix + "TELEGRAM_TOKEN"); ok && len(s) > 0 {
		tg := &telegram.Secrets{BotToken: s}
		get("TELEGRAM_OWNER", &tg.OwnerID)
		v.Telegram = tg
	}
}
