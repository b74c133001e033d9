// Copyright (c) 2025 BVK Chaitanya

// Package goplus implements a client for the GoPlus token security API.
package goplus

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/apiclient"
	"github.com/bvk/cryptoalerts/cache"
	"github.com/bvk/cryptoalerts/metrics"
	"github.com/bvk/cryptoalerts/ratelimit"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.gopluslabs.io/api/v1"

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration

	// HighTax is the buy or sell tax fraction above which a token is
	// reported as risky. Defaults to 0.1 (ten percent).
	HighTax decimal.Decimal

	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
}

func (v *Options) setDefaults() {
	if len(v.BaseURL) == 0 {
		v.BaseURL = DefaultBaseURL
	}
	if v.Timeout == 0 {
		v.Timeout = 30 * time.Second
	}
	if v.CacheTTL == 0 {
		v.CacheTTL = time.Hour
	}
	if v.HighTax.IsZero() {
		v.HighTax = decimal.NewFromFloat(0.1)
	}
}

// TokenSecurity holds the security flags reported for a token contract. The
// API reports all values as strings; flags are "1" when raised.
type TokenSecurity struct {
	ChainID string `json:"-"`
	Address string `json:"-"`

	TokenName   string `json:"token_name"`
	TokenSymbol string `json:"token_symbol"`
	HolderCount string `json:"holder_count"`

	BuyTax  string `json:"buy_tax"`
	SellTax string `json:"sell_tax"`

	IsHoneypot           string `json:"is_honeypot"`
	IsOpenSource         string `json:"is_open_source"`
	IsProxy              string `json:"is_proxy"`
	IsMintable           string `json:"is_mintable"`
	HiddenOwner          string `json:"hidden_owner"`
	CanTakeBackOwnership string `json:"can_take_back_ownership"`
	OwnerChangeBalance   string `json:"owner_change_balance"`
	TransferPausable     string `json:"transfer_pausable"`
	IsBlacklisted        string `json:"is_blacklisted"`
	CannotSellAll        string `json:"cannot_sell_all"`
	SlippageModifiable   string `json:"slippage_modifiable"`
	IsInDex              string `json:"is_in_dex"`

	highTax decimal.Decimal
}

func flag(v string) bool {
	return v == "1"
}

func parseTax(v string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (t *TokenSecurity) BuyTaxValue() decimal.Decimal {
	return parseTax(t.BuyTax)
}

func (t *TokenSecurity) SellTaxValue() decimal.Decimal {
	return parseTax(t.SellTax)
}

// Risks returns human readable descriptions of all raised risk flags.
func (t *TokenSecurity) Risks() []string {
	var risks []string
	if flag(t.IsHoneypot) {
		risks = append(risks, "honeypot")
	}
	if flag(t.CannotSellAll) {
		risks = append(risks, "cannot sell all tokens")
	}
	if t.IsOpenSource == "0" {
		risks = append(risks, "contract source is not verified")
	}
	if flag(t.IsMintable) {
		risks = append(risks, "mintable")
	}
	if flag(t.HiddenOwner) {
		risks = append(risks, "hidden owner")
	}
	if flag(t.CanTakeBackOwnership) {
		risks = append(risks, "ownership can be taken back")
	}
	if flag(t.OwnerChangeBalance) {
		risks = append(risks, "owner can change balances")
	}
	if flag(t.TransferPausable) {
		risks = append(risks, "transfers can be paused")
	}
	if flag(t.IsBlacklisted) {
		risks = append(risks, "has blacklist")
	}
	if flag(t.SlippageModifiable) {
		risks = append(risks, "tax can be modified")
	}
	if tax := t.BuyTaxValue(); tax.GreaterThan(t.highTax) {
		risks = append(risks, fmt.Sprintf("buy tax %s%%", tax.Shift(2).StringFixed(1)))
	}
	if tax := t.SellTaxValue(); tax.GreaterThan(t.highTax) {
		risks = append(risks, fmt.Sprintf("sell tax %s%%", tax.Shift(2).StringFixed(1)))
	}
	return risks
}

// Critical returns true if the token cannot be sold.
func (t *TokenSecurity) Critical() bool {
	return flag(t.IsHoneypot) || flag(t.CannotSellAll)
}

type Client struct {
	opts Options

	api *apiclient.Client

	cache *cache.Cache[string, *TokenSecurity]
}

func New(opts *Options) (*Client, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()

	api, err := apiclient.New("goplus", &apiclient.Options{
		BaseURL: opts.BaseURL,
		Timeout: opts.Timeout,
		Limiter: opts.Limiter,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	c := &Client{
		opts:  *opts,
		api:   api,
		cache: cache.New[string, *TokenSecurity](&cache.Options{Name: "goplus", Metrics: opts.Metrics}),
	}
	return c, nil
}

// TokenSecurity returns security flags for a token contract on a chain, eg:
// chain "1" for Ethereum or "56" for BNB Chain.
func (c *Client) TokenSecurity(ctx context.Context, chainID, address string) (*TokenSecurity, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if len(chainID) == 0 || len(address) == 0 {
		return nil, fmt.Errorf("chain id and contract address are required: %w", os.ErrInvalid)
	}

	fetch := func(ctx context.Context) (*TokenSecurity, error) {
		type Response struct {
			Code    int                       `json:"code"`
			Message string                    `json:"message"`
			Result  map[string]*TokenSecurity `json:"result"`
		}
		query := url.Values{"contract_addresses": []string{address}}
		resp, err := apiclient.GetJSON[Response](ctx, c.api, "token_security/"+url.PathEscape(chainID), query)
		if err != nil {
			return nil, fmt.Errorf("could not fetch token security for %s: %w", address, err)
		}
		if resp.Code != 1 {
			return nil, fmt.Errorf("goplus returned code %d (%s) for %s", resp.Code, resp.Message, address)
		}
		sec, ok := resp.Result[address]
		if !ok || sec == nil {
			return nil, fmt.Errorf("goplus has no data for %s on chain %s: %w", address, chainID, os.ErrNotExist)
		}
		sec.ChainID, sec.Address, sec.highTax = chainID, address, c.opts.HighTax
		return sec, nil
	}
	return c.cache.GetOrFetch(ctx, chainID+":"+address, c.opts.CacheTTL, fetch)
}
