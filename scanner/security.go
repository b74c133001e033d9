// Copyright (c) 2025 BVK Chaitanya

package scanner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bvk/cryptoalerts/alert"
	"github.com/bvk/cryptoalerts/sources/goplus"
)

// SecuritySource is implemented by goplus.Client.
type SecuritySource interface {
	TokenSecurity(ctx context.Context, chainID, address string) (*goplus.TokenSecurity, error)
}

// Token identifies a contract to audit.
type Token struct {
	ChainID string
	Address string

	// Label is used in place of the token symbol when set.
	Label string
}

func (t *Token) String() string {
	return t.ChainID + ":" + t.Address
}

type SecurityOptions struct {
	Name string

	Tokens []*Token

	Concurrency int

	Now func() time.Time
}

func (v *SecurityOptions) setDefaults() {
	if len(v.Name) == 0 {
		v.Name = "security"
	}
	if v.Concurrency == 0 {
		v.Concurrency = 1
	}
	if v.Now == nil {
		v.Now = time.Now
	}
}

func (v *SecurityOptions) Check() error {
	if len(v.Tokens) == 0 {
		return fmt.Errorf("security scanner needs at least one token: %w", os.ErrInvalid)
	}
	for _, t := range v.Tokens {
		if len(t.ChainID) == 0 || len(t.Address) == 0 {
			return fmt.Errorf("token chain id and address cannot be empty: %w", os.ErrInvalid)
		}
	}
	return nil
}

// Security raises alerts for tokens with risky contract properties.
type Security struct {
	opts SecurityOptions

	source SecuritySource
}

func NewSecurity(source SecuritySource, opts *SecurityOptions) (*Security, error) {
	if opts == nil {
		opts = new(SecurityOptions)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	return &Security{opts: *opts, source: source}, nil
}

func (s *Security) Name() string {
	return s.opts.Name
}

func (s *Security) Scan(ctx context.Context) ([]*alert.Alert, error) {
	return scanEach(ctx, s.opts.Name, s.opts.Concurrency, s.opts.Tokens, s.scanToken)
}

func (s *Security) scanToken(ctx context.Context, token *Token) ([]*alert.Alert, error) {
	ts, err := s.source.TokenSecurity(ctx, token.ChainID, token.Address)
	if err != nil {
		return nil, err
	}
	risks := ts.Risks()
	if len(risks) == 0 {
		return nil, nil
	}

	name := token.Label
	if len(name) == 0 {
		name = ts.TokenSymbol
	}
	if len(name) == 0 {
		name = token.Address
	}
	level := alert.Warning
	if ts.Critical() {
		level = alert.Critical
	}

	a := newAlert(s.opts.Name, "token-risk", token.String(), level,
		fmt.Sprintf("%s contract has %d risk flag(s)", name, len(risks)), s.opts.Now())
	a.Summary = strings.Join(risks, ", ")
	// A new risk flag must not be suppressed by the cooldown of older ones.
	a.Dedup = a.Summary
	a.AddField("Chain", token.ChainID)
	a.AddField("Address", token.Address)
	if len(ts.HolderCount) > 0 {
		a.AddField("Holders", ts.HolderCount)
	}
	return []*alert.Alert{a}, nil
}
