// Copyright (c) 2025 BVK Chaitanya

package alert

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	a := &Alert{
		Scanner: "indicators",
		Kind:    "rsi-overbought",
		Symbol:  "BTC/USDT",
		Level:   Warning,
		Title:   "RSI overbought",
		Summary: "RSI(14) on 1h is 78.20",
		URL:     "https://example.com/btc",
	}
	a.AddField("Interval", "1h").AddField("RSI", 78.2)

	msg, err := Render(a)
	require.NoError(t, err)

	want := "⚠️ **RSI overbought** `BTC/USDT`\n" +
		"RSI(14) on 1h is 78.20\n" +
		"• Interval: 1h\n" +
		"• RSI: 78.2\n" +
		"<https://example.com/btc>"
	assert.Equal(t, want, msg)
}

func TestRenderMinimal(t *testing.T) {
	msg, err := Render(&Alert{Scanner: "news", Kind: "post", Title: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, "ℹ️ **Hello**", msg)
}

func TestRenderReport(t *testing.T) {
	now := time.Now()
	alerts := []*Alert{
		{Scanner: "s", Kind: "a", Title: "first info", Level: Info, At: now},
		{Scanner: "s", Kind: "b", Title: "critical one", Level: Critical, At: now.Add(time.Second)},
		{Scanner: "s", Kind: "c", Title: "second info", Level: Info, At: now.Add(time.Minute)},
	}

	msg, err := RenderReport("Report", alerts)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(msg, "__**Report**__\n🚨 **critical one**"), msg)
	assert.Less(t, strings.Index(msg, "first info"), strings.Index(msg, "second info"))
	assert.Equal(t, 2, strings.Count(msg, "\n\n"))

	// Input order is not modified.
	assert.Equal(t, "first info", alerts[0].Title)

	header := ReportHeader(now, alerts)
	assert.Contains(t, header, "3 alert(s)")
	assert.Contains(t, header, "1 critical, 2 info")
}

func TestFingerprint(t *testing.T) {
	a := &Alert{Scanner: "tickers", Kind: "pump", Symbol: "btcusdt", Title: "x"}
	b := &Alert{Scanner: "tickers", Kind: "pump", Symbol: "BTCUSDT", Title: "y", Summary: "other"}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "presentation must not change the fingerprint")

	c := &Alert{Scanner: "tickers", Kind: "pump", Symbol: "BTCUSDT", Dedup: "1h"}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	// Field boundaries are part of the fingerprint.
	d := &Alert{Scanner: "ab", Kind: "c"}
	e := &Alert{Scanner: "a", Kind: "bc"}
	assert.NotEqual(t, d.Fingerprint(), e.Fingerprint())
}

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]Level{"": Info, "info": Info, "WARN": Warning, "critical": Critical} {
		got, err := ParseLevel(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	assert.Nil(t, Split("  \n", 10))
	assert.Equal(t, []string{"short"}, Split("short\n", 10))

	var blocks []string
	for i := 0; i < 40; i++ {
		blocks = append(blocks, strings.Repeat("x", 30)+"\n"+strings.Repeat("y", 30))
	}
	text := strings.Join(blocks, "\n\n")

	chunks := Split(text, 200)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 200)
		// Paragraphs are never broken when they fit.
		assert.Equal(t, 0, strings.Count(c, "x")%30)
	}
	assert.Equal(t, strings.ReplaceAll(text, "\n", ""), strings.ReplaceAll(strings.Join(chunks, ""), "\n", ""))
}

func TestSplitLongLine(t *testing.T) {
	line := strings.Repeat("é", 25)
	chunks := Split("head\n"+line, 10)
	assert.Equal(t, []string{"head", strings.Repeat("é", 10), strings.Repeat("é", 10), strings.Repeat("é", 5)}, chunks)
}

func TestPositionAlert(t *testing.T) {
	p := &Position{
		Exchange:         "binance",
		Symbol:           "ETHUSDT",
		Side:             "long",
		Size:             decimal.NewFromInt(2),
		EntryPrice:       decimal.NewFromInt(2000),
		MarkPrice:        decimal.NewFromInt(1900),
		LiquidationPrice: decimal.NewFromInt(1805),
		UnrealizedPnL:    decimal.NewFromInt(-200),
		Leverage:         decimal.NewFromInt(10),
	}

	assert.True(t, p.Margin().Equal(decimal.NewFromInt(400)))
	assert.True(t, p.PnLPercent().Equal(decimal.NewFromInt(-50)))
	dist, ok := p.LiquidationDistance()
	require.True(t, ok)
	assert.Equal(t, "5.00", dist.StringFixed(2))

	a := NewPositionAlert("portfolio", "pnl-loss", Critical, "Position losing", p)
	require.NoError(t, a.Check())
	msg, err := Render(a)
	require.NoError(t, err)
	assert.Contains(t, msg, "LONG ETHUSDT 10x on binance")
	assert.Contains(t, msg, "• PnL: -200.00 (-50.00%)")
	assert.Contains(t, msg, "• Liquidation: 1805 (5.00% away)")
}
