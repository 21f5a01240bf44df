package price

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

// Source returns the USD price of one NEAR.
type Source interface {
	Name() string
	USDPrice(ctx context.Context) (decimal.Decimal, error)
}

// BinanceSource reads the last trade price of a ticker from Binance.
type BinanceSource struct {
	client *binance.Client
	symbol string
}

// NewBinanceSource creates a Binance ticker source. An empty baseURL keeps the
// library default endpoint.
func NewBinanceSource(baseURL, symbol string) *BinanceSource {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &BinanceSource{client: client, symbol: symbol}
}

// Name implements Source.
func (b *BinanceSource) Name() string { return "binance" }

// USDPrice implements Source.
func (b *BinanceSource) USDPrice(ctx context.Context) (decimal.Decimal, error) {
	prices, err := b.client.NewListPricesService().Symbol(b.symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching %s ticker: %w", b.symbol, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("binance returned no price for %s", b.symbol)
	}

	p, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s price %q: %w", b.symbol, prices[0].Price, err)
	}
	if !p.IsPositive() {
		return decimal.Zero, fmt.Errorf("binance returned non-positive price %s for %s", p, b.symbol)
	}
	return p, nil
}
