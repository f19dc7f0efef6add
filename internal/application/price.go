package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultFallbackPrice is the unit price used whenever the price service cannot answer.
var DefaultFallbackPrice = decimal.RequireFromString("0.07")

type PriceSource interface {
	UnitPriceUSD(ctx context.Context) (decimal.Decimal, error)
}

// PriceOracle never fails: every source error becomes the fallback price.
type PriceOracle struct {
	source   PriceSource
	fallback decimal.Decimal
	timeout  time.Duration
}

func NewPriceOracle(source PriceSource, fallback decimal.Decimal, timeout time.Duration) *PriceOracle {
	if !fallback.IsPositive() {
		fallback = DefaultFallbackPrice
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PriceOracle{source: source, fallback: fallback, timeout: timeout}
}

func (o *PriceOracle) CurrentUnitPriceUSD(ctx context.Context) decimal.Decimal {
	if o.source == nil {
		return o.fallback
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	price, err := o.source.UnitPriceUSD(ctx)
	if err != nil {
		slog.Warn("price lookup failed, using fallback", "err", err, "fallback", o.fallback.String())
		return o.fallback
	}
	if !price.IsPositive() {
		slog.Warn("price lookup returned non-positive price, using fallback", "price", price.String())
		return o.fallback
	}
	return price
}

func (o *PriceOracle) Fallback() decimal.Decimal {
	return o.fallback
}
