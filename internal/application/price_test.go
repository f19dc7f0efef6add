package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type priceSourceFunc func(ctx context.Context) (decimal.Decimal, error)

func (f priceSourceFunc) UnitPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	return f(ctx)
}

func TestPriceOracle(t *testing.T) {
	tests := []struct {
		name   string
		source PriceSource
		want   string
	}{
		{
			name: "source price",
			source: priceSourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
				return decimal.RequireFromString("0.1234"), nil
			}),
			want: "0.1234",
		},
		{
			name: "source error",
			source: priceSourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
				return decimal.Zero, errors.New("status 503")
			}),
			want: "0.07",
		},
		{
			name: "zero price",
			source: priceSourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
				return decimal.Zero, nil
			}),
			want: "0.07",
		},
		{
			name:   "no source",
			source: nil,
			want:   "0.07",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := NewPriceOracle(tt.source, DefaultFallbackPrice, time.Second)
			assert.Equal(t, tt.want, oracle.CurrentUnitPriceUSD(context.Background()).String())
		})
	}
}

func TestPriceOracle_TimeoutReturnsFallback(t *testing.T) {
	slow := priceSourceFunc(func(ctx context.Context) (decimal.Decimal, error) {
		select {
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		case <-time.After(5 * time.Second):
			return decimal.NewFromInt(1), nil
		}
	})
	oracle := NewPriceOracle(slow, DefaultFallbackPrice, 20*time.Millisecond)

	start := time.Now()
	price := oracle.CurrentUnitPriceUSD(context.Background())

	assert.True(t, price.Equal(decimal.RequireFromString("0.07")))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPriceOracle_InvalidFallbackUsesDefault(t *testing.T) {
	oracle := NewPriceOracle(nil, decimal.Zero, 0)
	assert.True(t, oracle.Fallback().Equal(DefaultFallbackPrice))
}
