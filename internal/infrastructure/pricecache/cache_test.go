package pricecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	price decimal.Decimal
	err   error
	calls int
}

func (s *countingSource) UnitPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	s.calls++
	return s.price, s.err
}

func TestCachedSource_Passthrough(t *testing.T) {
	base := &countingSource{price: decimal.RequireFromString("0.12")}
	source, err := NewCachedSource(base, Config{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		price, err := source.UnitPriceUSD(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "0.12", price.String())
	}
	assert.Equal(t, 2, base.calls)
	assert.NoError(t, source.Close())
}

func TestCachedSource_CachesUntilTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	base := &countingSource{price: decimal.RequireFromString("0.1234")}
	source, err := NewCachedSource(base, Config{Addr: mr.Addr(), TTL: time.Minute, Key: "tron"})
	require.NoError(t, err)
	defer source.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		price, err := source.UnitPriceUSD(ctx)
		require.NoError(t, err)
		assert.Equal(t, "0.1234", price.String())
	}
	assert.Equal(t, 1, base.calls)

	stored, err := mr.Get("txledger:price:usd:tron")
	require.NoError(t, err)
	assert.Equal(t, "0.1234", stored)

	mr.FastForward(2 * time.Minute)
	base.price = decimal.RequireFromString("0.2")
	price, err := source.UnitPriceUSD(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.2", price.String())
	assert.Equal(t, 2, base.calls)
}

func TestCachedSource_ErrorsAreNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	base := &countingSource{err: errors.New("status 429")}
	source, err := NewCachedSource(base, Config{Addr: mr.Addr(), Key: "tron"})
	require.NoError(t, err)
	defer source.Close()

	_, err = source.UnitPriceUSD(context.Background())
	assert.Error(t, err)
	assert.False(t, mr.Exists("txledger:price:usd:tron"))
}

func TestNewCachedSource_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewCachedSource(&countingSource{}, Config{Addr: addr})
	assert.Error(t, err)
}
