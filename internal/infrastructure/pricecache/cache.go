package pricecache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"txledger/internal/application"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	priceKeyPrefix  = "txledger:price:usd:"
	defaultCacheTTL = time.Minute
)

type Config struct {
	Addr string
	TTL  time.Duration
	// Key distinguishes coins sharing one redis instance.
	Key string
}

// CachedSource keeps the last good spot price in redis for TTL. Without an
// address it is a plain passthrough.
type CachedSource struct {
	application.PriceSource
	cache *redis.Client
	key   string
	ttl   time.Duration
}

func NewCachedSource(base application.PriceSource, cfg Config) (*CachedSource, error) {
	if base == nil {
		return nil, errors.New("base price source is required")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return &CachedSource{PriceSource: base}, nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultCacheTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &CachedSource{PriceSource: base, cache: client, key: priceKeyPrefix + cfg.Key, ttl: cfg.TTL}, nil
}

func (s *CachedSource) UnitPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	if s.cache == nil {
		return s.PriceSource.UnitPriceUSD(ctx)
	}
	cached, err := s.cache.Get(ctx, s.key).Result()
	switch {
	case err == nil:
		if price, perr := decimal.NewFromString(cached); perr == nil && price.IsPositive() {
			return price, nil
		}
	case !errors.Is(err, redis.Nil):
		slog.Debug("price cache read failed", "err", err)
	}

	price, err := s.PriceSource.UnitPriceUSD(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if price.IsPositive() {
		_ = s.cache.Set(ctx, s.key, price.String(), s.ttl).Err()
	}
	return price, nil
}

func (s *CachedSource) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}
