// Package settings exposes the configuration store used to tune advance
// payment behavior at runtime.
package settings

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/currency"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Well-known configuration keys.
const (
	NamespaceAdvances = "advances"
	NamespaceDefault  = "default"

	// KeyMinLevel is the minimum user security level required to modify
	// advance payments. Unset means the gate is not configured.
	KeyMinLevel = "level"
	// KeyPropagateDates controls whether receipt issue/payment dates are
	// overwritten with the advance payment date during reconciliation.
	KeyPropagateDates = "propagate_dates"
	// KeyCurrencyCode is the system default currency.
	KeyCurrencyCode = "currency_code"
)

const fallbackCurrency = "EUR"

// Service reads configuration values through a redis cache, collapsing
// concurrent misses with singleflight.
type Service struct {
	repo     Repository
	cache    *redis.Client
	cacheTTL time.Duration
	group    singleflight.Group
}

// NewService constructs a Service. cache may be nil, in which case every
// read goes to the repository.
func NewService(repo Repository, cache *redis.Client, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{repo: repo, cache: cache, cacheTTL: cacheTTL}
}

// Get returns the configured value, or shared.ErrNotFound when unset.
func (s *Service) Get(ctx context.Context, namespace, key string) (string, error) {
	cacheKey := "settings:" + namespace + ":" + key

	if s.cache != nil {
		if value, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			return value, nil
		}
	}

	value, err, _ := s.group.Do(cacheKey, func() (any, error) {
		v, err := s.repo.Get(ctx, namespace, key)
		if err != nil {
			return "", err
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, cacheKey, v, s.cacheTTL).Err()
		}
		return v, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// GetString returns the value or def when unset.
func (s *Service) GetString(ctx context.Context, namespace, key, def string) (string, error) {
	value, err := s.Get(ctx, namespace, key)
	if errors.Is(err, shared.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetBool returns the value parsed as bool, def when unset or unparsable.
func (s *Service) GetBool(ctx context.Context, namespace, key string, def bool) (bool, error) {
	value, err := s.Get(ctx, namespace, key)
	if errors.Is(err, shared.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def, nil
	}
	return parsed, nil
}

// GetInt returns the value parsed as int. shared.ErrNotFound is passed
// through so callers can distinguish "not configured" from zero.
func (s *Service) GetInt(ctx context.Context, namespace, key string) (int, error) {
	value, err := s.Get(ctx, namespace, key)
	if err != nil {
		return 0, err
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, shared.ErrNotFound
	}
	return parsed, nil
}

// DefaultCurrency returns the configured default currency code, validated
// as ISO 4217. Invalid or missing configuration falls back to EUR.
func (s *Service) DefaultCurrency(ctx context.Context) string {
	value, err := s.GetString(ctx, NamespaceDefault, KeyCurrencyCode, fallbackCurrency)
	if err != nil {
		return fallbackCurrency
	}
	unit, err := currency.ParseISO(value)
	if err != nil {
		return fallbackCurrency
	}
	return unit.String()
}
