package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const rateCacheKey = "fx:usd-ngn"

// RateSource provides the current USD to NGN exchange rate.
type RateSource interface {
	USDToNGNRate(ctx context.Context) (decimal.Decimal, error)
}

// HTTPRateSource fetches the rate from an external exchange-rate API that
// responds with {"rates": {"NGN": <rate>}}.
type HTTPRateSource struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewHTTPRateSource creates a rate source against the given API URL.
func NewHTTPRateSource(baseURL string) *HTTPRateSource {
	return &HTTPRateSource{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// USDToNGNRate fetches and parses the current rate.
func (s *HTTPRateSource) USDToNGNRate(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL, nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "building exchange-rate request")
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "fetching exchange rate")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, errors.Errorf("exchange-rate API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, errors.Wrap(err, "decoding exchange-rate response")
	}

	rate, ok := payload.Rates["NGN"]
	if !ok || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.New("exchange-rate response missing a positive NGN rate")
	}
	return rate, nil
}

// RateCache is the subset of the Redis client the rate cache needs.
type RateCache interface {
	Get(key string) (string, error)
	Set(key string, value string, expiration time.Duration) error
	Delete(keys ...string) error
}

// CachedRateSource caches a rate source's result in Redis. A cache failure
// falls through to the underlying source; a source failure is returned.
type CachedRateSource struct {
	Source RateSource
	Cache  RateCache
	TTL    time.Duration
}

// NewCachedRateSource wraps source with a Redis-backed cache.
func NewCachedRateSource(source RateSource, cache RateCache, ttl time.Duration) *CachedRateSource {
	return &CachedRateSource{Source: source, Cache: cache, TTL: ttl}
}

// USDToNGNRate returns the cached rate when fresh, otherwise fetches and
// caches a new one.
func (s *CachedRateSource) USDToNGNRate(ctx context.Context) (decimal.Decimal, error) {
	if cached, err := s.Cache.Get(rateCacheKey); err == nil && cached != "" {
		if rate, parseErr := decimal.NewFromString(cached); parseErr == nil && rate.GreaterThan(decimal.Zero) {
			return rate, nil
		}
		// A corrupt entry would shadow every refresh until the TTL ran out.
		if err := s.Cache.Delete(rateCacheKey); err != nil {
			log.Printf("Rate cache delete failed: %v", err)
		}
	} else if err != nil {
		log.Printf("Rate cache read failed, falling back to source: %v", err)
	}

	rate, err := s.Source.USDToNGNRate(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.Cache.Set(rateCacheKey, rate.String(), s.TTL); err != nil {
		log.Printf("Rate cache write failed: %v", err)
	}
	return rate, nil
}

// ExchangeService converts invoice amounts between currencies for payout
// generation. A rate lookup failure is fatal to the caller because payout
// amounts must never be guessed.
type ExchangeService struct {
	Source RateSource
}

// NewExchangeService creates an ExchangeService over the given rate source.
func NewExchangeService(source RateSource) *ExchangeService {
	return &ExchangeService{Source: source}
}

// USDToNGNRate returns the current rate. Batch callers fetch it once per run
// so every converted amount in the batch uses the same rate.
func (s *ExchangeService) USDToNGNRate(ctx context.Context) (decimal.Decimal, error) {
	rate, err := s.Source.USDToNGNRate(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("USD to NGN conversion unavailable: %w", err)
	}
	return rate, nil
}

// ConvertUSDToNGN converts a USD amount to NGN at the current rate, rounded
// to 2 decimal places.
func (s *ExchangeService) ConvertUSDToNGN(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	rate, err := s.USDToNGNRate(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate).Round(2), nil
}
