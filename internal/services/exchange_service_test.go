package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateCache struct {
	values  map[string]string
	deletes int
}

func newFakeRateCache() *fakeRateCache {
	return &fakeRateCache{values: make(map[string]string)}
}

func (c *fakeRateCache) Get(key string) (string, error) {
	return c.values[key], nil
}

func (c *fakeRateCache) Set(key string, value string, expiration time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *fakeRateCache) Delete(keys ...string) error {
	for _, key := range keys {
		delete(c.values, key)
	}
	c.deletes++
	return nil
}

func TestHTTPRateSourceParsesNGNRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"NGN":1523.75,"KES":129.1}}`))
	}))
	defer server.Close()

	source := NewHTTPRateSource(server.URL)
	rate, err := source.USDToNGNRate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("1523.75")))
}

func TestHTTPRateSourceRejectsMissingRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"KES":129.1}}`))
	}))
	defer server.Close()

	source := NewHTTPRateSource(server.URL)
	_, err := source.USDToNGNRate(context.Background())
	require.Error(t, err)
}

func TestHTTPRateSourceRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	source := NewHTTPRateSource(server.URL)
	_, err := source.USDToNGNRate(context.Background())
	require.Error(t, err)
}

func TestCachedRateSourceServesFromCache(t *testing.T) {
	cache := newFakeRateCache()
	cache.values["fx:usd-ngn"] = "1500.25"

	// A zero-rate source errors, so a hit on it would fail the test.
	cached := NewCachedRateSource(&fixedRateSource{}, cache, time.Hour)
	rate, err := cached.USDToNGNRate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("1500.25")))
}

func TestCachedRateSourceCachesFetchedRate(t *testing.T) {
	cache := newFakeRateCache()
	cached := NewCachedRateSource(&fixedRateSource{rate: decimal.RequireFromString("1523.75")}, cache, time.Hour)

	rate, err := cached.USDToNGNRate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("1523.75")))
	assert.Equal(t, "1523.75", cache.values["fx:usd-ngn"])
}

func TestCachedRateSourceDropsCorruptEntry(t *testing.T) {
	cache := newFakeRateCache()
	cache.values["fx:usd-ngn"] = "not-a-number"

	cached := NewCachedRateSource(&fixedRateSource{rate: decimal.RequireFromString("1523.75")}, cache, time.Hour)
	rate, err := cached.USDToNGNRate(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.RequireFromString("1523.75")))

	// The corrupt value was evicted and replaced by the fresh rate.
	assert.Equal(t, 1, cache.deletes)
	assert.Equal(t, "1523.75", cache.values["fx:usd-ngn"])
}

func TestConvertUSDToNGNRounds(t *testing.T) {
	service := NewExchangeService(&fixedRateSource{rate: decimal.RequireFromString("1523.755")})

	got, err := service.ConvertUSDToNGN(context.Background(), decimal.RequireFromString("1.01"))
	require.NoError(t, err)
	assert.Equal(t, "1538.99", got.StringFixed(2))
}

func TestConvertUSDToNGNPropagatesSourceFailure(t *testing.T) {
	service := NewExchangeService(&fixedRateSource{})

	_, err := service.ConvertUSDToNGN(context.Background(), decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversion unavailable")
}
