package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/budgetledger/internal/adapter/repository/memory"
	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "foo", []byte("bar"), time.Minute))

	val, err := cache.Get(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "bar", string(val))
}

func TestCacheMissReturnsNil(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	val, err := NewCache(client).Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestCacheExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	val, err := cache.Get(ctx, "short")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestCacheDelete(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "foo", []byte("bar"), time.Minute))
	require.NoError(t, cache.Delete(ctx, "foo"))

	val, err := cache.Get(ctx, "foo")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestCacheBacksPreferenceLookups(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	ctx := context.Background()
	cache := NewCache(client)
	prefs := usecase.NewPreferenceUseCase(memory.NewPreferenceRepository(memory.NewStore()), cache, time.Minute, "USD")

	_, err := prefs.SetPrincipalCurrency(ctx, "u1", "eur")
	require.NoError(t, err)

	currency, err := prefs.PrincipalCurrency(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "EUR", currency)

	raw, err := cache.Get(ctx, "pref:u1")
	require.NoError(t, err)
	require.NotNil(t, raw)

	var cached domain.UserPreference
	require.NoError(t, json.Unmarshal(raw, &cached))
	assert.Equal(t, "EUR", cached.PrincipalCurrency)

	_, err = prefs.SetPrincipalCurrency(ctx, "u1", "gbp")
	require.NoError(t, err)

	raw, err = cache.Get(ctx, "pref:u1")
	require.NoError(t, err)
	assert.Nil(t, raw, "write must invalidate the cached preference")
}
