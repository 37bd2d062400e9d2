package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis spins up a Redis container and returns a connected RedisCache + cleanup.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisURL := "redis://" + host + ":" + port.Port()
	rc, err := cache.NewRedisCache(redisURL)
	require.NoError(t, err)

	return rc
}

// --- Ping ---

func TestPing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	err := rc.Ping(context.Background())
	assert.NoError(t, err)
}

// --- Set / Get roundtrip ---

func TestSetGet_Roundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	err := rc.Set(ctx, "test:key", []byte("hello"), 10*time.Second)
	require.NoError(t, err)

	val, found, err := rc.Get(ctx, "test:key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("hello"), val)
}

func TestGet_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)

	val, found, err := rc.Get(context.Background(), "nonexistent:key")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestSet_TTLExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	err := rc.Set(ctx, "expiry:key", []byte("temp"), 1*time.Second)
	require.NoError(t, err)

	// Immediately should exist
	_, found, err := rc.Get(ctx, "expiry:key")
	require.NoError(t, err)
	assert.True(t, found)

	// Wait for TTL to expire
	time.Sleep(1500 * time.Millisecond)

	_, found, err = rc.Get(ctx, "expiry:key")
	require.NoError(t, err)
	assert.False(t, found)
}

// --- Delete ---

func TestDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "del:key", []byte("bye"), 10*time.Second))

	err := rc.Delete(ctx, "del:key")
	require.NoError(t, err)

	_, found, err := rc.Get(ctx, "del:key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDelete_NonExistent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)

	err := rc.Delete(context.Background(), "does:not:exist")
	assert.NoError(t, err)
}

// --- IncrWithExpiry ---

func TestIncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := "ratelimit:test:" + uuid.NewString()[:8]

	val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)

	val, err = rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), val)

	val, err = rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(3), val)
}

func TestIncrWithExpiry_Expires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	rc := setupRedis(t)
	ctx := context.Background()
	key := "ratelimit:expiry:" + uuid.NewString()[:8]

	_, err := rc.IncrWithExpiry(ctx, key, 1*time.Second)
	require.NoError(t, err)

	time.Sleep(1500 * time.Millisecond)

	// After expiry, should start from 1 again
	val, err := rc.IncrWithExpiry(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), val)
}

// --- MemoryCache ---

func TestMemoryCache_SetGetDelete(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), time.Minute))
	val, found, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, mc.Delete(ctx, "k"))
	_, found, err = mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()
	buf := []byte("abc")

	require.NoError(t, mc.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'z'

	val, _, _ := mc.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), val)
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 50*time.Millisecond))
	time.Sleep(100 * time.Millisecond)

	_, found, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_ZeroTTLNeverExpires(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", []byte("v"), 0))
	_, found, _ := mc.Get(ctx, "k")
	assert.True(t, found)
}

func TestMemoryCache_IncrWithExpiry(t *testing.T) {
	mc := cache.NewMemoryCache()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := mc.IncrWithExpiry(ctx, "counter", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := mc.IncrWithExpiry(ctx, "short", 50*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	got, err := mc.IncrWithExpiry(ctx, "short", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

// --- Cache Key Builders ---

func TestJobKey(t *testing.T) {
	assert.Equal(t, "job:init_42_1700000000000", cache.JobKey("init_42_1700000000000"))
}

func TestRateLimitKey(t *testing.T) {
	userID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "ratelimit:22222222-2222-2222-2222-222222222222", cache.RateLimitKey(userID.String()))
}

func TestWeatherKey_Normalizes(t *testing.T) {
	assert.Equal(t, cache.WeatherKey("Nairobi, KE"), cache.WeatherKey("nairobi,ke"))
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	id := uuid.NewString()

	keys := map[string]bool{
		cache.JobKey(id):       true,
		cache.RateLimitKey(id): true,
		cache.WeatherKey(id):   true,
	}
	assert.Len(t, keys, 3, "all keys should be unique")
}
