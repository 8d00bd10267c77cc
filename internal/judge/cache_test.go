package judge

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheBasicOperations(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 100)
	defer cache.Close()

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Set("k1", Result{Score: 0.8, Source: SourceJSON})
	got, ok := cache.Get("k1")
	require.True(t, ok)
	assert.InDelta(t, 0.8, got.Score, 0.001)
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCacheExpiration(t *testing.T) {
	cache := NewMemoryCache(20*time.Millisecond, 100)
	defer cache.Close()

	cache.Set("k1", Result{Score: 0.5})
	_, ok := cache.Get("k1")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = cache.Get("k1")
	assert.False(t, ok)
}

func TestMemoryCacheEvictsOldestAtCapacity(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 3)
	defer cache.Close()

	cache.Set("first", Result{Score: 0.1})
	time.Sleep(2 * time.Millisecond)
	cache.Set("second", Result{Score: 0.2})
	time.Sleep(2 * time.Millisecond)
	cache.Set("third", Result{Score: 0.3})
	time.Sleep(2 * time.Millisecond)

	// Adding a fourth entry pushes out the earliest-inserted one.
	cache.Set("fourth", Result{Score: 0.4})

	_, ok := cache.Get("first")
	assert.False(t, ok, "oldest entry should be evicted")

	for _, key := range []string{"second", "third", "fourth"} {
		_, ok := cache.Get(key)
		assert.True(t, ok, "entry %s should survive", key)
	}
	assert.Equal(t, 3, cache.Len())
}

func TestMemoryCacheOverwriteDoesNotEvict(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 2)
	defer cache.Close()

	cache.Set("a", Result{Score: 0.1})
	cache.Set("b", Result{Score: 0.2})
	cache.Set("a", Result{Score: 0.9})

	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.InDelta(t, 0.9, got.Score, 0.001)

	_, ok = cache.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 1000)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", n, j)
				cache.Set(key, Result{Score: 0.5})
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, cache.Len())
}
