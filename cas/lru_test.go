package cas

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUCache_BasicOperation(t *testing.T) {
	cache := NewLRUCache(NewMemoryCAS(), 2)

	var hashes []Hash
	for _, s := range []string{"one", "two", "three"} {
		h, err := cache.Put(&Blob{Data: []byte(s)})
		require.NoError(t, err)
		hashes = append(hashes, h)
	}

	for i, want := range []string{"one", "two", "three"} {
		b, err := Retrieve[Blob](cache, hashes[i])
		require.NoError(t, err)
		require.Equal(t, want, string(b.Data))
	}
	stats := cache.Stats()
	require.Equal(t, 2, stats.Size)
	require.Equal(t, 3, stats.Misses)
	require.Equal(t, 0, stats.Hits)

	// "three" is cached, "one" was evicted.
	_, err := Retrieve[Blob](cache, hashes[2])
	require.NoError(t, err)
	_, err = Retrieve[Blob](cache, hashes[0])
	require.NoError(t, err)
	stats = cache.Stats()
	require.Equal(t, 1, stats.Hits)
	require.Equal(t, 4, stats.Misses)
	require.LessOrEqual(t, stats.Size, stats.MaxSize)
}

func TestLRUCache_Has(t *testing.T) {
	cache := NewLRUCache(NewMemoryCAS(), 0)
	require.Equal(t, 1000, cache.Stats().MaxSize)

	h, err := cache.Put(&Blob{Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	require.True(t, cache.Has(h))
	require.False(t, cache.Has(h+1))

	_, err = Retrieve[Blob](cache, h+1)
	require.ErrorContains(t, err, "hash not found")
}
