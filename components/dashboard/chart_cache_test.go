package dashboard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartCacheStoresEntry(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0
	render := func() (string, error) {
		calls++
		return "<div>chart</div>", nil
	}

	first, err := cache.GetOrRender("trend:line:abc", render)
	require.NoError(t, err)
	second, err := cache.GetOrRender("trend:line:abc", render)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.Len())
}

func TestChartCacheExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewChartCache(time.Second)
	cache.now = func() time.Time { return now }
	calls := 0
	render := func() (string, error) {
		calls++
		return "fresh", nil
	}

	_, err := cache.GetOrRender("key", render)
	require.NoError(t, err)
	now = now.Add(2 * time.Second)
	assert.Zero(t, cache.Len())
	_, err = cache.GetOrRender("key", render)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestChartCacheSkipsErrorsAndInvalidates(t *testing.T) {
	cache := NewChartCache(time.Minute)
	_, err := cache.GetOrRender("trend:a", func() (string, error) { return "", errors.New("no data") })
	require.Error(t, err)
	assert.Zero(t, cache.Len())

	_, _ = cache.GetOrRender("trend:a", func() (string, error) { return "a", nil })
	_, _ = cache.GetOrRender("trend:b", func() (string, error) { return "b", nil })
	_, _ = cache.GetOrRender("flow:a", func() (string, error) { return "c", nil })

	assert.Equal(t, 2, cache.Invalidate("trend:"))
	assert.Equal(t, 1, cache.Len())
}

func TestFingerprintIsStable(t *testing.T) {
	assert.Equal(t, "empty", fingerprint(nil))
	assert.Equal(t, "empty", fingerprint(map[string]any{}))
	a := fingerprint(map[string]any{"metrics": []string{"ofr"}, "chartType": "line"})
	b := fingerprint(map[string]any{"chartType": "line", "metrics": []string{"ofr"}})
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}
