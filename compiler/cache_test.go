package compiler

import (
	"sync"
	"testing"

	"github.com/brimdata/htsql/catalog/demo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	tr, err := NewTranslator(demo.Catalog(), Config{}, nil)
	require.NoError(t, err)
	c, err := NewCache(tr, 8, prometheus.NewRegistry())
	require.NoError(t, err)
	return c
}

func TestCacheHit(t *testing.T) {
	c := newCache(t)
	a, err := c.Translate("/school")
	require.NoError(t, err)
	b, err := c.Translate("  /school ")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.requests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.requests.WithLabelValues("miss")))
}

func TestCacheErrors(t *testing.T) {
	c := newCache(t)
	_, err := c.Translate("/{nosuchcolumn}")
	assert.Error(t, err)
	_, err = c.Translate("/{nosuchcolumn}")
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(c.metrics.errors))
}

func TestCacheConcurrent(t *testing.T) {
	c := newCache(t)
	results := make([]*CompiledSQL, 16)
	var wg sync.WaitGroup
	for k := range results {
		k := k
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := c.Translate("/school{name, count(department)}")
			assert.NoError(t, err)
			results[k] = result
		}()
	}
	wg.Wait()
	for _, result := range results {
		assert.Same(t, results[0], result)
	}
	assert.Equal(t, 1, c.Len())
}

func TestFingerprintBackend(t *testing.T) {
	c := newCache(t)
	tr, err := NewTranslator(demo.Catalog(), Config{Backend: "pgsql"}, nil)
	require.NoError(t, err)
	other, err := NewCache(tr, 8, nil)
	require.NoError(t, err)
	assert.NotEqual(t, c.Fingerprint("/school"), other.Fingerprint("/school"))
	assert.Equal(t, c.Fingerprint("/school"), c.Fingerprint("/school\n"))
}
