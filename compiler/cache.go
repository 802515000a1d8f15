package compiler

import (
	"strconv"
	"strings"
	"time"

	arc "github.com/hashicorp/golang-lru/arc/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"
)

// Cache remembers translations by query fingerprint.  Concurrent
// requests for the same fingerprint share a single translation.  Failed
// translations are not remembered.  Results are shared between callers
// and must not be modified.
type Cache struct {
	translator *Translator
	entries    *arc.ARCCache[string, *CompiledSQL]
	group      singleflight.Group
	metrics    *metrics
	logger     *zap.Logger
}

type metrics struct {
	requests *prometheus.CounterVec
	errors   prometheus.Counter
	latency  prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "htsql",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Number of cache lookups by result (hit, miss or shared).",
		}, []string{"result"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "htsql",
			Subsystem: "cache",
			Name:      "translation_errors_total",
			Help:      "Number of translations that failed.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "htsql",
			Subsystem: "cache",
			Name:      "translation_seconds",
			Help:      "Time spent translating queries missing from the cache.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.errors, m.latency)
	}
	return m
}

// NewCache wraps a translator with a cache of the given capacity.  The
// metrics of the cache are registered with reg unless it is nil.
func NewCache(t *Translator, size int, reg prometheus.Registerer) (*Cache, error) {
	entries, err := arc.NewARC[string, *CompiledSQL](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		translator: t,
		entries:    entries,
		metrics:    newMetrics(reg),
		logger:     t.logger.Named("cache"),
	}, nil
}

// Fingerprint identifies a translation request.  Queries that differ
// only in Unicode normalization or surrounding whitespace share a
// fingerprint.
func (c *Cache) Fingerprint(query string) string {
	var b strings.Builder
	b.WriteString(c.translator.dialect.Name())
	b.WriteByte(0)
	b.WriteString(strconv.FormatInt(c.translator.limit, 10))
	b.WriteByte(0)
	b.WriteString(norm.NFC.String(strings.TrimSpace(query)))
	return b.String()
}

func (c *Cache) Translate(query string) (*CompiledSQL, error) {
	key := c.Fingerprint(query)
	if result, ok := c.entries.Get(key); ok {
		c.metrics.requests.WithLabelValues("hit").Inc()
		return result, nil
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		if result, ok := c.entries.Get(key); ok {
			return result, nil
		}
		start := time.Now()
		result, err := c.translator.Translate(query)
		c.metrics.latency.Observe(time.Since(start).Seconds())
		if err != nil {
			c.metrics.errors.Inc()
			return nil, err
		}
		c.entries.Add(key, result)
		return result, nil
	})
	if shared {
		c.metrics.requests.WithLabelValues("shared").Inc()
	} else {
		c.metrics.requests.WithLabelValues("miss").Inc()
	}
	if err != nil {
		return nil, err
	}
	c.logger.Debug("cache fill", zap.Int("entries", c.entries.Len()), zap.Bool("shared", shared))
	return v.(*CompiledSQL), nil
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
