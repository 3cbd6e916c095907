package collector

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterRegisterAllManifestCollectors(t *testing.T) {
	e := New(nil, prometheus.NewRegistry())

	require.NoError(t, e.Register(NewConfig(Names())))
	assert.Len(t, e.enabled, len(Names()))
}

func TestExporterRegisterIsNotReentrant(t *testing.T) {
	e := New(nil, prometheus.NewRegistry())

	require.NoError(t, e.Register(NewConfig([]string{"default"})))
	assert.Error(t, e.Register(NewConfig([]string{"vacuum"})))
}

func TestExporterRegisterPreservesResolutionOrder(t *testing.T) {
	e := New(nil, prometheus.NewRegistry())

	require.NoError(t, e.Register(NewConfig([]string{"vacuum", "default"})))
	require.Len(t, e.enabled, 2)
	assert.Equal(t, "vacuum", e.enabled[0].Name())
	assert.Equal(t, "default", e.enabled[1].Name())
}

func TestExporterRegisterFailsOnMetricCollision(t *testing.T) {
	registry := prometheus.NewRegistry()
	e := New(nil, registry)

	colliding := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pg_version_info",
		Help: "squats the version metric name",
	})
	require.NoError(t, registry.Register(colliding))

	err := e.Register(NewConfig([]string{"default"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default")
}

func TestExporterScrapeBestEffort(t *testing.T) {
	e := New(nil, prometheus.NewRegistry())
	require.NoError(t, e.Register(NewConfig(nil)))

	healthy := &fakeCollector{name: "healthy"}
	failing := &fakeCollector{name: "failing", collectErr: errors.New("boom")}
	e.enabled = []Collector{healthy, failing}

	e.Scrape(context.Background())

	assert.Equal(t, 1, healthy.collectCalls)
	assert.Equal(t, 1, failing.collectCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.scrapeSuccess.WithLabelValues("healthy")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.scrapeSuccess.WithLabelValues("failing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.scrapeErrors.WithLabelValues("failing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.scrapeErrors.WithLabelValues("healthy")))

	// a failing collector recovers on the next scrape
	failing.collectErr = nil
	e.Scrape(context.Background())
	assert.Equal(t, 1.0, testutil.ToFloat64(e.scrapeSuccess.WithLabelValues("failing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.scrapeErrors.WithLabelValues("failing")))
}

func TestExporterScrapeSerializesOverlappingScrapes(t *testing.T) {
	e := New(nil, prometheus.NewRegistry())
	require.NoError(t, e.Register(NewConfig(nil)))

	var active int32
	var overlapped atomic.Bool
	slow := &fakeCollector{name: "slow", onCollect: func() {
		if atomic.AddInt32(&active, 1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	}}
	e.enabled = []Collector{slow}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Scrape(context.Background())
		}()
	}
	wg.Wait()

	assert.False(t, overlapped.Load(), "collector instances must never run re-entrantly")
	assert.Equal(t, 4, slow.collectCalls)
}
