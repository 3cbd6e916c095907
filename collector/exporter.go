package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pg_exporter/log"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Exporter drives one-time registration then repeated collection per scrape.
// Register constructs each enabled collector exactly once; the same instances
// serve every scrape afterward, so their metric handles survive across
// scrapes.
type Exporter struct {
	registry   *prometheus.Registry
	db         *sqlx.DB
	enabled    []Collector
	registered bool
	scrapeMu   sync.Mutex

	scrapeDuration *prometheus.GaugeVec
	scrapeSuccess  *prometheus.GaugeVec
	scrapeErrors   *prometheus.CounterVec
}

func New(db *sqlx.DB, registry *prometheus.Registry) *Exporter {
	return &Exporter{
		registry: registry,
		db:       db,
		scrapeDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prometheus.BuildFQName(namespace, "exporter", "scrape_duration_seconds"),
				Help: "Duration of the last pass of the collector",
			},
			[]string{"collector"},
		),
		scrapeSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prometheus.BuildFQName(namespace, "exporter", "scrape_success"),
				Help: "Whether the last pass of the collector succeeded",
			},
			[]string{"collector"},
		),
		scrapeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prometheus.BuildFQName(namespace, "exporter", "scrape_errors_total"),
				Help: "Total collector passes that returned an error",
			},
			[]string{"collector"},
		),
	}
}

// Registry exposes the shared metrics registry for rendering.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Register constructs every enabled collector in resolution order and calls
// RegisterMetrics once on each. The first failure is returned and the caller
// must not begin serving. Register runs once at startup and is never
// re-entered.
func (e *Exporter) Register(cfg Config) error {
	if e.registered {
		return fmt.Errorf("collectors already registered")
	}

	factories, err := Factories()
	if err != nil {
		return err
	}

	for _, c := range []prometheus.Collector{
		e.scrapeDuration,
		e.scrapeSuccess,
		e.scrapeErrors,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	} {
		if err := e.registry.Register(c); err != nil {
			return err
		}
	}

	for _, name := range cfg.Names() {
		factory, ok := factories[name]
		if !ok {
			// Config drops unknown names, so this only guards a hand-built set.
			continue
		}
		c := factory()
		if err := c.RegisterMetrics(e.registry); err != nil {
			return fmt.Errorf("registering collector failed: collector=%s error=%w", name, err)
		}
		e.enabled = append(e.enabled, c)
		log.Logger.Debugf("registered collector: collector=%s", name)
	}

	e.registered = true
	return nil
}

// Scrape runs Collect on every enabled collector concurrently and waits for
// all of them. A failing collector logs a warning, counts an error and flips
// its scrape_success gauge to 0; the remaining collectors still contribute,
// so the scrape renders best-effort partial output instead of failing whole.
// Overlapping scrapes are serialized: collectors are never invoked
// re-entrantly on one instance, and a pass never observes another pass's
// half-reset vectors.
func (e *Exporter) Scrape(ctx context.Context) {
	e.scrapeMu.Lock()
	defer e.scrapeMu.Unlock()

	var wg sync.WaitGroup
	defer wg.Wait()

	for _, c := range e.enabled {
		wg.Add(1)
		go func(c Collector) {
			defer wg.Done()
			e.scrapeOne(ctx, c)
		}(c)
	}
}

func (e *Exporter) scrapeOne(ctx context.Context, c Collector) {
	start := time.Now()
	err := c.Collect(ctx, e.db)
	duration := time.Since(start)

	e.scrapeDuration.WithLabelValues(c.Name()).Set(duration.Seconds())
	if err != nil {
		e.scrapeSuccess.WithLabelValues(c.Name()).Set(0)
		e.scrapeErrors.WithLabelValues(c.Name()).Inc()
		log.Logger.Warnf("collector failed: collector=%s duration=%s error=%v", c.Name(), duration, err)
		return
	}
	e.scrapeSuccess.WithLabelValues(c.Name()).Set(1)
}
