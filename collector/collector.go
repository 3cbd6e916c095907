package collector

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pg"

// Collector is the capability set every collector implements.
//
// RegisterMetrics is called exactly once per process, before any collection;
// an error here aborts startup. Collect runs once per scrape and must be safe
// to call repeatedly; the only state a collector may keep across calls are
// the metric handles it owns since registration. Collect may run concurrently
// with other collectors but is never invoked re-entrantly on one instance.
type Collector interface {
	Name() string
	RegisterMetrics(registry prometheus.Registerer) error
	Collect(ctx context.Context, db *sqlx.DB) error
	EnabledByDefault() bool
}

// Factory constructs a fresh Collector. Factories are invoked both when the
// CLI flag surface is synthesized (to read EnabledByDefault) and again when
// the exporter registers, so constructors must not carry state between the
// two instances.
type Factory func() Collector
