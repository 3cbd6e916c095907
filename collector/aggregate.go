package collector

import (
	"context"

	"pg_exporter/log"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// aggregate composes ordered sub-collectors into one Collector. Both
// lifecycle phases fan out over the subs in declaration order, sequentially,
// so a failure is attributable to a specific sub-collector and any
// ordering-sensitive side effects stay deterministic. The first sub-collector
// error aborts the remaining calls in that pass and is returned verbatim;
// work already done by earlier subs is not rolled back.
type aggregate struct {
	name      string
	defaultOn bool
	subs      []Collector
}

func newAggregate(name string, defaultOn bool, subs ...Collector) *aggregate {
	return &aggregate{name: name, defaultOn: defaultOn, subs: subs}
}

func (a *aggregate) Name() string {
	return a.name
}

func (a *aggregate) EnabledByDefault() bool {
	return a.defaultOn
}

func (a *aggregate) RegisterMetrics(registry prometheus.Registerer) error {
	for _, sub := range a.subs {
		if err := sub.RegisterMetrics(registry); err != nil {
			log.Logger.Errorf("registering metrics failed: collector=%s sub=%s error=%v", a.name, sub.Name(), err)
			return err
		}
	}
	return nil
}

func (a *aggregate) Collect(ctx context.Context, db *sqlx.DB) error {
	for _, sub := range a.subs {
		if err := sub.Collect(ctx, db); err != nil {
			return err
		}
	}
	return nil
}
