package collector

import (
	"context"
	"database/sql"
	"fmt"

	"pg_exporter/util"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

func newVacuumCollector() Collector {
	return newAggregate("vacuum", false,
		newVacuumStatsCollector(),
		newVacuumProgressCollector(),
	)
}

type vacuumStatsRow struct {
	Relname string        `db:"relname"`
	DeadTup int64         `db:"n_dead_tup"`
	LastAge sql.NullInt64 `db:"last_age"`
}

const vacuumStatsQuery = `
SELECT relname, n_dead_tup, EXTRACT(EPOCH FROM (now() - last_vacuum))::bigint AS last_age
FROM pg_stat_all_tables
WHERE schemaname NOT IN ('pg_catalog', 'information_schema')`

type vacuumStatsCollector struct {
	tuplesDead *prometheus.GaugeVec
	lastAge    *prometheus.GaugeVec
}

func newVacuumStatsCollector() Collector {
	return &vacuumStatsCollector{
		tuplesDead: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "vacuum", "tuples_dead"),
			Help: "Dead tuples per table",
		}, []string{"relname"}),
		lastAge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "vacuum", "last_age_seconds"),
			Help: "Seconds since the table was last vacuumed manually",
		}, []string{"relname"}),
	}
}

func (c *vacuumStatsCollector) Name() string           { return "stats" }
func (c *vacuumStatsCollector) EnabledByDefault() bool { return false }

func (c *vacuumStatsCollector) RegisterMetrics(registry prometheus.Registerer) error {
	if err := registry.Register(c.tuplesDead); err != nil {
		return err
	}
	return registry.Register(c.lastAge)
}

func (c *vacuumStatsCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]vacuumStatsRow, 0)
	if err := db.SelectContext(ctx, &rows, vacuumStatsQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", vacuumStatsQuery, err)
	}

	c.tuplesDead.Reset()
	c.lastAge.Reset()
	for _, row := range rows {
		c.tuplesDead.WithLabelValues(row.Relname).Set(float64(row.DeadTup))
		if row.LastAge.Valid {
			c.lastAge.WithLabelValues(row.Relname).Set(util.NullInt64ToFloat64(row.LastAge))
		}
	}
	return nil
}

type vacuumProgressRow struct {
	Relname          sql.NullString `db:"relname"`
	HeapBlksTotal    sql.NullInt64  `db:"heap_blks_total"`
	HeapBlksScanned  sql.NullInt64  `db:"heap_blks_scanned"`
	HeapBlksVacuumed sql.NullInt64  `db:"heap_blks_vacuumed"`
	IndexVacuumCount sql.NullInt64  `db:"index_vacuum_count"`
}

const vacuumProgressQuery = `
SELECT
    c.relname,
    p.heap_blks_total,
    p.heap_blks_scanned,
    p.heap_blks_vacuumed,
    p.index_vacuum_count
FROM pg_stat_progress_vacuum p
LEFT JOIN pg_class c ON c.oid = p.relid`

type vacuumProgressCollector struct {
	active           prometheus.Gauge
	heapProgress     *prometheus.GaugeVec
	heapVacuumed     *prometheus.GaugeVec
	indexVacuumCount *prometheus.GaugeVec
}

func newVacuumProgressCollector() Collector {
	return &vacuumProgressCollector{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "vacuum", "active"),
			Help: "Number of vacuum operations currently running",
		}),
		heapProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "vacuum", "heap_progress"),
			Help: "Fraction of heap blocks scanned by the running vacuum",
		}, []string{"relname"}),
		heapVacuumed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "vacuum", "heap_vacuumed"),
			Help: "Number of heap blocks vacuumed by the running vacuum",
		}, []string{"relname"}),
		indexVacuumCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "vacuum", "index_vacuum_count"),
			Help: "Number of completed index vacuum cycles",
		}, []string{"relname"}),
	}
}

func (c *vacuumProgressCollector) Name() string           { return "progress" }
func (c *vacuumProgressCollector) EnabledByDefault() bool { return false }

func (c *vacuumProgressCollector) RegisterMetrics(registry prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{c.active, c.heapProgress, c.heapVacuumed, c.indexVacuumCount} {
		if err := registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *vacuumProgressCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]vacuumProgressRow, 0)
	if err := db.SelectContext(ctx, &rows, vacuumProgressQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", vacuumProgressQuery, err)
	}

	c.heapProgress.Reset()
	c.heapVacuumed.Reset()
	c.indexVacuumCount.Reset()
	c.active.Set(float64(len(rows)))

	for _, row := range rows {
		relname := util.NullStringToString(row.Relname, "unknown")
		total := util.NullInt64ToFloat64(row.HeapBlksTotal)
		if total > 0 {
			c.heapProgress.WithLabelValues(relname).Set(util.NullInt64ToFloat64(row.HeapBlksScanned) / total)
		}
		c.heapVacuumed.WithLabelValues(relname).Set(util.NullInt64ToFloat64(row.HeapBlksVacuumed))
		c.indexVacuumCount.WithLabelValues(relname).Set(util.NullInt64ToFloat64(row.IndexVacuumCount))
	}
	return nil
}
