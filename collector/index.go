package collector

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

func newIndexCollector() Collector {
	return newAggregate("index", false,
		newIndexStatsCollector(),
		newUnusedIndexCollector(),
	)
}

type indexStatsRow struct {
	Schemaname   string `db:"schemaname"`
	Relname      string `db:"relname"`
	Indexrelname string `db:"indexrelname"`
	IdxScan      int64  `db:"idx_scan"`
	IdxTupRead   int64  `db:"idx_tup_read"`
	IdxTupFetch  int64  `db:"idx_tup_fetch"`
	SizeBytes    int64  `db:"size_bytes"`
}

const indexStatsQuery = `
SELECT
    schemaname,
    relname,
    indexrelname,
    idx_scan,
    idx_tup_read,
    idx_tup_fetch,
    pg_relation_size(indexrelid) AS size_bytes
FROM pg_stat_user_indexes`

type indexStatsCollector struct {
	idxScan     *prometheus.GaugeVec
	idxTupRead  *prometheus.GaugeVec
	idxTupFetch *prometheus.GaugeVec
	sizeBytes   *prometheus.GaugeVec
}

func newIndexStatsCollector() Collector {
	labels := []string{"schemaname", "relname", "indexrelname"}
	return &indexStatsCollector{
		idxScan: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "stat_user_indexes", "idx_scan"),
			Help: "Index scans initiated on this index",
		}, labels),
		idxTupRead: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "stat_user_indexes", "idx_tup_read"),
			Help: "Index entries returned by scans on this index",
		}, labels),
		idxTupFetch: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "stat_user_indexes", "idx_tup_fetch"),
			Help: "Live table rows fetched by simple index scans",
		}, labels),
		sizeBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "stat_user_indexes", "size_bytes"),
			Help: "Size of the index on disk",
		}, labels),
	}
}

func (c *indexStatsCollector) Name() string           { return "stats" }
func (c *indexStatsCollector) EnabledByDefault() bool { return false }

func (c *indexStatsCollector) RegisterMetrics(registry prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{c.idxScan, c.idxTupRead, c.idxTupFetch, c.sizeBytes} {
		if err := registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *indexStatsCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]indexStatsRow, 0)
	if err := db.SelectContext(ctx, &rows, indexStatsQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", indexStatsQuery, err)
	}

	c.idxScan.Reset()
	c.idxTupRead.Reset()
	c.idxTupFetch.Reset()
	c.sizeBytes.Reset()
	for _, row := range rows {
		labels := []string{row.Schemaname, row.Relname, row.Indexrelname}
		c.idxScan.WithLabelValues(labels...).Set(float64(row.IdxScan))
		c.idxTupRead.WithLabelValues(labels...).Set(float64(row.IdxTupRead))
		c.idxTupFetch.WithLabelValues(labels...).Set(float64(row.IdxTupFetch))
		c.sizeBytes.WithLabelValues(labels...).Set(float64(row.SizeBytes))
	}
	return nil
}

type unusedIndexRow struct {
	Schemaname   string `db:"schemaname"`
	Relname      string `db:"relname"`
	Indexrelname string `db:"indexrelname"`
	SizeBytes    int64  `db:"size_bytes"`
}

const unusedIndexQuery = `
SELECT
    schemaname,
    relname,
    indexrelname,
    pg_relation_size(indexrelid) AS size_bytes
FROM pg_stat_user_indexes
WHERE idx_scan = 0`

type unusedIndexCollector struct {
	unusedSize *prometheus.GaugeVec
}

func newUnusedIndexCollector() Collector {
	return &unusedIndexCollector{
		unusedSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "index", "unused_size_bytes"),
			Help: "Size of indexes that have never been scanned",
		}, []string{"schemaname", "relname", "indexrelname"}),
	}
}

func (c *unusedIndexCollector) Name() string           { return "unused" }
func (c *unusedIndexCollector) EnabledByDefault() bool { return false }

func (c *unusedIndexCollector) RegisterMetrics(registry prometheus.Registerer) error {
	return registry.Register(c.unusedSize)
}

func (c *unusedIndexCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]unusedIndexRow, 0)
	if err := db.SelectContext(ctx, &rows, unusedIndexQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", unusedIndexQuery, err)
	}

	c.unusedSize.Reset()
	for _, row := range rows {
		c.unusedSize.WithLabelValues(row.Schemaname, row.Relname, row.Indexrelname).Set(float64(row.SizeBytes))
	}
	return nil
}
