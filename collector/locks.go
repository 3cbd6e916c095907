package collector

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

func newLocksCollector() Collector {
	return newAggregate("locks", false,
		newLocksCountCollector(),
	)
}

type locksRow struct {
	Datname string `db:"datname"`
	Mode    string `db:"mode"`
	Count   int64  `db:"count"`
}

const locksCountQuery = `
SELECT
    d.datname,
    l.mode,
    COUNT(*) AS count
FROM pg_locks l
JOIN pg_database d ON d.oid = l.database
WHERE d.datname IS NOT NULL
GROUP BY d.datname, l.mode`

type locksCountCollector struct {
	locksCount *prometheus.GaugeVec
}

func newLocksCountCollector() Collector {
	return &locksCountCollector{
		locksCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "locks", "count"),
			Help: "Number of locks per database and mode",
		}, []string{"datname", "mode"}),
	}
}

func (c *locksCountCollector) Name() string           { return "count" }
func (c *locksCountCollector) EnabledByDefault() bool { return false }

func (c *locksCountCollector) RegisterMetrics(registry prometheus.Registerer) error {
	return registry.Register(c.locksCount)
}

func (c *locksCountCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]locksRow, 0)
	if err := db.SelectContext(ctx, &rows, locksCountQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", locksCountQuery, err)
	}

	c.locksCount.Reset()
	for _, row := range rows {
		if IsDatabaseExcluded(row.Datname) {
			continue
		}
		c.locksCount.WithLabelValues(row.Datname, row.Mode).Set(float64(row.Count))
	}
	return nil
}
