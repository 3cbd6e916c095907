package collector

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

func newActivityCollector() Collector {
	return newAggregate("activity", true,
		newConnectionsCollector(),
		newWaitEventsCollector(),
	)
}

type activityRow struct {
	Datname string `db:"datname"`
	Active  int64  `db:"active"`
	Waiting int64  `db:"waiting"`
	Blocked int64  `db:"blocked"`
	Total   int64  `db:"total"`
}

const activityConnectionsQuery = `
SELECT
    COALESCE(datname, '[background]') AS datname,
    COUNT(*) FILTER (WHERE state = 'active') AS active,
    COUNT(*) FILTER (WHERE wait_event IS NOT NULL) AS waiting,
    COUNT(*) FILTER (WHERE pid IN (
        SELECT blocked_locks.pid
        FROM pg_locks blocked_locks
        JOIN pg_locks blocking_locks
          ON blocked_locks.locktype = blocking_locks.locktype
         AND blocked_locks.database IS NOT DISTINCT FROM blocking_locks.database
         AND blocked_locks.relation IS NOT DISTINCT FROM blocking_locks.relation
         AND blocked_locks.transactionid IS NOT DISTINCT FROM blocking_locks.transactionid
         AND blocked_locks.pid != blocking_locks.pid
        WHERE NOT blocked_locks.granted AND blocking_locks.granted
    )) AS blocked,
    COUNT(*) AS total
FROM pg_stat_activity
WHERE pid != pg_backend_pid()
GROUP BY datname
ORDER BY datname`

type connectionsCollector struct {
	active  *prometheus.GaugeVec
	waiting *prometheus.GaugeVec
	blocked *prometheus.GaugeVec
	total   *prometheus.GaugeVec
}

func newConnectionsCollector() Collector {
	labels := []string{"datname"}
	return &connectionsCollector{
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "activity", "active_connections"),
			Help: "Number of active connections per database",
		}, labels),
		waiting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "activity", "waiting_connections"),
			Help: "Number of connections currently waiting on a wait event per database",
		}, labels),
		blocked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "activity", "blocked_connections"),
			Help: "Number of connections blocked on an ungranted lock per database",
		}, labels),
		total: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "activity", "total_connections"),
			Help: "Total backends per database",
		}, labels),
	}
}

func (c *connectionsCollector) Name() string           { return "connections" }
func (c *connectionsCollector) EnabledByDefault() bool { return false }

func (c *connectionsCollector) RegisterMetrics(registry prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{c.active, c.waiting, c.blocked, c.total} {
		if err := registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *connectionsCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]activityRow, 0)
	if err := db.SelectContext(ctx, &rows, activityConnectionsQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", activityConnectionsQuery, err)
	}

	c.active.Reset()
	c.waiting.Reset()
	c.blocked.Reset()
	c.total.Reset()
	for _, row := range rows {
		if IsDatabaseExcluded(row.Datname) {
			continue
		}
		c.active.WithLabelValues(row.Datname).Set(float64(row.Active))
		c.waiting.WithLabelValues(row.Datname).Set(float64(row.Waiting))
		c.blocked.WithLabelValues(row.Datname).Set(float64(row.Blocked))
		c.total.WithLabelValues(row.Datname).Set(float64(row.Total))
	}
	return nil
}
