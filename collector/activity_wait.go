package collector

import (
	"context"
	"database/sql"
	"fmt"

	"pg_exporter/util"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

type waitEventRow struct {
	WaitEventType sql.NullString `db:"wait_event_type"`
	WaitEvent     sql.NullString `db:"wait_event"`
	Count         int64          `db:"count"`
}

const activityWaitEventsQuery = `
SELECT
    wait_event_type,
    wait_event,
    COUNT(*) AS count
FROM pg_stat_activity
WHERE pid != pg_backend_pid()
GROUP BY wait_event_type, wait_event`

type waitEventsCollector struct {
	waitEventType *prometheus.GaugeVec
	waitEvent     *prometheus.GaugeVec
}

func newWaitEventsCollector() Collector {
	return &waitEventsCollector{
		waitEventType: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "activity", "wait_event_type"),
			Help: "Number of sessions per wait event type",
		}, []string{"wait_event_type"}),
		waitEvent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "activity", "wait_event"),
			Help: "Number of sessions per wait event",
		}, []string{"wait_event"}),
	}
}

func (c *waitEventsCollector) Name() string           { return "wait" }
func (c *waitEventsCollector) EnabledByDefault() bool { return false }

func (c *waitEventsCollector) RegisterMetrics(registry prometheus.Registerer) error {
	if err := registry.Register(c.waitEventType); err != nil {
		return err
	}
	return registry.Register(c.waitEvent)
}

func (c *waitEventsCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]waitEventRow, 0)
	if err := db.SelectContext(ctx, &rows, activityWaitEventsQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", activityWaitEventsQuery, err)
	}

	c.waitEventType.Reset()
	c.waitEvent.Reset()

	if len(rows) == 0 {
		c.waitEventType.WithLabelValues("none").Set(0)
		c.waitEvent.WithLabelValues("none").Set(0)
		return nil
	}

	for _, row := range rows {
		eventType := util.NullStringToString(row.WaitEventType, "none")
		event := util.NullStringToString(row.WaitEvent, "none")
		c.waitEventType.WithLabelValues(eventType).Add(float64(row.Count))
		c.waitEvent.WithLabelValues(event).Add(float64(row.Count))
	}
	return nil
}
