package collector

import (
	"context"
	"database/sql"
	"fmt"

	"pg_exporter/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
)

func newDatabaseCollector() Collector {
	return newAggregate("database", false,
		newDatabaseStatsCollector(),
		NewDatabaseCatalogCollector(ExcludedDatabases()),
	)
}

type databaseStatsRow struct {
	Datname      string          `db:"datname"`
	NumBackends  int64           `db:"numbackends"`
	XactCommit   int64           `db:"xact_commit"`
	XactRollback int64           `db:"xact_rollback"`
	BlksRead     int64           `db:"blks_read"`
	BlksHit      int64           `db:"blks_hit"`
	TupReturned  int64           `db:"tup_returned"`
	TupFetched   int64           `db:"tup_fetched"`
	TupInserted  int64           `db:"tup_inserted"`
	TupUpdated   int64           `db:"tup_updated"`
	TupDeleted   int64           `db:"tup_deleted"`
	Conflicts    int64           `db:"conflicts"`
	TempFiles    int64           `db:"temp_files"`
	TempBytes    int64           `db:"temp_bytes"`
	Deadlocks    int64           `db:"deadlocks"`
	StatsReset   sql.NullFloat64 `db:"stats_reset_epoch"`
}

const databaseStatsQuery = `
SELECT
    datname,
    numbackends,
    xact_commit,
    xact_rollback,
    blks_read,
    blks_hit,
    tup_returned,
    tup_fetched,
    tup_inserted,
    tup_updated,
    tup_deleted,
    conflicts,
    temp_files,
    temp_bytes,
    deadlocks,
    EXTRACT(EPOCH FROM stats_reset)::double precision AS stats_reset_epoch
FROM pg_stat_database
WHERE datname IS NOT NULL AND NOT (datname = ANY($1))
ORDER BY datname`

type databaseStatsCollector struct {
	gauges map[string]*prometheus.GaugeVec
}

// statDatabaseColumns maps pg_stat_database columns to metric names and help
// strings. Everything is exported as a gauge labelled by datname; the
// cumulative counters are re-read whole each scrape.
var statDatabaseColumns = []struct {
	column string
	help   string
}{
	{"numbackends", "Number of backends currently connected to this database"},
	{"xact_commit", "Transactions committed"},
	{"xact_rollback", "Transactions rolled back"},
	{"blks_read", "Disk blocks read"},
	{"blks_hit", "Disk blocks found in the buffer cache"},
	{"tup_returned", "Rows returned by queries"},
	{"tup_fetched", "Rows fetched by queries"},
	{"tup_inserted", "Rows inserted by queries"},
	{"tup_updated", "Rows updated by queries"},
	{"tup_deleted", "Rows deleted by queries"},
	{"conflicts", "Queries canceled due to conflicts with recovery"},
	{"temp_files", "Temporary files created by queries"},
	{"temp_bytes", "Bytes written to temporary files"},
	{"deadlocks", "Deadlocks detected"},
	{"stats_reset", "Time at which statistics were last reset, as Unix epoch seconds"},
}

func newDatabaseStatsCollector() Collector {
	gauges := make(map[string]*prometheus.GaugeVec, len(statDatabaseColumns))
	for _, col := range statDatabaseColumns {
		gauges[col.column] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "stat_database", col.column),
			Help: col.help,
		}, []string{"datname"})
	}
	return &databaseStatsCollector{gauges: gauges}
}

func (c *databaseStatsCollector) Name() string           { return "stats" }
func (c *databaseStatsCollector) EnabledByDefault() bool { return false }

func (c *databaseStatsCollector) RegisterMetrics(registry prometheus.Registerer) error {
	for _, col := range statDatabaseColumns {
		if err := registry.Register(c.gauges[col.column]); err != nil {
			return err
		}
	}
	return nil
}

func (c *databaseStatsCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]databaseStatsRow, 0)
	if err := db.SelectContext(ctx, &rows, databaseStatsQuery, pq.Array(ExcludedDatabases())); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", databaseStatsQuery, err)
	}

	for _, g := range c.gauges {
		g.Reset()
	}

	for _, row := range rows {
		set := func(column string, value float64) {
			c.gauges[column].WithLabelValues(row.Datname).Set(value)
		}
		set("numbackends", float64(row.NumBackends))
		set("xact_commit", float64(row.XactCommit))
		set("xact_rollback", float64(row.XactRollback))
		set("blks_read", float64(row.BlksRead))
		set("blks_hit", float64(row.BlksHit))
		set("tup_returned", float64(row.TupReturned))
		set("tup_fetched", float64(row.TupFetched))
		set("tup_inserted", float64(row.TupInserted))
		set("tup_updated", float64(row.TupUpdated))
		set("tup_deleted", float64(row.TupDeleted))
		set("conflicts", float64(row.Conflicts))
		set("temp_files", float64(row.TempFiles))
		set("temp_bytes", float64(row.TempBytes))
		set("deadlocks", float64(row.Deadlocks))
		set("stats_reset", util.NullFloat64ToFloat64(row.StatsReset))
	}
	return nil
}
