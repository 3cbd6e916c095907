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

func newStatCollector() Collector {
	return newAggregate("stat", false,
		newStatUserTablesCollector(),
	)
}

type statUserTablesRow struct {
	Datname        string        `db:"datname"`
	Schemaname     string        `db:"schemaname"`
	Relname        string        `db:"relname"`
	SeqScan        int64         `db:"seq_scan"`
	SeqTupRead     int64         `db:"seq_tup_read"`
	IdxScan        sql.NullInt64 `db:"idx_scan"`
	IdxTupFetch    sql.NullInt64 `db:"idx_tup_fetch"`
	NTupIns        int64         `db:"n_tup_ins"`
	NTupUpd        int64         `db:"n_tup_upd"`
	NTupDel        int64         `db:"n_tup_del"`
	NTupHotUpd     int64         `db:"n_tup_hot_upd"`
	NLiveTup       int64         `db:"n_live_tup"`
	NDeadTup       int64         `db:"n_dead_tup"`
	LastVacuum     sql.NullTime  `db:"last_vacuum"`
	LastAutovacuum sql.NullTime  `db:"last_autovacuum"`
	VacuumCount    int64         `db:"vacuum_count"`
	AutovacCount   int64         `db:"autovacuum_count"`
	TableSizeBytes int64         `db:"table_size_bytes"`
}

// pg_stat_user_tables is per-database, so the collector first enumerates the
// connectable, non-excluded databases and then runs the table query against
// each one over the per-database pool cache. That is why the metrics carry a
// datname label.
const statDatabasesQuery = `
SELECT datname
FROM pg_database
WHERE datallowconn
  AND NOT datistemplate
  AND NOT (datname = ANY($1))
ORDER BY datname`

const statUserTablesQuery = `
SELECT
    current_database() AS datname,
    schemaname,
    relname,
    seq_scan,
    seq_tup_read,
    idx_scan,
    idx_tup_fetch,
    n_tup_ins,
    n_tup_upd,
    n_tup_del,
    n_tup_hot_upd,
    n_live_tup,
    n_dead_tup,
    last_vacuum,
    last_autovacuum,
    vacuum_count,
    autovacuum_count,
    pg_total_relation_size(relid) AS table_size_bytes
FROM pg_stat_user_tables`

var statUserTablesColumns = []struct {
	column string
	help   string
}{
	{"seq_scan", "Sequential scans initiated on this table"},
	{"seq_tup_read", "Live rows fetched by sequential scans"},
	{"idx_scan", "Index scans initiated on this table"},
	{"idx_tup_fetch", "Live rows fetched by index scans"},
	{"n_tup_ins", "Rows inserted"},
	{"n_tup_upd", "Rows updated"},
	{"n_tup_del", "Rows deleted"},
	{"n_tup_hot_upd", "Rows HOT updated"},
	{"n_live_tup", "Estimated live rows"},
	{"n_dead_tup", "Estimated dead rows"},
	{"last_vacuum", "Last manual vacuum time, as Unix epoch seconds"},
	{"last_autovacuum", "Last autovacuum time, as Unix epoch seconds"},
	{"vacuum_count", "Manual vacuums of this table"},
	{"autovacuum_count", "Autovacuums of this table"},
	{"size_bytes", "Total size of the table including indexes and TOAST"},
}

type statUserTablesCollector struct {
	gauges map[string]*prometheus.GaugeVec
}

func newStatUserTablesCollector() Collector {
	labels := []string{"datname", "schemaname", "relname"}
	gauges := make(map[string]*prometheus.GaugeVec, len(statUserTablesColumns))
	for _, col := range statUserTablesColumns {
		gauges[col.column] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "stat_user_tables", col.column),
			Help: col.help,
		}, labels)
	}
	return &statUserTablesCollector{gauges: gauges}
}

func (c *statUserTablesCollector) Name() string           { return "user_tables" }
func (c *statUserTablesCollector) EnabledByDefault() bool { return false }

func (c *statUserTablesCollector) RegisterMetrics(registry prometheus.Registerer) error {
	for _, col := range statUserTablesColumns {
		if err := registry.Register(c.gauges[col.column]); err != nil {
			return err
		}
	}
	return nil
}

func (c *statUserTablesCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	datnames := make([]string, 0)
	if err := db.SelectContext(ctx, &datnames, statDatabasesQuery, pq.Array(ExcludedDatabases())); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", statDatabasesQuery, err)
	}

	for _, g := range c.gauges {
		g.Reset()
	}

	for _, datname := range datnames {
		if err := c.collectDatabase(ctx, datname, db); err != nil {
			return err
		}
	}
	return nil
}

func (c *statUserTablesCollector) collectDatabase(ctx context.Context, datname string, shared *sqlx.DB) error {
	pool, err := poolForDatabase(datname, shared)
	if err != nil {
		return err
	}

	rows := make([]statUserTablesRow, 0)
	if err := pool.SelectContext(ctx, &rows, statUserTablesQuery); err != nil {
		return fmt.Errorf("scraping query failed: datname=%s query=%s error=%w", datname, statUserTablesQuery, err)
	}

	for _, row := range rows {
		set := func(column string, value float64) {
			c.gauges[column].WithLabelValues(row.Datname, row.Schemaname, row.Relname).Set(value)
		}
		set("seq_scan", float64(row.SeqScan))
		set("seq_tup_read", float64(row.SeqTupRead))
		set("idx_scan", util.NullInt64ToFloat64(row.IdxScan))
		set("idx_tup_fetch", util.NullInt64ToFloat64(row.IdxTupFetch))
		set("n_tup_ins", float64(row.NTupIns))
		set("n_tup_upd", float64(row.NTupUpd))
		set("n_tup_del", float64(row.NTupDel))
		set("n_tup_hot_upd", float64(row.NTupHotUpd))
		set("n_live_tup", float64(row.NLiveTup))
		set("n_dead_tup", float64(row.NDeadTup))
		set("last_vacuum", util.NullTimeToEpoch(row.LastVacuum))
		set("last_autovacuum", util.NullTimeToEpoch(row.LastAutovacuum))
		set("vacuum_count", float64(row.VacuumCount))
		set("autovacuum_count", float64(row.AutovacCount))
		set("size_bytes", float64(row.TableSizeBytes))
	}
	return nil
}
