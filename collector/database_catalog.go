package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

type databaseCatalogRow struct {
	Datname   string `db:"datname"`
	ConnLimit int64  `db:"datconnlimit"`
	SizeBytes int64  `db:"size_bytes"`
}

// DatabaseCatalogCollector exports pg_database facts:
// pg_database_size_bytes{datname} and pg_database_connection_limit{datname}.
// Excluded databases are filtered out of the query itself so their sizes are
// never computed.
type DatabaseCatalogCollector struct {
	Query string

	sizeBytes *prometheus.GaugeVec
	connLimit *prometheus.GaugeVec
}

func NewDatabaseCatalogCollector(excluded []string) *DatabaseCatalogCollector {
	query := `SELECT datname, datconnlimit, pg_database_size(datname) AS size_bytes
FROM pg_database
WHERE NOT datistemplate`
	if len(excluded) > 0 {
		quoted := make([]string, 0, len(excluded))
		for _, datname := range excluded {
			quoted = append(quoted, "'"+strings.ReplaceAll(datname, "'", "''")+"'")
		}
		query += fmt.Sprintf(" AND datname NOT IN (%s)", strings.Join(quoted, ", "))
	}

	return &DatabaseCatalogCollector{
		Query: query,
		sizeBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "database", "size_bytes"),
			Help: "Disk space used by the database",
		}, []string{"datname"}),
		connLimit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "database", "connection_limit"),
			Help: "Connection limit set for the database (-1 for unlimited)",
		}, []string{"datname"}),
	}
}

func (c *DatabaseCatalogCollector) Name() string           { return "catalog" }
func (c *DatabaseCatalogCollector) EnabledByDefault() bool { return false }

func (c *DatabaseCatalogCollector) RegisterMetrics(registry prometheus.Registerer) error {
	if err := registry.Register(c.sizeBytes); err != nil {
		return err
	}
	return registry.Register(c.connLimit)
}

func (c *DatabaseCatalogCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]databaseCatalogRow, 0)
	if err := db.SelectContext(ctx, &rows, c.Query); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", c.Query, err)
	}

	c.sizeBytes.Reset()
	c.connLimit.Reset()
	for _, row := range rows {
		c.sizeBytes.WithLabelValues(row.Datname).Set(float64(row.SizeBytes))
		c.connLimit.WithLabelValues(row.Datname).Set(float64(row.ConnLimit))
	}
	return nil
}
