package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

func newDefaultCollector() Collector {
	return newAggregate("default", true,
		newVersionCollector(),
		newSettingsCollector(),
		newPostmasterCollector(),
	)
}

const (
	versionQuery      = `SELECT version()`
	versionNumQuery   = `SHOW server_version_num`
	shortVersionQuery = `SHOW server_version`

	postmasterStartTimeQuery = `SELECT EXTRACT(EPOCH FROM pg_postmaster_start_time())::bigint`
)

type versionCollector struct {
	versionInfo *prometheus.GaugeVec
	versionNum  prometheus.Gauge
}

func newVersionCollector() Collector {
	return &versionCollector{
		versionInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prometheus.BuildFQName(namespace, "", "version_info"),
				Help: "PostgreSQL server version",
			},
			[]string{"version", "short_version"},
		),
		versionNum: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: prometheus.BuildFQName(namespace, "settings", "server_version_num"),
				Help: "PostgreSQL server version number",
			},
		),
	}
}

func (c *versionCollector) Name() string           { return "version" }
func (c *versionCollector) EnabledByDefault() bool { return false }

func (c *versionCollector) RegisterMetrics(registry prometheus.Registerer) error {
	if err := registry.Register(c.versionInfo); err != nil {
		return err
	}
	return registry.Register(c.versionNum)
}

func (c *versionCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	var fullVersion string
	if err := db.GetContext(ctx, &fullVersion, versionQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", versionQuery, err)
	}

	var shortVersion string
	if err := db.GetContext(ctx, &shortVersion, shortVersionQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", shortVersionQuery, err)
	}

	var versionNum string
	if err := db.GetContext(ctx, &versionNum, versionNumQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", versionNumQuery, err)
	}
	num, err := strconv.ParseFloat(strings.TrimSpace(versionNum), 64)
	if err != nil {
		return fmt.Errorf("parsing server_version_num failed: value=%s error=%w", versionNum, err)
	}

	c.versionInfo.Reset()
	c.versionInfo.WithLabelValues(fullVersion, shortVersion).Set(1)
	c.versionNum.Set(num)
	return nil
}

// settingNames is the fixed set of GUCs exported as pg_settings_<name>.
// Boolean settings render as 1/0, everything else as the raw numeric value.
var settingNames = []string{
	"autovacuum",
	"autovacuum_max_workers",
	"autovacuum_naptime",
	"checkpoint_timeout",
	"fsync",
	"log_min_duration_statement",
	"maintenance_work_mem",
	"max_connections",
	"shared_buffers",
	"synchronous_commit",
	"wal_buffers",
	"work_mem",
}

type settingsCollector struct {
	gauges map[string]prometheus.Gauge
	query  string
}

func newSettingsCollector() Collector {
	gauges := make(map[string]prometheus.Gauge, len(settingNames))
	quoted := make([]string, 0, len(settingNames))
	for _, name := range settingNames {
		gauges[name] = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "settings", name),
			Help: fmt.Sprintf("Value of the %s server setting", name),
		})
		quoted = append(quoted, "'"+name+"'")
	}

	return &settingsCollector{
		gauges: gauges,
		query: fmt.Sprintf(`SELECT name, setting FROM pg_settings WHERE name IN (%s) ORDER BY name`,
			strings.Join(quoted, ", ")),
	}
}

func (c *settingsCollector) Name() string           { return "settings" }
func (c *settingsCollector) EnabledByDefault() bool { return false }

func (c *settingsCollector) RegisterMetrics(registry prometheus.Registerer) error {
	for _, name := range settingNames {
		if err := registry.Register(c.gauges[name]); err != nil {
			return err
		}
	}
	return nil
}

func (c *settingsCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]struct {
		Name    string `db:"name"`
		Setting string `db:"setting"`
	}, 0)
	if err := db.SelectContext(ctx, &rows, c.query); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", c.query, err)
	}

	for _, row := range rows {
		gauge, ok := c.gauges[row.Name]
		if !ok {
			continue
		}
		gauge.Set(settingValue(row.Setting))
	}
	return nil
}

func settingValue(setting string) float64 {
	if v, err := strconv.ParseFloat(setting, 64); err == nil {
		return v
	}
	switch setting {
	case "on":
		return 1
	default:
		return 0
	}
}

type postmasterCollector struct {
	startTime prometheus.Gauge
}

func newPostmasterCollector() Collector {
	return &postmasterCollector{
		startTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "postmaster", "start_time_seconds"),
			Help: "Time at which postmaster started, as Unix epoch seconds",
		}),
	}
}

func (c *postmasterCollector) Name() string           { return "postmaster" }
func (c *postmasterCollector) EnabledByDefault() bool { return false }

func (c *postmasterCollector) RegisterMetrics(registry prometheus.Registerer) error {
	return registry.Register(c.startTime)
}

func (c *postmasterCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	var epoch int64
	if err := db.GetContext(ctx, &epoch, postmasterStartTimeQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", postmasterStartTimeQuery, err)
	}
	c.startTime.Set(float64(epoch))
	return nil
}
