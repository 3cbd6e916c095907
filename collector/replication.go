package collector

import (
	"context"
	"database/sql"
	"fmt"

	"pg_exporter/util"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

func newReplicationCollector() Collector {
	return newAggregate("replication", false,
		newReplicaCollector(),
		newStatReplicationCollector(),
		newReplicationSlotsCollector(),
	)
}

const replicaStatusQuery = `
SELECT
    pg_is_in_recovery() AS in_recovery,
    CASE
        WHEN pg_is_in_recovery()
        THEN EXTRACT(EPOCH FROM (now() - pg_last_xact_replay_timestamp()))::double precision
        ELSE 0
    END AS replay_lag_seconds`

type replicaCollector struct {
	inRecovery prometheus.Gauge
	replayLag  prometheus.Gauge
}

func newReplicaCollector() Collector {
	return &replicaCollector{
		inRecovery: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "replication", "is_replica"),
			Help: "Whether the server is currently in recovery",
		}),
		replayLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "replication", "replay_lag_seconds"),
			Help: "Seconds since the last replayed transaction; 0 on a primary",
		}),
	}
}

func (c *replicaCollector) Name() string           { return "replica" }
func (c *replicaCollector) EnabledByDefault() bool { return false }

func (c *replicaCollector) RegisterMetrics(registry prometheus.Registerer) error {
	if err := registry.Register(c.inRecovery); err != nil {
		return err
	}
	return registry.Register(c.replayLag)
}

func (c *replicaCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	var row struct {
		InRecovery bool            `db:"in_recovery"`
		ReplayLag  sql.NullFloat64 `db:"replay_lag_seconds"`
	}
	if err := db.GetContext(ctx, &row, replicaStatusQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", replicaStatusQuery, err)
	}

	if row.InRecovery {
		c.inRecovery.Set(1)
	} else {
		c.inRecovery.Set(0)
	}
	c.replayLag.Set(util.NullFloat64ToFloat64(row.ReplayLag))
	return nil
}

type statReplicationRow struct {
	ApplicationName string          `db:"application_name"`
	ClientAddr      sql.NullString  `db:"client_addr"`
	State           sql.NullString  `db:"state"`
	ReplayLagBytes  sql.NullFloat64 `db:"replay_lag_bytes"`
}

const statReplicationQuery = `
SELECT
    application_name,
    client_addr::text AS client_addr,
    state,
    pg_wal_lsn_diff(pg_current_wal_lsn(), replay_lsn)::double precision AS replay_lag_bytes
FROM pg_stat_replication`

type statReplicationCollector struct {
	lagBytes *prometheus.GaugeVec
}

func newStatReplicationCollector() Collector {
	return &statReplicationCollector{
		lagBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "stat_replication", "replay_lag_bytes"),
			Help: "WAL bytes the standby has yet to replay",
		}, []string{"application_name", "client_addr", "state"}),
	}
}

func (c *statReplicationCollector) Name() string           { return "stat_replication" }
func (c *statReplicationCollector) EnabledByDefault() bool { return false }

func (c *statReplicationCollector) RegisterMetrics(registry prometheus.Registerer) error {
	return registry.Register(c.lagBytes)
}

func (c *statReplicationCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]statReplicationRow, 0)
	if err := db.SelectContext(ctx, &rows, statReplicationQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", statReplicationQuery, err)
	}

	c.lagBytes.Reset()
	for _, row := range rows {
		c.lagBytes.WithLabelValues(
			row.ApplicationName,
			util.NullStringToString(row.ClientAddr, ""),
			util.NullStringToString(row.State, "unknown"),
		).Set(util.NullFloat64ToFloat64(row.ReplayLagBytes))
	}
	return nil
}

type replicationSlotRow struct {
	SlotName      string          `db:"slot_name"`
	SlotType      string          `db:"slot_type"`
	Active        bool            `db:"active"`
	RetainedBytes sql.NullFloat64 `db:"retained_bytes"`
}

const replicationSlotsQuery = `
SELECT
    slot_name,
    slot_type,
    active,
    pg_wal_lsn_diff(pg_current_wal_lsn(), restart_lsn)::double precision AS retained_bytes
FROM pg_replication_slots`

type replicationSlotsCollector struct {
	active        *prometheus.GaugeVec
	retainedBytes *prometheus.GaugeVec
}

func newReplicationSlotsCollector() Collector {
	labels := []string{"slot_name", "slot_type"}
	return &replicationSlotsCollector{
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "replication_slot", "active"),
			Help: "Whether the replication slot has an active connection",
		}, labels),
		retainedBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "replication_slot", "retained_wal_bytes"),
			Help: "WAL bytes retained for the replication slot",
		}, labels),
	}
}

func (c *replicationSlotsCollector) Name() string           { return "slots" }
func (c *replicationSlotsCollector) EnabledByDefault() bool { return false }

func (c *replicationSlotsCollector) RegisterMetrics(registry prometheus.Registerer) error {
	if err := registry.Register(c.active); err != nil {
		return err
	}
	return registry.Register(c.retainedBytes)
}

func (c *replicationSlotsCollector) Collect(ctx context.Context, db *sqlx.DB) error {
	rows := make([]replicationSlotRow, 0)
	if err := db.SelectContext(ctx, &rows, replicationSlotsQuery); err != nil {
		return fmt.Errorf("scraping query failed: query=%s error=%w", replicationSlotsQuery, err)
	}

	c.active.Reset()
	c.retainedBytes.Reset()
	for _, row := range rows {
		active := 0.0
		if row.Active {
			active = 1
		}
		c.active.WithLabelValues(row.SlotName, row.SlotType).Set(active)
		c.retainedBytes.WithLabelValues(row.SlotName, row.SlotType).Set(util.NullFloat64ToFloat64(row.RetainedBytes))
	}
	return nil
}
