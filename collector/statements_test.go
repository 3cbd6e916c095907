package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestStatementsCollectorWithoutExtension(t *testing.T) {
	tt := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
	}{
		{
			name: "extension not installed",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(statementsExtensionQuery).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
			},
		},
		{
			name: "presence check fails",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(statementsExtensionQuery).
					WillReturnError(errors.New("permission denied"))
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tc.expect(mock)

			c := newPgStatementsCollector().(*pgStatementsCollector)
			c.extensionEnabled.Set(1)

			// succeeds with the sentinel gauge at 0 and never runs the
			// statements query
			require.NoError(t, c.Collect(context.Background(), db))
			assert.Equal(t, 0.0, testutil.ToFloat64(c.extensionEnabled))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStatementsCollectorWithExtension(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(statementsExtensionQuery).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(statementsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"queryid", "rolname", "calls", "total_exec_ms", "rows"}).
			AddRow(int64(-123), "app", int64(7), 1500.0, int64(42)))

	c := newPgStatementsCollector().(*pgStatementsCollector)

	require.NoError(t, c.Collect(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 1.0, testutil.ToFloat64(c.extensionEnabled))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.calls.WithLabelValues("-123", "app")))
	assert.Equal(t, 1.5, testutil.ToFloat64(c.totalSeconds.WithLabelValues("-123", "app")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.rows.WithLabelValues("-123", "app")))
}
