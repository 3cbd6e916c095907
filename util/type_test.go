package util

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInt64ToString(t *testing.T) {
	assert.Equal(t, "0", Int64ToString(0))
	assert.Equal(t, "9432", Int64ToString(9432))
	assert.Equal(t, "-1", Int64ToString(-1))
}

func TestNullInt64ToFloat64(t *testing.T) {
	assert.Equal(t, float64(17), NullInt64ToFloat64(sql.NullInt64{Int64: 17, Valid: true}))
	assert.Equal(t, float64(0), NullInt64ToFloat64(sql.NullInt64{Int64: 17, Valid: false}))
}

func TestNullFloat64ToFloat64(t *testing.T) {
	assert.Equal(t, 3.5, NullFloat64ToFloat64(sql.NullFloat64{Float64: 3.5, Valid: true}))
	assert.Equal(t, float64(0), NullFloat64ToFloat64(sql.NullFloat64{Float64: 3.5, Valid: false}))
}

func TestNullStringToString(t *testing.T) {
	assert.Equal(t, "idle", NullStringToString(sql.NullString{String: "idle", Valid: true}, "none"))
	assert.Equal(t, "none", NullStringToString(sql.NullString{String: "idle", Valid: false}, "none"))
}

func TestNullTimeToEpoch(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, float64(ts.Unix()), NullTimeToEpoch(sql.NullTime{Time: ts, Valid: true}))
	assert.Equal(t, float64(0), NullTimeToEpoch(sql.NullTime{Time: ts, Valid: false}))
}
