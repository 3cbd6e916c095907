package util

import (
	"database/sql"
	"strconv"
)

func Int64ToString(i int64) string {
	return strconv.FormatInt(i, 10)
}

func NullInt64ToFloat64(nullInt64 sql.NullInt64) float64 {
	if nullInt64.Valid {
		return float64(nullInt64.Int64)
	}
	return 0
}

func NullFloat64ToFloat64(nullFloat64 sql.NullFloat64) float64 {
	if nullFloat64.Valid {
		return nullFloat64.Float64
	}
	return 0
}

func NullStringToString(nullString sql.NullString, defaultValue string) string {
	if nullString.Valid {
		return nullString.String
	}
	return defaultValue
}

// NullTimeToEpoch renders a nullable timestamp as Unix seconds, 0 when NULL.
func NullTimeToEpoch(nullTime sql.NullTime) float64 {
	if nullTime.Valid {
		return float64(nullTime.Time.Unix())
	}
	return 0
}
