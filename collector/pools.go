package collector

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"pg_exporter/log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Base connection string and per-database pool cache. Collectors that read
// facts from every database reach the non-default ones through tiny cached
// pools derived from the startup DSN. Written once at startup, like the
// exclusion set.
var (
	dsnOnce         sync.Once
	baseConnStr     string
	defaultDatabase string

	poolsMu sync.Mutex
	pools   map[string]*sqlx.DB
)

// SetConnectionDSN records the base DSN used to build per-database
// connections. URL-form DSNs are converted to keyword form so the database
// name can be overridden uniformly. Only the first call has any effect.
func SetConnectionDSN(dsn string) error {
	var initErr error
	dsnOnce.Do(func() {
		connStr := dsn
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			var err error
			connStr, err = pq.ParseURL(dsn)
			if err != nil {
				initErr = fmt.Errorf("dsn is not valid: err=%w", err)
				return
			}
		}
		baseConnStr = connStr
		defaultDatabase = parseDefaultDatabase(connStr)
		pools = make(map[string]*sqlx.DB)
	})
	return initErr
}

// poolForDatabase returns the shared pool for the default database and a
// cached single-connection pool for any other database, opened on first use
// and reused across scrapes. Before SetConnectionDSN has run, every database
// falls back to the shared pool.
func poolForDatabase(datname string, shared *sqlx.DB) (*sqlx.DB, error) {
	if defaultDatabase == "" || datname == defaultDatabase {
		return shared, nil
	}

	poolsMu.Lock()
	defer poolsMu.Unlock()

	if db, ok := pools[datname]; ok {
		return db, nil
	}

	db, err := sqlx.Open("postgres", connStrForDatabase(baseConnStr, datname))
	if err != nil {
		return nil, fmt.Errorf("opening database connection failed: datname=%s error=%w", datname, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(2 * time.Minute)

	pools[datname] = db
	log.Logger.Debugf("opened database pool: datname=%s", datname)
	return db, nil
}

// connStrForDatabase appends a dbname to a keyword-form connection string.
// libpq takes the last occurrence of a repeated keyword, so the base value
// does not need to be stripped.
func connStrForDatabase(base, datname string) string {
	return base + " dbname=" + quoteConnValue(datname)
}

func quoteConnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// parseDefaultDatabase extracts the dbname value from a keyword-form
// connection string. Values may be single-quoted and contain backslash
// escapes; the last dbname wins. Falls back to "postgres" like libpq.
func parseDefaultDatabase(connStr string) string {
	dbname := "postgres"
	s := connStr
	for len(s) > 0 {
		s = strings.TrimLeft(s, " \t")
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(s[:eq])
		s = s[eq+1:]

		var value strings.Builder
		if strings.HasPrefix(s, "'") {
			s = s[1:]
			for len(s) > 0 {
				ch := s[0]
				if ch == '\\' && len(s) > 1 {
					value.WriteByte(s[1])
					s = s[2:]
					continue
				}
				s = s[1:]
				if ch == '\'' {
					break
				}
				value.WriteByte(ch)
			}
		} else if end := strings.IndexByte(s, ' '); end >= 0 {
			value.WriteString(s[:end])
			s = s[end:]
		} else {
			value.WriteString(s)
			s = ""
		}

		if key == "dbname" {
			dbname = value.String()
		}
	}
	return dbname
}
