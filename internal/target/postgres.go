package target

import (
	_ "github.com/lib/pq"
)

// dsnFor applies the per-driver DSN adjustments. Postgres connection
// strings are used as given.
func dsnFor(driver, dsn string) string {
	switch driver {
	case "sqlite":
		return sqliteDSN(dsn)
	case "mysql":
		return mysqlDSN(dsn)
	default:
		return dsn
	}
}
