package target

import (
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// mysqlDSN ensures parseTime is on so DATETIME columns scan cleanly.
func mysqlDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "parseTime=true"
}
