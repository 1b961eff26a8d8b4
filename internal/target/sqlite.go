package target

import (
	_ "modernc.org/sqlite"
)

// sqliteDSN appends the pragmas every local database needs.
func sqliteDSN(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}
