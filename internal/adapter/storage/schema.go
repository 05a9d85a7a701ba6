package storage

import (
	_ "embed"
	"strings"
)

//go:embed schema/mysql.sql
var mysqlSchema string

//go:embed schema/postgres.sql
var postgresSchema string

// splitStatements breaks a DDL file into single statements so it can run
// without multi-statement support in the driver.
func splitStatements(ddl string) []string {
	var stmts []string
	for _, part := range strings.Split(ddl, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
