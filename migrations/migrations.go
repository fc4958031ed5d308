// Package migrations embeds the schema migrations for both relational
// dialects.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// For returns the migrations for a goqu dialect name ("postgres" or
// "sqlite3"), rooted so the .sql files sit at the top level.
func For(dialect string) (fs.FS, error) {
	var dir string
	switch dialect {
	case "postgres":
		dir = "postgres"
	case "sqlite3":
		dir = "sqlite"
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	return fs.Sub(files, dir)
}
