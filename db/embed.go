// Package db embeds the SQL migrations applied by `typoreporter migrate`.
package db

import (
	"embed"
	"io/fs"
)

// MigrationsFS contains all SQL migration files embedded at compile time.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// Migrations returns the migration files rooted at the directory that holds them.
func Migrations() (fs.FS, error) {
	return fs.Sub(MigrationsFS, "migrations")
}
