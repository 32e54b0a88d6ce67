// Package migrations embeds the goose migrations of the local SQLite
// database and of the optional PostgreSQL audit sink.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

const (
	SQLiteDir   = "sqlite"
	PostgresDir = "postgres"
)
