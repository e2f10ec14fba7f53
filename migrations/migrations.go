// Package migrations embeds the SQL schema for the run history store.
package migrations

import "embed"

// PostgresDir каталог миграций PostgreSQL внутри PostgresMigrations
const PostgresDir = "postgres"

// PostgresMigrations goose миграции PostgreSQL
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
