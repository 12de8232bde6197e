// Package migrations embeds the SQL schema migrations for the PostgreSQL
// credential store. Migrations are applied with goose via postgres.RunMigrations.
package migrations

import "embed"

// Migrations holds the embedded goose migration files.
//
//go:embed *.sql
var Migrations embed.FS
