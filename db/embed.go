// Package db embeds the SQL schema applied by postgres.RunMigrations.
package db

import _ "embed"

// Schema creates every table and index idempotently.
//
//go:embed migrations/001_schema.sql
var Schema string
