package database

import "embed"

// MigrationsFS holds the SQL schema migrations, applied with pkg/migration.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsDir is the directory inside MigrationsFS.
const MigrationsDir = "migrations"
