package migrations

import "embed"

// FS contains embedded SQLite migrations for leveling storage.
//
//go:embed *.sql
var FS embed.FS
